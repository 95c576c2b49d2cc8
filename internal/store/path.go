package store

import (
	"fmt"
	"strings"
)

const forbidden = ".#$[]"

// Join builds a path from segments, rejecting empty segments and the
// characters the realtime store reserves.
func Join(segments ...string) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, s := range segments {
		if err := checkSegment(s); err != nil {
			return "", err
		}
	}
	return strings.Join(segments, "/"), nil
}

// Child appends one key segment to an existing path.
func Child(path, key string) (string, error) {
	path, err := Clean(path)
	if err != nil {
		return "", err
	}
	if err := checkSegment(key); err != nil {
		return "", err
	}
	return path + "/" + key, nil
}

// Clean validates path and strips surrounding slashes.
func Clean(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	return Join(strings.Split(path, "/")...)
}

func checkSegment(s string) error {
	if s == "" || strings.TrimSpace(s) != s {
		return fmt.Errorf("%w: bad segment %q", ErrInvalidPath, s)
	}
	if strings.ContainsAny(s, forbidden+"/") {
		return fmt.Errorf("%w: segment %q contains a reserved character", ErrInvalidPath, s)
	}
	return nil
}

// Parent returns the path one level up, or "" for a top-level path.
func Parent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

// Related reports whether a change at changed affects a listener on
// watched: the same path, a descendant of it, or an ancestor of it.
func Related(watched, changed string) bool {
	switch {
	case watched == changed:
		return true
	case strings.HasPrefix(changed, watched+"/"):
		return true
	case strings.HasPrefix(watched, changed+"/"):
		return true
	}
	return false
}

// Package store defines the realtime document store the ledger is kept in.
//
// Documents live at slash-separated paths and hold a flat set of string
// fields. Subscribers to a path receive a full snapshot of that path's
// fields and direct children when they subscribe and again after every
// change at, below, or above it.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("store closed")
)

type (
	// Fields is the content of one document.
	Fields map[string]string

	// Entry is a direct child document of a subscribed or listed path.
	Entry struct {
		Key    string
		Fields Fields
	}

	// Snapshot is the state of a path at one point in time. A snapshot with
	// a non-nil Err is the last one a subscription delivers.
	Snapshot struct {
		Path    string
		Fields  Fields
		Entries []Entry
		Err     error
	}
)

// Store is implemented by the in-memory and SQLite backends.
type Store interface {
	// Subscribe starts listening on path. The first snapshot is delivered
	// asynchronously.
	Subscribe(path string) (*Subscription, error)
	// Read returns the fields at path or ErrNotFound.
	Read(ctx context.Context, path string) (Fields, error)
	// Children returns the direct children of path in insertion order.
	Children(ctx context.Context, path string) ([]Entry, error)
	// Write merges fields into an existing document; ErrNotFound if absent.
	Write(ctx context.Context, path string, fields Fields) error
	// Set creates or replaces the document at path.
	Set(ctx context.Context, path string, fields Fields) error
	// Push creates a child of path under a new time-ordered key.
	Push(ctx context.Context, path string, fields Fields) (string, error)
	// Remove deletes path and everything below it. Removing a missing path
	// succeeds.
	Remove(ctx context.Context, path string) error
	Close() error
}

// Clone returns an independent copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a copy of f with every key of update applied on top.
func (f Fields) Merge(update Fields) Fields {
	out := make(Fields, len(f)+len(update))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}

// Load builds the snapshot for path from a store's Read and Children.
func Load(ctx context.Context, s interface {
	Read(ctx context.Context, path string) (Fields, error)
	Children(ctx context.Context, path string) ([]Entry, error)
}, path string) (Snapshot, error) {
	fields, err := s.Read(ctx, path)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Snapshot{}, err
	}
	entries, err := s.Children(ctx, path)
	if err != nil {
		return Snapshot{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Snapshot{Path: path, Fields: fields, Entries: entries}, nil
}

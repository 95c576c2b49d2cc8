// Package memory is an in-process realtime store. It backs the default
// server configuration and most tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"spendmate/internal/store"
)

type node struct {
	fields store.Fields
	seq    uint64
}

type Store struct {
	mu     sync.RWMutex
	nodes  map[string]node
	seq    uint64
	closed bool

	hub *store.Hub
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{nodes: make(map[string]node)}
	s.hub = store.NewHub(func(ctx context.Context, path string) (store.Snapshot, error) {
		return store.Load(ctx, s, path)
	})
	return s
}

func (s *Store) Subscribe(path string) (*store.Subscription, error) {
	return s.hub.Subscribe(path)
}

func (s *Store) Read(ctx context.Context, path string) (store.Fields, error) {
	path, err := store.Clean(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	n, ok := s.nodes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	return n.fields.Clone(), nil
}

func (s *Store) Children(ctx context.Context, path string) ([]store.Entry, error) {
	path, err := store.Clean(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	type child struct {
		entry store.Entry
		seq   uint64
	}
	var children []child
	for p, n := range s.nodes {
		if store.Parent(p) == path {
			children = append(children, child{store.Entry{Key: store.Base(p), Fields: n.fields.Clone()}, n.seq})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].seq < children[j].seq })

	entries := make([]store.Entry, len(children))
	for i, c := range children {
		entries[i] = c.entry
	}
	return entries, nil
}

func (s *Store) Write(ctx context.Context, path string, fields store.Fields) error {
	path, err := store.Clean(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	n, ok := s.nodes[path]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	n.fields = n.fields.Merge(fields)
	s.nodes[path] = n
	s.mu.Unlock()

	s.hub.Notify(path)
	return nil
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields) error {
	path, err := store.Clean(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	n, ok := s.nodes[path]
	if !ok {
		s.seq++
		n.seq = s.seq
	}
	n.fields = fields.Clone()
	if n.fields == nil {
		n.fields = store.Fields{}
	}
	s.nodes[path] = n
	s.mu.Unlock()

	s.hub.Notify(path)
	return nil
}

func (s *Store) Push(ctx context.Context, path string, fields store.Fields) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	child, err := store.Child(path, id.String())
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, child, fields); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	path, err := store.Clean(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	removed := 0
	for p := range s.nodes {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(s.nodes, p)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.hub.Notify(path)
	}
	return nil
}

// Close ends all subscriptions. Further calls fail with store.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

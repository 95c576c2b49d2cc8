package store

import (
	"context"
	"sync"
)

// Loader produces the current snapshot of a path.
type Loader func(ctx context.Context, path string) (Snapshot, error)

// Hub fans change notifications out to subscriptions. Both store backends
// embed one; the SQLite backend also feeds it changes made by other
// processes.
type Hub struct {
	load Loader

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub(load Loader) *Hub {
	return &Hub{load: load, subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a listener on path and schedules its first snapshot.
func (h *Hub) Subscribe(path string) (*Subscription, error) {
	path, err := Clean(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		path:   path,
		hub:    h,
		kick:   make(chan struct{}, 1),
		out:    make(chan Snapshot),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	s.kick <- struct{}{}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.run(h.load)
	return s, nil
}

// Notify wakes every subscription affected by a change at path. Pending
// wake-ups coalesce, so a burst of writes yields at least one fresh
// snapshot rather than one per write.
func (h *Hub) Notify(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if Related(s.path, path) {
			select {
			case s.kick <- struct{}{}:
			default:
			}
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Subscription is a cancellable stream of snapshots for one path.
type Subscription struct {
	path   string
	hub    *Hub
	kick   chan struct{}
	out    chan Snapshot
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Path returns the subscribed path.
func (s *Subscription) Path() string { return s.path }

// C delivers snapshots in emission order. It is closed by Close.
func (s *Subscription) C() <-chan Snapshot { return s.out }

// Close stops the subscription. It is safe to call on a nil or already
// closed subscription, and no snapshot is delivered after it returns.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.hub.remove(s)
		close(s.out)
	})
}

func (s *Subscription) run(load Loader) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
		}

		snap, err := load(s.ctx, s.path)
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			snap = Snapshot{Path: s.path, Err: err}
		}

		select {
		case s.out <- snap:
		case <-s.ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

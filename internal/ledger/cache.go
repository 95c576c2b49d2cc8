package ledger

import (
	"context"
	"fmt"
	"sync"

	"spendmate/internal/core"
	"spendmate/internal/log"
	"spendmate/internal/store"
)

type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a consistent read of a cache.
type State struct {
	Transactions []core.Transaction
	Status       Status
	Err          error
	Version      uint64
}

// Cache holds the latest snapshot of one user's transactions. Every
// snapshot from the store replaces the previous one whole.
type Cache struct {
	client *Client
	userID string
	logger *log.Logger

	mu       sync.RWMutex
	entries  []core.Transaction
	index    map[string]int
	status   Status
	err      error
	version  uint64
	sub      *store.Subscription
	ready    chan struct{}
	watchers map[chan struct{}]struct{}
}

// NewCache subscribes to userID's transactions. Most callers should go
// through a Manager so the subscription is shared.
func NewCache(client *Client, userID string) *Cache {
	c := &Cache{
		client:   client,
		userID:   userID,
		logger:   client.logger.WithUser(userID),
		index:    map[string]int{},
		watchers: map[chan struct{}]struct{}{},
	}
	c.mu.Lock()
	c.subscribeLocked()
	c.mu.Unlock()
	return c
}

func (c *Cache) subscribeLocked() {
	c.status = StatusLoading
	c.err = nil
	c.ready = make(chan struct{})

	sub, err := c.client.Subscribe(c.userID)
	if err != nil {
		c.failLocked(err)
		return
	}
	c.sub = sub
	go c.consume(sub)
}

func (c *Cache) consume(sub *store.Subscription) {
	for snap := range sub.C() {
		if snap.Err != nil {
			c.fail(sub, snap.Err)
			return
		}
		c.apply(sub, snap)
	}
}

func (c *Cache) apply(sub *store.Subscription, snap store.Snapshot) {
	txns, malformed := DecodeSnapshot(snap)
	index := make(map[string]int, len(txns))
	for i, tx := range txns {
		index[tx.ID] = i
	}

	c.mu.Lock()
	if c.sub != sub {
		c.mu.Unlock()
		return
	}
	c.entries = txns
	c.index = index
	c.status = StatusReady
	c.err = nil
	c.version++
	version := c.version
	c.markReadyLocked()
	c.notifyLocked()
	c.mu.Unlock()

	for _, err := range malformed {
		c.logger.Warn("Dropping malformed entry", log.FieldError, err)
	}
	for _, tx := range txns {
		if !tx.Valid() {
			c.logger.Warn("Entry has no usable amount or date, excluded from totals", log.FieldTransactionID, tx.ID)
		}
	}
	c.logger.Debug("Snapshot applied", log.FieldCount, len(txns), log.FieldVersion, version)
}

func (c *Cache) fail(sub *store.Subscription, cause error) {
	c.mu.Lock()
	if c.sub != sub {
		c.mu.Unlock()
		return
	}
	c.sub = nil
	c.failLocked(cause)
	c.mu.Unlock()
	sub.Close()
}

func (c *Cache) failLocked(cause error) {
	c.status = StatusError
	c.err = fmt.Errorf("%w: %w", ErrSubscription, cause)
	c.markReadyLocked()
	c.notifyLocked()
	c.logger.Error("Ledger subscription failed", log.FieldError, cause)
}

func (c *Cache) markReadyLocked() {
	select {
	case <-c.ready:
	default:
		close(c.ready)
	}
}

func (c *Cache) notifyLocked() {
	for w := range c.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

// UserID returns the owner of the cached ledger.
func (c *Cache) UserID() string { return c.userID }

// State returns the snapshot, status, error and version read together.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Transactions: append([]core.Transaction(nil), c.entries...),
		Status:       c.status,
		Err:          c.err,
		Version:      c.version,
	}
}

// List returns a copy of the snapshot in store order.
func (c *Cache) List() []core.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Transaction(nil), c.entries...)
}

func (c *Cache) Get(id string) (core.Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return core.Transaction{}, false
	}
	return c.entries[i], true
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Version increases with every applied snapshot.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// WaitReady blocks until the first snapshot has been applied or the
// subscription failed.
func (c *Cache) WaitReady(ctx context.Context) error {
	for {
		c.mu.RLock()
		status, err, ready := c.status, c.err, c.ready
		c.mu.RUnlock()

		switch status {
		case StatusReady:
			return nil
		case StatusError:
			return err
		case StatusClosed:
			return ErrClosed
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Watch returns a channel that receives a value after every change of
// state. Signals coalesce; read State to see the latest. The channel is
// closed when the cache closes or cancel is called.
func (c *Cache) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	if c.status == StatusClosed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.watchers[ch]; ok {
				delete(c.watchers, ch)
				close(ch)
			}
		})
	}
}

// Retry re-establishes a failed subscription. It does nothing unless the
// cache is in the error state.
func (c *Cache) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case StatusClosed:
		return ErrClosed
	case StatusError:
		c.logger.Info("Retrying ledger subscription")
		c.subscribeLocked()
		c.notifyLocked()
	}
	return nil
}

// Close tears the subscription down. No snapshot is applied afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.status == StatusClosed {
		c.mu.Unlock()
		return
	}
	sub := c.sub
	c.sub = nil
	c.status = StatusClosed
	c.entries = nil
	c.index = map[string]int{}
	c.markReadyLocked()
	for w := range c.watchers {
		close(w)
		delete(c.watchers, w)
	}
	c.mu.Unlock()

	sub.Close()
	c.logger.Debug("Ledger cache closed", log.FieldOperation, log.OpUnsubscribe)
}

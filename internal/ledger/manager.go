package ledger

import (
	"sync"
	"time"

	"spendmate/internal/auth"
	"spendmate/internal/log"
)

// Manager owns the one Cache for the signed-in user. Consumers Acquire it
// and Release it when done; the subscription is torn down once the last
// consumer has released and the linger period has passed, or at once when
// the identity changes.
type Manager struct {
	client *Client
	auth   *auth.State
	linger time.Duration
	logger *log.Logger

	mu          sync.Mutex
	current     *Cache
	refs        int
	timer       *time.Timer
	closed      bool
	cancelWatch func()
}

func NewManager(client *Client, state *auth.State, linger time.Duration) *Manager {
	m := &Manager{
		client: client,
		auth:   state,
		linger: linger,
		logger: client.logger,
	}
	m.cancelWatch = state.Watch(m.identityChanged)
	return m
}

// Acquire returns the shared cache for the signed-in user, creating it if
// needed. Every successful Acquire must be paired with a Release.
func (m *Manager) Acquire() (*Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	// Read under m.mu so an identity change either happened before this
	// point or tears down the cache created here once we unlock.
	id := m.auth.Current()
	if !id.SignedIn() {
		return nil, ErrUnauthenticated
	}
	if m.current != nil && m.current.UserID() != id.UserID {
		m.teardownLocked()
	}
	if m.current == nil {
		m.current = NewCache(m.client, id.UserID)
		m.logger.Info("Ledger cache established", log.FieldUserID, id.UserID)
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.refs++
	return m.current, nil
}

// Release gives back a cache obtained from Acquire. Releasing a cache that
// was already torn down is a no-op.
func (m *Manager) Release(c *Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == nil || c != m.current {
		return
	}
	m.refs--
	if m.refs > 0 {
		return
	}
	m.refs = 0
	if m.linger <= 0 {
		m.teardownLocked()
		return
	}
	m.timer = time.AfterFunc(m.linger, func() { m.expire(c) })
}

func (m *Manager) expire(c *Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == c && m.refs == 0 {
		m.teardownLocked()
	}
}

// Current returns the live cache without taking a reference, or nil.
func (m *Manager) Current() *Cache {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// identityChanged compares against the live identity rather than next, so
// notifications delivered late by racing sign-ins cannot tear down a cache
// that already matches.
func (m *Manager) identityChanged(_, _ auth.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.UserID() != m.auth.Current().UserID {
		m.teardownLocked()
	}
}

func (m *Manager) teardownLocked() {
	c := m.current
	m.current = nil
	m.refs = 0
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if c != nil {
		c.Close()
		m.logger.Info("Ledger cache torn down", log.FieldUserID, c.UserID())
	}
}

// Close tears down the current cache and refuses further Acquires.
func (m *Manager) Close() {
	m.cancelWatch()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.closed = true
}

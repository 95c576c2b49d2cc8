package ledger

import (
	"errors"
	"testing"
	"time"

	"spendmate/internal/auth"
	"spendmate/internal/log"
	"spendmate/internal/store/memory"
)

func newTestManager(linger time.Duration) (*Manager, *auth.State, *memory.Store) {
	s := memory.New()
	state := auth.NewState(log.Discard())
	return NewManager(NewClient(s, log.Discard()), state, linger), state, s
}

func TestManagerRequiresSignIn(t *testing.T) {
	m, _, _ := newTestManager(0)
	defer m.Close()
	if _, err := m.Acquire(); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestManagerSharesOneCache(t *testing.T) {
	m, state, _ := newTestManager(0)
	defer m.Close()
	state.SignIn("u1", "")

	a, err := m.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("consumers of the same user must share one cache")
	}

	m.Release(a)
	if a.Status() == StatusClosed {
		t.Fatal("cache closed while still referenced")
	}
	m.Release(b)
	if a.Status() != StatusClosed {
		t.Fatal("last release with no linger should tear down")
	}
	if m.Current() != nil {
		t.Fatal("manager still holds a torn-down cache")
	}
	m.Release(a)
}

func TestManagerLinger(t *testing.T) {
	m, state, _ := newTestManager(30 * time.Millisecond)
	defer m.Close()
	state.SignIn("u1", "")

	a, _ := m.Acquire()
	m.Release(a)
	if a.Status() == StatusClosed {
		t.Fatal("torn down before the linger elapsed")
	}

	b, _ := m.Acquire()
	if a != b {
		t.Fatal("re-acquire within the linger should reuse the cache")
	}
	m.Release(b)
	waitFor(t, func() bool { return b.Status() == StatusClosed })
}

func TestManagerIdentityChange(t *testing.T) {
	m, state, _ := newTestManager(time.Hour)
	defer m.Close()
	state.SignIn("u1", "")

	first, _ := m.Acquire()
	readyCache(t, first)

	state.SignIn("u2", "")
	if first.Status() != StatusClosed {
		t.Fatal("previous user's cache must be torn down before switching")
	}
	second, err := m.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if second == first || second.UserID() != "u2" {
		t.Fatalf("expected a fresh cache for u2, got %q", second.UserID())
	}
	m.Release(first)

	state.SignOut()
	if second.Status() != StatusClosed {
		t.Fatal("sign-out must tear the cache down")
	}
	if _, err := m.Acquire(); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after sign-out, got %v", err)
	}
}

func TestManagerClose(t *testing.T) {
	m, state, _ := newTestManager(time.Hour)
	state.SignIn("u1", "")
	c, _ := m.Acquire()
	m.Close()
	if c.Status() != StatusClosed {
		t.Fatal("Close must tear down the cache")
	}
	if _, err := m.Acquire(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	state.SignIn("u2", "")
}

func TestManagerAcquireRacingSignIn(t *testing.T) {
	m, state, _ := newTestManager(time.Minute)
	defer m.Close()

	for i := 0; i < 200; i++ {
		state.SignIn("alice", "")
		switched := make(chan struct{})
		go func() {
			state.SignIn("bob", "")
			close(switched)
		}()
		c, err := m.Acquire()
		<-switched
		if err != nil {
			t.Fatal(err)
		}
		if c.Status() != StatusClosed && c.UserID() != "bob" {
			t.Fatalf("iteration %d: live cache for %q handed out while bob is signed in", i, c.UserID())
		}
		if cur := m.Current(); cur != nil && cur.UserID() != "bob" {
			t.Fatalf("iteration %d: manager holds cache for %q", i, cur.UserID())
		}
		m.Release(c)
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"spendmate/internal/amqp"
	"spendmate/internal/log"
	"spendmate/internal/store"
	"spendmate/internal/store/storetest"
)

func openTestStore(t *testing.T, path string, opts ...Option) *SQLiteStore {
	t.Helper()
	s, err := Open(path, append([]Option{WithLogger(log.Discard())}, opts...)...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	})
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s := openTestStore(t, path)
	id, err := s.Push(ctx, "transactions/u1", store.Fields{"name": "Rent", "amount": "900.00"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTestStore(t, path)
	defer reopened.Close()
	got, err := reopened.Read(ctx, "transactions/u1/"+id)
	if err != nil {
		t.Fatal(err)
	}
	if got["amount"] != "900.00" {
		t.Fatalf("unexpected fields after reopen: %v", got)
	}
}

// bus is an in-process stand-in for the AMQP fanout exchange.
type bus struct {
	mu        sync.Mutex
	handlers  []func(*amqp.ChangeMessage) error
	published []amqp.ChangeMessage
	ready     chan struct{}
}

func newBus() *bus { return &bus{ready: make(chan struct{}, 8)} }

func (b *bus) PublishChange(ctx context.Context, path, origin string) error {
	msg := amqp.NewChangeMessage(path, origin)
	b.mu.Lock()
	b.published = append(b.published, *msg)
	handlers := append([]func(*amqp.ChangeMessage) error(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range handlers {
		_ = h(msg)
	}
	return nil
}

func (b *bus) ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
	b.ready <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestSQLiteStoreFollowsOtherProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	b := newBus()
	writer := openTestStore(t, path, WithNotifier(b))
	defer writer.Close()
	reader := openTestStore(t, path, WithNotifier(b))
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	followed := make(chan error, 1)
	go func() { followed <- reader.Follow(ctx) }()
	<-b.ready

	sub, err := reader.Subscribe("transactions/u1")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	storetest.Next(t, sub)

	if _, err := writer.Push(context.Background(), "transactions/u1", store.Fields{"name": "Coffee"}); err != nil {
		t.Fatal(err)
	}
	storetest.Until(t, sub, func(snap store.Snapshot) bool { return len(snap.Entries) == 1 })

	b.mu.Lock()
	if len(b.published) != 1 || b.published[0].Origin != writer.Origin() {
		t.Fatalf("unexpected broadcasts %+v", b.published)
	}
	b.mu.Unlock()

	cancel()
	select {
	case err := <-followed:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Follow returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Follow did not stop")
	}
}

func TestSQLiteStoreIgnoresOwnBroadcasts(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer s.Close()
	if err := s.applyRemote(&amqp.ChangeMessage{Path: "transactions/u1", Origin: s.Origin()}); err != nil {
		t.Fatal(err)
	}
	if err := s.applyRemote(&amqp.ChangeMessage{Path: "bad//path", Origin: "other"}); !errors.Is(err, store.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

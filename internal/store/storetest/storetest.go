// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendmate/internal/store"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("ReadMissing", func(t *testing.T) { testReadMissing(t, newStore(t)) })
	t.Run("SetReadWrite", func(t *testing.T) { testSetReadWrite(t, newStore(t)) })
	t.Run("WriteMissing", func(t *testing.T) { testWriteMissing(t, newStore(t)) })
	t.Run("PushOrder", func(t *testing.T) { testPushOrder(t, newStore(t)) })
	t.Run("RemoveIdempotent", func(t *testing.T) { testRemove(t, newStore(t)) })
	t.Run("InvalidPath", func(t *testing.T) { testInvalidPath(t, newStore(t)) })
	t.Run("SubscribeInitialSnapshot", func(t *testing.T) { testSubscribeInitial(t, newStore(t)) })
	t.Run("SubscribeFollowsChanges", func(t *testing.T) { testSubscribeChanges(t, newStore(t)) })
	t.Run("UnsubscribeBeforeDelivery", func(t *testing.T) { testUnsubscribeBeforeDelivery(t, newStore(t)) })
	t.Run("CloseEndsSubscriptions", func(t *testing.T) { testCloseEndsSubscriptions(t, newStore(t)) })
}

// Next waits for the next snapshot on sub or fails the test.
func Next(t *testing.T, sub *store.Subscription) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return store.Snapshot{}
}

// Until reads snapshots until cond holds for one of them.
func Until(t *testing.T, sub *store.Subscription, cond func(store.Snapshot) bool) store.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.C():
			if !ok {
				t.Fatal("subscription closed")
			}
			if snap.Err != nil {
				t.Fatalf("subscription failed: %v", snap.Err)
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return store.Snapshot{}
		}
	}
}

func keys(entries []store.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func testReadMissing(t *testing.T, s store.Store) {
	defer s.Close()
	_, err := s.Read(context.Background(), "users/nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	entries, err := s.Children(context.Background(), "transactions/nobody")
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no children, got %v %v", entries, err)
	}
}

func testSetReadWrite(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	if err := s.Set(ctx, "users/u1", store.Fields{"firstName": "Ada", "email": "ada@example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "users/u1", store.Fields{"lastName": "Lovelace"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read(ctx, "users/u1")
	if err != nil {
		t.Fatal(err)
	}
	if got["firstName"] != "Ada" || got["lastName"] != "Lovelace" || got["email"] != "ada@example.com" {
		t.Fatalf("merge lost fields: %v", got)
	}

	got["firstName"] = "mutated"
	again, _ := s.Read(ctx, "users/u1")
	if again["firstName"] != "Ada" {
		t.Fatal("Read must return a copy")
	}

	if err := s.Set(ctx, "users/u1", store.Fields{"firstName": "Grace"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Read(ctx, "users/u1")
	if len(got) != 1 || got["firstName"] != "Grace" {
		t.Fatalf("Set must replace, got %v", got)
	}
}

func testWriteMissing(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	err := s.Write(ctx, "transactions/u1/ghost", store.Fields{"name": "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Read(ctx, "transactions/u1/ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("failed write must not create a record, got %v", err)
	}
}

func testPushOrder(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		id, err := s.Push(ctx, "transactions/u1", store.Fields{"name": name})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	if _, err := s.Push(ctx, "transactions/u2", store.Fields{"name": "other user"}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Children(ctx, "transactions/u1")
	if err != nil {
		t.Fatal(err)
	}
	got := keys(entries)
	if len(got) != 3 || got[0] != ids[0] || got[1] != ids[1] || got[2] != ids[2] {
		t.Fatalf("children %v, want %v", got, ids)
	}
	if entries[1].Fields["name"] != "second" {
		t.Fatalf("unexpected fields %v", entries[1].Fields)
	}
}

func testRemove(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	id, err := s.Push(ctx, "transactions/u1", store.Fields{"name": "x"})
	if err != nil {
		t.Fatal(err)
	}
	path := "transactions/u1/" + id
	if err := s.Remove(ctx, path); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, path); err != nil {
		t.Fatalf("second remove must succeed, got %v", err)
	}
	if _, err := s.Read(ctx, path); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}

	if _, err := s.Push(ctx, "transactions/u1", store.Fields{"name": "y"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "transactions/u10/keep", store.Fields{"name": "z"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "transactions/u1"); err != nil {
		t.Fatal(err)
	}
	if entries, _ := s.Children(ctx, "transactions/u1"); len(entries) != 0 {
		t.Fatalf("descendants not removed: %v", entries)
	}
	if _, err := s.Read(ctx, "transactions/u10/keep"); err != nil {
		t.Fatalf("sibling with shared prefix removed: %v", err)
	}
}

func testInvalidPath(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	for _, p := range []string{"", "users//u1", "users/a.b", "users/$x"} {
		if _, err := s.Read(ctx, p); !errors.Is(err, store.ErrInvalidPath) {
			t.Errorf("Read(%q): expected ErrInvalidPath, got %v", p, err)
		}
	}
	if _, err := s.Subscribe("transactions/[x]"); !errors.Is(err, store.ErrInvalidPath) {
		t.Errorf("Subscribe: expected ErrInvalidPath, got %v", err)
	}
}

func testSubscribeInitial(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	if _, err := s.Push(ctx, "transactions/u1", store.Fields{"name": "a"}); err != nil {
		t.Fatal(err)
	}
	sub, err := s.Subscribe("transactions/u1")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	snap := Next(t, sub)
	if snap.Err != nil || snap.Path != "transactions/u1" || len(snap.Entries) != 1 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	empty, err := s.Subscribe("transactions/nobody")
	if err != nil {
		t.Fatal(err)
	}
	defer empty.Close()
	if snap := Next(t, empty); snap.Entries == nil || len(snap.Entries) != 0 {
		t.Fatalf("empty collection should yield an empty, non-nil snapshot: %+v", snap)
	}
}

func testSubscribeChanges(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	sub, err := s.Subscribe("transactions/u1")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	Next(t, sub)

	id, err := s.Push(ctx, "transactions/u1", store.Fields{"name": "a"})
	if err != nil {
		t.Fatal(err)
	}
	Until(t, sub, func(snap store.Snapshot) bool { return len(snap.Entries) == 1 })

	if err := s.Write(ctx, "transactions/u1/"+id, store.Fields{"name": "b"}); err != nil {
		t.Fatal(err)
	}
	Until(t, sub, func(snap store.Snapshot) bool {
		return len(snap.Entries) == 1 && snap.Entries[0].Fields["name"] == "b"
	})

	if err := s.Remove(ctx, "transactions"); err != nil {
		t.Fatal(err)
	}
	Until(t, sub, func(snap store.Snapshot) bool { return len(snap.Entries) == 0 })
}

func testUnsubscribeBeforeDelivery(t *testing.T, s store.Store) {
	defer s.Close()
	if _, err := s.Push(context.Background(), "transactions/u1", store.Fields{"name": "a"}); err != nil {
		t.Fatal(err)
	}
	sub, err := s.Subscribe("transactions/u1")
	if err != nil {
		t.Fatal(err)
	}
	sub.Close()
	sub.Close()

	if _, err := s.Push(context.Background(), "transactions/u1", store.Fields{"name": "b"}); err != nil {
		t.Fatal(err)
	}
	select {
	case snap, ok := <-sub.C():
		if ok {
			t.Fatalf("snapshot delivered after Close: %+v", snap)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel should be closed")
	}
}

func testCloseEndsSubscriptions(t *testing.T, s store.Store) {
	sub, err := s.Subscribe("transactions/u1")
	if err != nil {
		t.Fatal(err)
	}
	Next(t, sub)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed with the store")
	}
	if _, err := s.Subscribe("transactions/u1"); !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

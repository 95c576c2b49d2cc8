// Package ledger keeps a live local view of one user's transactions in
// step with the realtime store.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"spendmate/internal/core"
	"spendmate/internal/log"
	"spendmate/internal/store"
)

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrWrite           = errors.New("write failed")
	ErrSubscription    = errors.New("subscription failed")
	ErrNotFound        = errors.New("not found")
	ErrClosed          = errors.New("ledger closed")
)

const (
	transactionsRoot = "transactions"
	usersRoot        = "users"
)

// Client performs ledger reads, writes and subscriptions against a store.
// It only translates between records and stored fields.
type Client struct {
	store  store.Store
	logger *log.Logger
}

func NewClient(s store.Store, logger *log.Logger) *Client {
	return &Client{store: s, logger: logger.WithComponent(log.ComponentLedger)}
}

func transactionsPath(userID string) (string, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return store.Join(transactionsRoot, userID)
}

func transactionPath(userID, id string) (string, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}
	p, err := store.Join(transactionsRoot, userID, id)
	if err != nil {
		return "", fmt.Errorf("%w: transaction %q", ErrNotFound, id)
	}
	return p, nil
}

func profilePath(userID string) (string, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return store.Join(usersRoot, userID)
}

// Subscribe listens to the user's whole transaction collection. The
// current state arrives as the first snapshot, shortly after the call.
func (c *Client) Subscribe(userID string) (*store.Subscription, error) {
	path, err := transactionsPath(userID)
	if err != nil {
		return nil, err
	}
	sub, err := c.store.Subscribe(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscription, err)
	}
	c.logger.Debug("Subscribed", log.FieldUserID, userID, log.FieldOperation, log.OpSubscribe)
	return sub, nil
}

// Unsubscribe stops sub. Nil and already closed subscriptions are fine.
func (c *Client) Unsubscribe(sub *store.Subscription) {
	sub.Close()
}

// DecodeSnapshot turns a collection snapshot into transactions in store
// order. Unusable entries are returned as errors instead; entries with a bad
// amount or date are kept and report Valid() == false.
func DecodeSnapshot(snap store.Snapshot) ([]core.Transaction, []error) {
	txns := make([]core.Transaction, 0, len(snap.Entries))
	var malformed []error
	for _, e := range snap.Entries {
		tx, err := core.DecodeTransaction(e.Key, e.Fields)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		txns = append(txns, tx)
	}
	return txns, malformed
}

// Create stores a validated transaction under a new id.
func (c *Client) Create(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	path, err := transactionsPath(userID)
	if err != nil {
		return "", err
	}
	id, err := c.store.Push(ctx, path, store.Fields(core.EncodeTransaction(tx)))
	if err != nil {
		return "", fmt.Errorf("%w: create transaction: %w", ErrWrite, err)
	}
	return id, nil
}

// Update merges tx into an existing entry. It never creates one.
func (c *Client) Update(ctx context.Context, userID, id string, tx core.Transaction) error {
	path, err := transactionPath(userID, id)
	if err != nil {
		return err
	}
	err = c.store.Write(ctx, path, store.Fields(core.EncodeTransaction(tx)))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	case err != nil:
		return fmt.Errorf("%w: update transaction %s: %w", ErrWrite, id, err)
	}
	return nil
}

// Delete removes an entry. Deleting a missing entry succeeds.
func (c *Client) Delete(ctx context.Context, userID, id string) error {
	path, err := transactionPath(userID, id)
	if err != nil {
		return err
	}
	if err := c.store.Remove(ctx, path); err != nil {
		return fmt.Errorf("%w: delete transaction %s: %w", ErrWrite, id, err)
	}
	return nil
}

// ReadTransaction fetches one entry directly from the store.
func (c *Client) ReadTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	path, err := transactionPath(userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	fields, err := c.store.Read(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read transaction %s: %w", id, err)
	}
	return core.DecodeTransaction(id, fields)
}

func (c *Client) ReadProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	path, err := profilePath(userID)
	if err != nil {
		return core.UserProfile{}, err
	}
	fields, err := c.store.Read(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return core.UserProfile{}, fmt.Errorf("%w: profile %s", ErrNotFound, userID)
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("read profile %s: %w", userID, err)
	}
	return core.DecodeProfile(userID, fields), nil
}

// WriteProfile merges p into the stored profile, creating it on the first
// edit.
func (c *Client) WriteProfile(ctx context.Context, p core.UserProfile) error {
	path, err := profilePath(p.ID)
	if err != nil {
		return err
	}
	fields := store.Fields(core.EncodeProfile(p))
	err = c.store.Write(ctx, path, fields)
	if errors.Is(err, store.ErrNotFound) {
		err = c.store.Set(ctx, path, fields)
	}
	if err != nil {
		return fmt.Errorf("%w: write profile %s: %w", ErrWrite, p.ID, err)
	}
	return nil
}

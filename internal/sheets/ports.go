package sheets

import (
	"context"

	"spendmate/internal/core"
)

// Snapshot is one user's ledger at a cache version, ready to be mirrored.
type Snapshot struct {
	UserID       string
	Version      uint64
	Currency     string
	Transactions []core.Transaction
}

// LedgerMirror replaces an external copy of a ledger with a snapshot.
type LedgerMirror interface {
	Mirror(ctx context.Context, snap Snapshot) error
}

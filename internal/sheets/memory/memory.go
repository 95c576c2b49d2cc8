// Package memory is an in-process LedgerMirror used by tests and by the
// mirror worker when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"spendmate/internal/core"
	"spendmate/internal/sheets"
)

type Mirror struct {
	mu    sync.Mutex
	snaps []sheets.Snapshot
	err   error
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror { return &Mirror{} }

// Mirror records a copy of snap, or returns the error set with FailWith.
func (m *Mirror) Mirror(_ context.Context, snap sheets.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	snap.Transactions = append([]core.Transaction(nil), snap.Transactions...)
	m.snaps = append(m.snaps, snap)
	return nil
}

// FailWith makes subsequent calls fail with err; nil restores success.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Count returns how many snapshots were mirrored.
func (m *Mirror) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}

// Last returns the most recent snapshot.
func (m *Mirror) Last() (sheets.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return sheets.Snapshot{}, false
	}
	return m.snaps[len(m.snaps)-1], true
}

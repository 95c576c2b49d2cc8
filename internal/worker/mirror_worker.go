package worker

import (
	"context"
	"fmt"
	"time"

	"spendmate/internal/ledger"
	"spendmate/internal/log"
	"spendmate/internal/sheets"
)

// MirrorWorker copies the signed-in user's ledger into a LedgerMirror each
// time a new snapshot is applied. A periodic tick retries failed mirrors
// and failed subscriptions, covering changes whose notification was lost.
type MirrorWorker struct {
	manager  *ledger.Manager
	mirror   sheets.LedgerMirror
	currency string
	interval time.Duration
	logger   *log.Logger

	lastVersion uint64
	mirrored    bool
}

func NewMirrorWorker(manager *ledger.Manager, mirror sheets.LedgerMirror, currency string, interval time.Duration, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		manager:  manager,
		mirror:   mirror,
		currency: currency,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run mirrors until ctx is cancelled or the ledger cache is torn down.
func (w *MirrorWorker) Run(ctx context.Context) error {
	c, err := w.manager.Acquire()
	if err != nil {
		return fmt.Errorf("acquire ledger: %w", err)
	}
	defer w.manager.Release(c)

	changes, cancel := c.Watch()
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Mirror worker started", log.FieldUserID, c.UserID())
	w.sync(ctx, c)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Mirror worker stopping", log.FieldUserID, c.UserID())
			return nil
		case _, ok := <-changes:
			if !ok {
				return ledger.ErrClosed
			}
			w.sync(ctx, c)
		case <-ticker.C:
			if c.Status() == ledger.StatusError {
				if err := c.Retry(); err != nil {
					return err
				}
				continue
			}
			w.sync(ctx, c)
		}
	}
}

func (w *MirrorWorker) sync(ctx context.Context, c *ledger.Cache) {
	if _, err := w.MirrorOnce(ctx, c); err != nil {
		w.logger.ErrorContext(ctx, "Ledger mirror failed",
			log.FieldUserID, c.UserID(),
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
	}
}

// MirrorOnce mirrors the cache's current snapshot unless that version was
// already mirrored. It reports whether a mirror was written.
func (w *MirrorWorker) MirrorOnce(ctx context.Context, c *ledger.Cache) (bool, error) {
	state := c.State()
	if state.Status != ledger.StatusReady {
		w.logger.DebugContext(ctx, "Ledger not ready, skipping mirror", log.FieldStatus, state.Status.String())
		return false, nil
	}
	if w.mirrored && state.Version == w.lastVersion {
		return false, nil
	}

	snap := sheets.Snapshot{
		UserID:       c.UserID(),
		Version:      state.Version,
		Currency:     w.currency,
		Transactions: state.Transactions,
	}
	if err := w.mirror.Mirror(ctx, snap); err != nil {
		return false, fmt.Errorf("mirror version %d: %w", state.Version, err)
	}
	w.lastVersion = state.Version
	w.mirrored = true
	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldUserID, snap.UserID,
		log.FieldVersion, snap.Version,
		log.FieldCount, len(snap.Transactions))
	return true, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"spendmate/internal/aggregate"
	"spendmate/internal/auth"
	"spendmate/internal/cache"
	"spendmate/internal/chart"
	"spendmate/internal/core"
	"spendmate/internal/ledger"
	"spendmate/internal/log"
	"spendmate/internal/query"
)

// View is everything a ledger screen shows for one selection.
type View struct {
	UserID           string
	Selection        query.Selection
	Status           ledger.Status
	Version          uint64
	Income           decimal.Decimal
	Expense          decimal.Decimal
	Net              decimal.Decimal
	Transactions     []core.Transaction
	CategorySpending []aggregate.CategoryTotal
	Line             chart.Series
	Bar              chart.Series
}

// LedgerService is the entry point presentation layers use: it reads
// views from the shared ledger cache and sends validated mutations to the
// store on behalf of the signed-in user.
type LedgerService struct {
	client   *ledger.Client
	manager  *ledger.Manager
	auth     *auth.State
	profiles *cache.LRUCache[core.UserProfile]
	loads    singleflight.Group
	logger   *log.Logger
	now      func() time.Time
}

func NewLedgerService(client *ledger.Client, manager *ledger.Manager, state *auth.State, profiles *cache.LRUCache[core.UserProfile], logger *log.Logger) *LedgerService {
	return &LedgerService{
		client:   client,
		manager:  manager,
		auth:     state,
		profiles: profiles,
		logger:   logger.WithComponent(log.ComponentService),
		now:      time.Now,
	}
}

func (s *LedgerService) userID() (string, error) {
	id := s.auth.Current()
	if !id.SignedIn() {
		return "", ledger.ErrUnauthenticated
	}
	return id.UserID, nil
}

// GetLedgerView waits for the ledger to be loaded and derives the view
// for sel from the current snapshot.
func (s *LedgerService) GetLedgerView(ctx context.Context, sel query.Selection) (View, error) {
	c, err := s.manager.Acquire()
	if err != nil {
		return View{}, err
	}
	defer s.manager.Release(c)

	if err := c.WaitReady(ctx); err != nil {
		return View{UserID: c.UserID(), Selection: sel, Status: c.Status()}, err
	}
	state := c.State()
	return BuildView(c.UserID(), state, sel, s.now()), nil
}

// BuildView computes a view from a cache state.
func BuildView(userID string, state ledger.State, sel query.Selection, now time.Time) View {
	filtered := aggregate.FilterTransactions(state.Transactions, sel, now)
	balances := aggregate.ComputeBalances(filtered)
	byDate := aggregate.SortByDate(filtered)
	return View{
		UserID:           userID,
		Selection:        sel,
		Status:           state.Status,
		Version:          state.Version,
		Income:           balances.Income,
		Expense:          balances.Expense,
		Net:              balances.Net,
		Transactions:     filtered,
		CategorySpending: aggregate.ComputeCategorySpending(filtered),
		Line:             chart.Line(byDate),
		Bar:              chart.Bar(byDate),
	}
}

// AddTransaction validates req and stores it. Type defaults to expense and
// date to now.
func (s *LedgerService) AddTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	uid, err := s.userID()
	if err != nil {
		return "", err
	}
	cand, err := req.candidate(createDefaults(s.now()))
	if err != nil {
		return "", err
	}
	tx, err := core.Validate(cand)
	if err != nil {
		return "", err
	}
	id, err := s.client.Create(ctx, uid, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create transaction", log.FieldUserID, uid, log.FieldError, err)
		return "", err
	}
	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldUserID, uid,
		log.FieldTransactionID, id,
		log.FieldTxType, string(tx.Type),
		log.FieldCategory, tx.Category,
		log.FieldAmount, core.FormatDecimal(tx.Amount))
	return id, nil
}

// EditTransaction applies req over the stored transaction.
func (s *LedgerService) EditTransaction(ctx context.Context, id string, req TransactionRequest) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	base := core.Candidate{}
	existing, err := s.client.ReadTransaction(ctx, uid, id)
	switch {
	case err == nil:
		base = editBase(existing)
	case errors.Is(err, core.ErrMalformedEntry):
		// A broken entry can be repaired with a complete request.
		s.logger.WarnContext(ctx, "Editing malformed entry", log.FieldTransactionID, id, log.FieldError, err)
	default:
		return err
	}

	cand, err := req.candidate(base)
	if err != nil {
		return err
	}
	tx, err := core.Validate(cand)
	if err != nil {
		return err
	}
	if err := s.client.Update(ctx, uid, id, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update transaction", log.FieldTransactionID, id, log.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "Transaction updated", log.FieldUserID, uid, log.FieldTransactionID, id)
	return nil
}

// RemoveTransaction deletes an entry. Removing a missing entry succeeds.
func (s *LedgerService) RemoveTransaction(ctx context.Context, id string) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, uid, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete transaction", log.FieldTransactionID, id, log.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldUserID, uid, log.FieldTransactionID, id)
	return nil
}

// Profile returns the signed-in user's profile. Concurrent misses for the
// same user share one store read.
func (s *LedgerService) Profile(ctx context.Context) (core.UserProfile, error) {
	uid, err := s.userID()
	if err != nil {
		return core.UserProfile{}, err
	}
	if p, ok := s.profiles.Get(uid); ok {
		return p, nil
	}
	v, err, _ := s.loads.Do(uid, func() (any, error) {
		p, err := s.client.ReadProfile(ctx, uid)
		if err != nil {
			return core.UserProfile{}, err
		}
		s.profiles.Set(uid, p)
		return p, nil
	})
	if err != nil {
		return core.UserProfile{}, err
	}
	return v.(core.UserProfile), nil
}

// UpdateProfile validates and stores a profile edit.
func (s *LedgerService) UpdateProfile(ctx context.Context, req ProfileRequest) (core.UserProfile, error) {
	uid, err := s.userID()
	if err != nil {
		return core.UserProfile{}, err
	}
	p, err := core.ValidateProfile(uid, req.candidate())
	if err != nil {
		return core.UserProfile{}, err
	}
	if err := s.client.WriteProfile(ctx, p); err != nil {
		s.profiles.Delete(uid)
		return core.UserProfile{}, err
	}
	s.profiles.Set(uid, p)
	s.logger.InfoContext(ctx, "Profile updated", log.FieldUserID, uid)
	return p, nil
}

// RetrySubscription re-establishes a failed ledger subscription and waits
// for it to load.
func (s *LedgerService) RetrySubscription(ctx context.Context) error {
	c, err := s.manager.Acquire()
	if err != nil {
		return err
	}
	defer s.manager.Release(c)
	if err := c.Retry(); err != nil {
		return fmt.Errorf("retry subscription: %w", err)
	}
	return c.WaitReady(ctx)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"spendmate/internal/auth"
	"spendmate/internal/backend"
	"spendmate/internal/cache"
	"spendmate/internal/config"
	"spendmate/internal/core"
	"spendmate/internal/ledger"
	"spendmate/internal/log"
	"spendmate/internal/services"
)

var commands = []subcommands.Command{
	&addCmd{},
	&editCmd{},
	&rmCmd{},
	&viewCmd{},
	&profileCmd{},
}

type app struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer
	errw   io.Writer
}

// session is a signed-in service over a freshly opened backend.
type session struct {
	svc   *services.LedgerService
	close func()
}

func (a *app) open(ctx context.Context, user string) (*session, error) {
	if user == "" {
		return nil, errors.New("-user is required")
	}
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	state := auth.NewState(a.logger)
	state.SignIn(user, "")
	client := ledger.NewClient(res.Store, a.logger)
	manager := ledger.NewManager(client, state, 0)
	profiles := cache.NewLRUCache[core.UserProfile](1, a.cfg.ProfileCacheTTL)

	return &session{
		svc: services.NewLedgerService(client, manager, state, profiles, a.logger),
		close: func() {
			manager.Close()
			if err := res.Cleanup(); err != nil {
				a.logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		},
	}, nil
}

// run opens a session for user, calls fn and maps its error to an exit
// status.
func (a *app) run(ctx context.Context, user string, fn func(*services.LedgerService) error) subcommands.ExitStatus {
	s, err := a.open(ctx, user)
	if err != nil {
		fmt.Fprintln(a.errw, err)
		return subcommands.ExitFailure
	}
	defer s.close()

	if err := fn(s.svc); err != nil {
		fmt.Fprintf(a.errw, "%s: %v\n", services.ErrorKind(err).Describe(), err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func appFrom(args []interface{}) *app {
	if len(args) == 1 {
		if a, ok := args[0].(*app); ok {
			return a
		}
	}
	panic("ledger: command executed without app")
}

// transactionFlags are the fields shared by add and edit.
type transactionFlags struct {
	user string
	req  services.TransactionRequest
}

func (t *transactionFlags) set(f *flag.FlagSet) {
	f.StringVar(&t.user, "user", "", "ID of the ledger owner.")
	f.StringVar(&t.req.Name, "name", "", "Transaction name.")
	f.StringVar(&t.req.Amount, "amount", "", "Positive amount, at most two decimals.")
	f.StringVar(&t.req.Type, "type", "", "income or expense.")
	f.StringVar(&t.req.Category, "category", "", "Category label, e.g. Food or Travel.")
	f.StringVar(&t.req.Date, "date", "", "Date as YYYY-MM-DD or an RFC 3339 instant.")
}

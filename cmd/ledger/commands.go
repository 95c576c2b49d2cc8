package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"spendmate/internal/core"
	"spendmate/internal/services"
)

type addCmd struct {
	transactionFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `ledger add -user <id> -name <name> -amount <amount> -category <category> [-type expense] [-date today]

  Validates and stores a new transaction, then prints its ID. Type defaults
  to expense and date to now.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	return a.run(ctx, c.user, func(svc *services.LedgerService) error {
		id, err := svc.AddTransaction(ctx, c.req)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, id)
		return nil
	})
}

type editCmd struct {
	transactionFlags
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change fields of a stored transaction" }
func (*editCmd) Usage() string {
	return `ledger edit -user <id> [field flags] <transaction-id>

  Replaces the given fields and keeps the others as stored.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return a.run(ctx, c.user, func(svc *services.LedgerService) error {
		return svc.EditTransaction(ctx, f.Arg(0), c.req)
	})
}

type rmCmd struct {
	user string
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete transactions" }
func (*rmCmd) Usage() string {
	return `ledger rm -user <id> <transaction-id>...

  Deletes each transaction. Unknown IDs are not an error.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "ID of the ledger owner.")
}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return a.run(ctx, c.user, func(svc *services.LedgerService) error {
		for _, id := range f.Args() {
			if err := svc.RemoveTransaction(ctx, id); err != nil {
				return fmt.Errorf("remove %s: %w", id, err)
			}
		}
		return nil
	})
}

type viewCmd struct {
	user     string
	typ      string
	period   string
	category string
	currency string
}

func (*viewCmd) Name() string     { return "view" }
func (*viewCmd) Synopsis() string { return "show balances, transactions and spending by category" }
func (*viewCmd) Usage() string {
	return `ledger view -user <id> [-type all] [-period all] [-category <label>]

  Prints the balance summary for the selection followed by the matching
  transactions and the expense total of each category.
`
}

func (c *viewCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "ID of the ledger owner.")
	f.StringVar(&c.typ, "type", "all", "Transaction type filter (all, income, expense).")
	f.StringVar(&c.period, "period", "all", "Time window (all, week, month, year).")
	f.StringVar(&c.category, "category", "", "Only transactions in this category.")
	f.StringVar(&c.currency, "currency", "", "Currency used to format amounts. Defaults to CURRENCY.")
}

func (c *viewCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	sel, err := services.ParseSelection(c.typ, c.period, c.category)
	if err != nil {
		fmt.Fprintln(a.errw, err)
		return subcommands.ExitUsageError
	}
	currency := c.currency
	if currency == "" {
		currency = a.cfg.Currency
	}
	return a.run(ctx, c.user, func(svc *services.LedgerService) error {
		view, err := svc.GetLedgerView(ctx, sel)
		if err != nil {
			return err
		}
		return printView(a, view, currency)
	})
}

func printView(a *app, view services.View, currency string) error {
	fmt.Fprintf(a.out, "Income  %s\nExpense %s\nNet     %s\n\n",
		core.FormatAmount(view.Income, currency),
		core.FormatAmount(view.Expense, currency),
		core.FormatAmount(view.Net, currency))

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tNAME\tTYPE\tCATEGORY\tAMOUNT\tID")
	for _, tx := range view.Transactions {
		date := "-"
		if !tx.Date.IsZero() {
			date = core.FormatDate(tx.Date)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", date, tx.Name, tx.Type, tx.Category, core.FormatAmount(tx.Amount, currency), tx.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(view.CategorySpending) == 0 {
		return nil
	}
	fmt.Fprintln(a.out)
	w = tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tSPENT")
	for _, ct := range view.CategorySpending {
		fmt.Fprintf(w, "%s\t%s\n", ct.Category, core.FormatAmount(ct.Total, currency))
	}
	return w.Flush()
}

type profileCmd struct {
	user string
	req  services.ProfileRequest
}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "show or update the user profile" }
func (*profileCmd) Usage() string {
	return `ledger profile -user <id> [-first <name> -last <name> -email <address> [-image <url>]]

  Without field flags prints the stored profile. With them, validates and
  stores the new profile.
`
}

func (c *profileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "ID of the ledger owner.")
	f.StringVar(&c.req.FirstName, "first", "", "First name.")
	f.StringVar(&c.req.LastName, "last", "", "Last name.")
	f.StringVar(&c.req.Email, "email", "", "Email address.")
	f.StringVar(&c.req.ProfileImage, "image", "", "Profile image URL.")
}

func (c *profileCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	return a.run(ctx, c.user, func(svc *services.LedgerService) error {
		var (
			p   core.UserProfile
			err error
		)
		if c.req == (services.ProfileRequest{}) {
			p, err = svc.Profile(ctx)
		} else {
			p, err = svc.UpdateProfile(ctx, c.req)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s <%s>\n", p.DisplayName(), p.Email)
		if p.ProfileImage != "" {
			fmt.Fprintln(a.out, p.ProfileImage)
		}
		return nil
	})
}

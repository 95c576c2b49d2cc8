// Package query holds the user's current view selection: which
// transaction type, period and category the ledger views are narrowed to.
package query

import (
	"fmt"
	"strings"
	"time"

	"spendmate/internal/core"
)

type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypeIncome  TypeFilter = "income"
	TypeExpense TypeFilter = "expense"
)

type PeriodFilter string

const (
	PeriodAll   PeriodFilter = "all"
	PeriodWeek  PeriodFilter = "week"
	PeriodMonth PeriodFilter = "month"
	PeriodYear  PeriodFilter = "year"
)

// ParseType accepts any casing; empty means all.
func ParseType(s string) (TypeFilter, error) {
	switch f := TypeFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return TypeAll, nil
	case TypeAll, TypeIncome, TypeExpense:
		return f, nil
	default:
		return "", fmt.Errorf("unknown type filter %q", s)
	}
}

// ParsePeriod accepts any casing; empty means all.
func ParsePeriod(s string) (PeriodFilter, error) {
	switch f := PeriodFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodWeek, PeriodMonth, PeriodYear:
		return f, nil
	default:
		return "", fmt.Errorf("unknown period filter %q", s)
	}
}

// Matches reports whether a transaction of type t passes the filter.
func (f TypeFilter) Matches(t core.TransactionType) bool {
	switch f {
	case TypeIncome:
		return t == core.Income
	case TypeExpense:
		return t == core.Expense
	default:
		return true
	}
}

// Contains reports whether date falls in the period ending at now. Week is
// the inclusive range from seven calendar days before now up to now; month
// and year compare calendar fields in now's location. A zero date is only
// in PeriodAll.
func (f PeriodFilter) Contains(date, now time.Time) bool {
	if f == PeriodAll || f == "" {
		return true
	}
	if date.IsZero() {
		return false
	}
	local := date.In(now.Location())
	switch f {
	case PeriodWeek:
		start := now.AddDate(0, 0, -7)
		return !local.Before(start) && !local.After(now)
	case PeriodMonth:
		return local.Year() == now.Year() && local.Month() == now.Month()
	case PeriodYear:
		return local.Year() == now.Year()
	}
	return false
}

// Selection is the active filter combination. The zero value selects
// everything.
type Selection struct {
	Type     TypeFilter
	Period   PeriodFilter
	Category string // exact label; empty for all
}

// ParseSelection builds a selection from loosely typed input such as query
// parameters.
func ParseSelection(typ, period, category string) (Selection, error) {
	t, err := ParseType(typ)
	if err != nil {
		return Selection{}, err
	}
	p, err := ParsePeriod(period)
	if err != nil {
		return Selection{}, err
	}
	category = strings.TrimSpace(category)
	if c, ok := core.LookupCategory(category); ok {
		category = c.Label
	}
	return Selection{Type: t, Period: p, Category: category}, nil
}

// MatchesCategory compares the transaction's category against the
// selection. Missing categories match Misc.
func (s Selection) MatchesCategory(category string) bool {
	if s.Category == "" {
		return true
	}
	if category == "" {
		category = core.Misc
	}
	return category == s.Category
}

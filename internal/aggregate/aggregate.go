// Package aggregate derives totals and breakdowns from a ledger snapshot.
// Every function is pure: same input, same output, no mutation.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendmate/internal/core"
	"spendmate/internal/query"
)

// Balances are the income and expense totals of a set of transactions.
type Balances struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// FilterTransactions applies the type, category and period filters in
// that order, keeping input order.
func FilterTransactions(txns []core.Transaction, sel query.Selection, now time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txns))
	for _, tx := range txns {
		if !sel.Type.Matches(tx.Type) {
			continue
		}
		if !sel.MatchesCategory(tx.Category) {
			continue
		}
		if sel.Period != query.PeriodAll && sel.Period != "" && !tx.Valid() {
			continue
		}
		if !sel.Period.Contains(tx.Date, now) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// ComputeBalances sums income and expense. Entries without a positive
// amount or a date are skipped.
func ComputeBalances(txns []core.Transaction) Balances {
	b := Balances{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txns {
		if !tx.Valid() {
			continue
		}
		switch tx.Type {
		case core.Income:
			b.Income = b.Income.Add(tx.Amount)
		case core.Expense:
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}
	b.Net = b.Income.Sub(b.Expense)
	return b
}

// ComputeCategorySpending groups expenses by category, largest first.
// Categories with equal totals keep the order they were first seen in.
// Missing and unknown categories count as Misc.
func ComputeCategorySpending(txns []core.Transaction) []CategoryTotal {
	totals := []CategoryTotal{}
	pos := map[string]int{}
	for _, tx := range txns {
		if tx.Type != core.Expense || !tx.Valid() {
			continue
		}
		cat := core.AggregationCategory(tx.Category)
		i, ok := pos[cat]
		if !ok {
			i = len(totals)
			pos[cat] = i
			totals = append(totals, CategoryTotal{Category: cat, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(tx.Amount)
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total.GreaterThan(totals[j].Total)
	})
	return totals
}

// SortByDate returns a chronological copy. Equal dates keep input order.
func SortByDate(txns []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

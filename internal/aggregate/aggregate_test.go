package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"spendmate/internal/core"
	"spendmate/internal/query"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func tx(id, amount string, typ core.TransactionType, category string, date time.Time) core.Transaction {
	return core.Transaction{
		ID:       id,
		Name:     id,
		Amount:   decimal.RequireFromString(amount),
		Type:     typ,
		Category: category,
		Date:     date,
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBalancesScenario(t *testing.T) {
	txns := []core.Transaction{
		tx("salary", "100.00", core.Income, "Job", now.AddDate(0, 0, -1)),
		tx("groceries", "40.00", core.Expense, "Grocery", now.AddDate(0, 0, -2)),
	}
	got := ComputeBalances(txns)
	want := Balances{Income: d("100.00"), Expense: d("40.00"), Net: d("60.00")}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("balances mismatch (-want +got):\n%s", diff)
	}
}

func TestNetIsIncomeMinusExpense(t *testing.T) {
	sets := [][]core.Transaction{
		nil,
		{tx("a", "0.01", core.Expense, "Misc", now)},
		{tx("a", "19.99", core.Income, "Job", now), tx("b", "20.00", core.Expense, "Dining", now), tx("c", "0.02", core.Income, "Job", now)},
	}
	for i, txns := range sets {
		b := ComputeBalances(txns)
		if !b.Net.Equal(b.Income.Sub(b.Expense)) {
			t.Fatalf("set %d: net %s != %s - %s", i, b.Net, b.Income, b.Expense)
		}
	}
}

func TestCategorySpendingScenario(t *testing.T) {
	txns := []core.Transaction{
		tx("1", "12.50", core.Expense, "Dining", now),
		tx("2", "30.00", core.Expense, "Travel", now),
		tx("3", "12.25", core.Expense, "Dining", now),
	}
	want := []CategoryTotal{
		{Category: "Travel", Total: d("30.00")},
		{Category: "Dining", Total: d("24.75")},
	}
	got := ComputeCategorySpending(txns)
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("spending mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(got, ComputeCategorySpending(txns), decimalEqual); diff != "" {
		t.Fatalf("spending not idempotent:\n%s", diff)
	}
}

func TestCategorySpendingCoercionAndTies(t *testing.T) {
	txns := []core.Transaction{
		tx("1", "5.00", core.Expense, "Grocery", now),
		tx("2", "3.00", core.Expense, "", now),
		tx("3", "2.00", core.Expense, "Rent", now),
		tx("4", "5.00", core.Expense, "Job", now),
		tx("5", "500.00", core.Income, "Job", now),
		{ID: "6", Type: core.Expense, Category: "Dining", Date: now},
	}
	want := []CategoryTotal{
		{Category: "Grocery", Total: d("5.00")},
		{Category: core.Misc, Total: d("5.00")},
		{Category: "Job", Total: d("5.00")},
	}
	if diff := cmp.Diff(want, ComputeCategorySpending(txns), decimalEqual); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if got := ComputeCategorySpending(nil); got == nil || len(got) != 0 {
		t.Fatalf("empty input should give an empty list, got %#v", got)
	}
}

func TestBalancesSkipInvalid(t *testing.T) {
	txns := []core.Transaction{
		tx("ok", "10.00", core.Expense, "Misc", now),
		{ID: "noamount", Type: core.Expense, Date: now},
		{ID: "nodate", Type: core.Income, Amount: d("99")},
	}
	b := ComputeBalances(txns)
	if !b.Expense.Equal(d("10")) || !b.Income.IsZero() {
		t.Fatalf("invalid entries counted: %+v", b)
	}
}

func TestFilterTransactions(t *testing.T) {
	txns := []core.Transaction{
		tx("recent-dining", "10", core.Expense, "Dining", now.AddDate(0, 0, -1)),
		tx("week-edge", "10", core.Expense, "Travel", now.AddDate(0, 0, -7)),
		tx("eight-days", "10", core.Expense, "Travel", now.AddDate(0, 0, -8)),
		tx("salary", "100", core.Income, "Job", now.AddDate(0, 0, -3)),
		tx("last-year", "10", core.Expense, "Dining", now.AddDate(-1, 0, 0)),
		{ID: "undated", Name: "undated", Amount: d("1"), Type: core.Expense, Category: "Misc"},
	}
	ids := func(list []core.Transaction) []string {
		out := []string{}
		for _, t := range list {
			out = append(out, t.ID)
		}
		return out
	}

	cases := []struct {
		name string
		sel  query.Selection
		want []string
	}{
		{"all", query.Selection{}, []string{"recent-dining", "week-edge", "eight-days", "salary", "last-year", "undated"}},
		{"week", query.Selection{Period: query.PeriodWeek}, []string{"recent-dining", "week-edge", "salary"}},
		{"expense month", query.Selection{Type: query.TypeExpense, Period: query.PeriodMonth}, []string{"recent-dining", "week-edge", "eight-days"}},
		{"income", query.Selection{Type: query.TypeIncome}, []string{"salary"}},
		{"dining year", query.Selection{Category: "Dining", Period: query.PeriodYear}, []string{"recent-dining"}},
		{"misc all keeps undated", query.Selection{Category: "Misc"}, []string{"undated"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ids(FilterTransactions(txns, tc.sel, now))); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortByDate(t *testing.T) {
	txns := []core.Transaction{
		tx("c", "1", core.Expense, "Misc", now),
		tx("a", "1", core.Expense, "Misc", now.AddDate(0, 0, -2)),
		tx("b", "1", core.Expense, "Misc", now),
	}
	sorted := SortByDate(txns)
	if sorted[0].ID != "a" || sorted[1].ID != "c" || sorted[2].ID != "b" {
		t.Fatalf("unexpected order %v %v %v", sorted[0].ID, sorted[1].ID, sorted[2].ID)
	}
	if txns[0].ID != "c" {
		t.Fatal("SortByDate mutated its input")
	}
}

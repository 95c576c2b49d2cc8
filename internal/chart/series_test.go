package chart

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"spendmate/internal/core"
)

func tx(amount string, typ core.TransactionType, date time.Time) core.Transaction {
	return core.Transaction{Amount: decimal.RequireFromString(amount), Type: typ, Date: date}
}

func TestEmptySeries(t *testing.T) {
	for name, s := range map[string]Series{"line": Line(nil), "bar": Bar([]core.Transaction{})} {
		if s.Labels == nil || s.Values == nil || s.Len() != 0 {
			t.Fatalf("%s: expected empty non-nil series, got %#v", name, s)
		}
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != `{"labels":[],"values":[]}` {
			t.Fatalf("%s: unexpected JSON %s", name, b)
		}
	}
}

func TestLineAndBar(t *testing.T) {
	txns := []core.Transaction{
		tx("100.00", core.Income, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)),
		tx("40.50", core.Expense, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)),
		{Type: core.Expense, Date: time.Date(2025, 1, 16, 9, 0, 0, 0, time.UTC)},
		{Type: core.Income, Amount: decimal.NewFromInt(5)},
	}

	line := Line(txns)
	want := Series{Labels: []string{"Jan 2", "Jan 15"}, Values: []float64{100, 40.5}}
	if diff := cmp.Diff(want, line); diff != "" {
		t.Fatalf("line mismatch (-want +got):\n%s", diff)
	}

	bar := Bar(txns)
	want.Values = []float64{100, -40.5}
	if diff := cmp.Diff(want, bar); diff != "" {
		t.Fatalf("bar mismatch (-want +got):\n%s", diff)
	}
}

package google

import (
	"spendmate/internal/aggregate"
	"spendmate/internal/core"
	"spendmate/internal/sheets"
)

var header = []any{"Date", "Name", "Type", "Category", "Amount", "Id"}

// ledgerRows lays out a snapshot as sheet rows: a header, one row per
// transaction oldest first, a blank row, then income, expense and net.
// Entries without a date sort first and show an empty date cell.
func ledgerRows(snap sheets.Snapshot) [][]any {
	txns := aggregate.SortByDate(snap.Transactions)
	rows := make([][]any, 0, len(txns)+5)
	rows = append(rows, header)
	for _, tx := range txns {
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}
		category := tx.Category
		if category == "" {
			category = core.Misc
		}
		rows = append(rows, []any{date, tx.Name, string(tx.Type), category, core.FormatDecimal(tx.Amount), tx.ID})
	}

	b := aggregate.ComputeBalances(txns)
	rows = append(rows,
		[]any{},
		[]any{"", "", "", "Income", core.FormatDecimal(b.Income)},
		[]any{"", "", "", "Expense", core.FormatDecimal(b.Expense)},
		[]any{"", "", "", "Net", core.FormatDecimal(b.Net)},
	)
	return rows
}

// Package chart turns transactions into label/value series for plotting.
package chart

import (
	"spendmate/internal/core"
)

// LabelLayout renders dates as short month-day labels.
const LabelLayout = "Jan 2"

// Series is a chart-ready pair of parallel slices. Both are empty, never
// nil, when there is nothing to plot.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Line plots unsigned amounts in input order. Callers wanting a timeline
// pass transactions sorted by date.
func Line(txns []core.Transaction) Series {
	return build(txns, func(tx core.Transaction) float64 {
		return tx.Amount.InexactFloat64()
	})
}

// Bar plots income as positive and expense as negative values.
func Bar(txns []core.Transaction) Series {
	return build(txns, func(tx core.Transaction) float64 {
		return tx.Signed().InexactFloat64()
	})
}

func build(txns []core.Transaction, value func(core.Transaction) float64) Series {
	s := Series{Labels: []string{}, Values: []float64{}}
	for _, tx := range txns {
		if !tx.Valid() {
			continue
		}
		s.Labels = append(s.Labels, tx.Date.Format(LabelLayout))
		s.Values = append(s.Values, value(tx))
	}
	return s
}

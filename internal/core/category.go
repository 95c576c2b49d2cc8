package core

import "strings"

// Category couples a label with the icon shown next to it.
type Category struct {
	Label string
	Icon  string
}

// Misc is the fallback bucket for missing or unknown categories.
const Misc = "Misc"

var categories = []Category{
	{Label: "Grocery", Icon: "food"},
	{Label: "Dining", Icon: "spoon-and-fork"},
	{Label: "Travel", Icon: "car-speed"},
	{Label: "Job", Icon: "suitcase"},
	{Label: Misc, Icon: "calculate"},
}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// LookupCategory finds a known category by label, ignoring case.
func LookupCategory(label string) (Category, bool) {
	label = strings.TrimSpace(label)
	for _, c := range categories {
		if strings.EqualFold(c.Label, label) {
			return c, true
		}
	}
	return Category{}, false
}

// IconFor returns the icon for a category, falling back to the Misc icon.
func IconFor(label string) string {
	if c, ok := LookupCategory(label); ok {
		return c.Icon
	}
	c, _ := LookupCategory(Misc)
	return c.Icon
}

// AggregationCategory is the bucket a transaction's spending is counted
// under: the canonical known label, or Misc.
func AggregationCategory(label string) string {
	if c, ok := LookupCategory(label); ok {
		return c.Label
	}
	return Misc
}

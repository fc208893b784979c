package domain

import "strings"

// CatalogueEntry is one immutable row of the ecoinvent reference
// dataset, owned and served read-only by the catalogue store (C2).
type CatalogueEntry struct {
	UUID           string
	ActivityName   string
	ProductName    string
	Geography      string
	Unit           string
	Amount         int // signed reference-product amount, see SPEC_FULL.md §4.5
	BiogenicFactor float64
	CommonFactor   float64
	IsMarket       bool
	SearchableText string
}

// IsMarketActivity reports whether an activity name identifies one of
// ecoinvent's synthetic market aggregation rows, which are excluded
// from search and rejected as a match target.
func IsMarketActivity(activityName string) bool {
	lower := strings.ToLower(strings.TrimSpace(activityName))
	return strings.HasPrefix(lower, "market for") || strings.HasPrefix(lower, "market group")
}

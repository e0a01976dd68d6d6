package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolveTierRate returns the rate of the highest tier whose threshold is at
// or below revenue. Tiers need not be sorted. No qualifying tier means zero.
func ResolveTierRate(revenue decimal.Decimal, tiers []Tier) decimal.Decimal {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold.GreaterThan(sorted[j].Threshold)
	})

	for _, t := range sorted {
		if revenue.GreaterThanOrEqual(t.Threshold) {
			return t.Rate
		}
	}
	return decimal.Zero
}

package commission

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// DebtResolution is the outcome of matching a payment against debt windows.
type DebtResolution struct {
	Modifier decimal.Decimal
	Status   string
	// Matched is true when a configured window covered the payment date.
	Matched bool
}

// ResolveDebtModifier finds the first window, ascending by DaysEnd, whose
// deadline (end of the order month + DaysEnd days) is on or after the
// payment date.
//
// When no window covers the payment the modifier is zero. The status is the
// latest rule's own status if that rule is itself a zero-modifier rule,
// otherwise "0%". Matched stays false in both cases so callers can tell a
// late payment apart from an explicit zero window.
func ResolveDebtModifier(orderDate, paymentDate generic.TimePoint, rules []DebtRule) DebtResolution {
	sorted := make([]DebtRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DaysEnd < sorted[j].DaysEnd
	})

	endOfMonth := orderDate.EndOfMonth()
	for _, rule := range sorted {
		deadline := endOfMonth.AddDays(rule.DaysEnd)
		if paymentDate.BeforeOrEqual(deadline) {
			return DebtResolution{Modifier: rule.Modifier, Status: rule.Status, Matched: true}
		}
	}

	if n := len(sorted); n > 0 && sorted[n-1].Modifier.IsZero() {
		return DebtResolution{Modifier: decimal.Zero, Status: sorted[n-1].Status}
	}
	return DebtResolution{Modifier: decimal.Zero, Status: StatusNoModifier}
}

package commission

import "github.com/shopspring/decimal"

// Adjustment is a manual correction entered by a reviewer for one bucket.
type Adjustment struct {
	Amount decimal.Decimal
	Notes  string
}

// ApplyAdjustments returns a new report with adjustments overlaid. Each
// adjusted bucket gets FinalCommission = BaseCommission + TotalBonus +
// Adjustment, and the summary's TotalCommission is re-summed. Buckets
// without an entry keep a zero adjustment. The input report is not modified.
func ApplyAdjustments(report Report, adjustments map[MonthKey]Adjustment) Report {
	byRep := make([]RepMonthSummary, len(report.ByRep))
	total := decimal.Zero

	for i, r := range report.ByRep {
		r.Sales = append([]SaleDetail(nil), r.Sales...)
		if adj, ok := adjustments[r.Key]; ok {
			r.Adjustment = adj.Amount
			r.Notes = adj.Notes
		}
		r.FinalCommission = r.BaseCommission.Add(r.TotalBonus).Add(r.Adjustment)
		total = total.Add(r.FinalCommission)
		byRep[i] = r
	}

	summary := report.Summary
	summary.TotalCommission = total
	return Report{Summary: summary, ByRep: byRep}
}

package commission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
)

func TestApplyAdjustments(t *testing.T) {
	// GIVEN: Two buckets, each earning 700,000 base commission
	// WHEN: One bucket receives a -200,000 adjustment with a note
	// THEN: Only that bucket's final changes; the summary total is re-summed

	sales := []commission.SaleRecord{
		sale("An", "C1", "Máy", "S-1", "70000000", date(2025, time.March, 3)),
		sale("Bình", "C2", "Máy", "S-2", "70000000", date(2025, time.March, 3)),
	}
	report := commission.Calculate(sales, noBonusPolicy())
	require.Len(t, report.ByRep, 2)

	adjusted := commission.ApplyAdjustments(report, map[commission.MonthKey]commission.Adjustment{
		monthKey("An", 2025, time.March): {Amount: dec("-200000"), Notes: "returned unit"},
	})

	an, ok := adjusted.Find(monthKey("An", 2025, time.March))
	require.True(t, ok)
	assertDecimal(t, "-200000", an.Adjustment)
	assert.Equal(t, "returned unit", an.Notes)
	assertDecimal(t, "500000", an.FinalCommission)

	binh, ok := adjusted.Find(monthKey("Bình", 2025, time.March))
	require.True(t, ok)
	assert.True(t, binh.Adjustment.IsZero())
	assertDecimal(t, "700000", binh.FinalCommission)

	assertDecimal(t, "1200000", adjusted.Summary.TotalCommission)
}

func TestApplyAdjustments_LeavesInputUntouched(t *testing.T) {
	report := commission.Calculate([]commission.SaleRecord{
		sale("An", "C1", "Máy", "S-1", "70000000", date(2025, time.March, 3)),
	}, noBonusPolicy())

	commission.ApplyAdjustments(report, map[commission.MonthKey]commission.Adjustment{
		monthKey("An", 2025, time.March): {Amount: dec("100")},
	})

	assert.True(t, report.ByRep[0].Adjustment.IsZero())
	assertDecimal(t, "700000", report.Summary.TotalCommission)
}

func TestApplyAdjustments_UnknownKeyIgnored(t *testing.T) {
	report := commission.Calculate([]commission.SaleRecord{
		sale("An", "C1", "Máy", "S-1", "70000000", date(2025, time.March, 3)),
	}, noBonusPolicy())

	adjusted := commission.ApplyAdjustments(report, map[commission.MonthKey]commission.Adjustment{
		monthKey("An", 2025, time.April): {Amount: dec("100")},
	})

	assertDecimal(t, "700000", adjusted.Summary.TotalCommission)
}

func TestApplyAdjustments_ReplacesPreviousAdjustment(t *testing.T) {
	report := commission.Calculate([]commission.SaleRecord{
		sale("An", "C1", "Máy", "S-1", "70000000", date(2025, time.March, 3)),
	}, noBonusPolicy())
	key := monthKey("An", 2025, time.March)

	once := commission.ApplyAdjustments(report, map[commission.MonthKey]commission.Adjustment{key: {Amount: dec("100")}})
	twice := commission.ApplyAdjustments(once, map[commission.MonthKey]commission.Adjustment{key: {Amount: dec("50")}})

	assertDecimal(t, "700050", twice.ByRep[0].FinalCommission)
}

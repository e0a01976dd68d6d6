package commission_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func datePtr(year int, month time.Month, day int) *generic.TimePoint {
	d := date(year, month, day)
	return &d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// sale builds a paid standard sale on the order date; tweak fields as needed.
func sale(rep, customer, product, sku string, total string, ordered generic.TimePoint) commission.SaleRecord {
	paid := ordered
	return commission.SaleRecord{
		ProductName:    product,
		SKU:            sku,
		CustomerName:   customer,
		InvoiceID:      "HD-" + sku,
		OrderDate:      ordered,
		PaymentDate:    &paid,
		Quantity:       1,
		UnitPrice:      dec(total),
		Total:          dec(total),
		Representative: rep,
	}
}

func unpaid(s commission.SaleRecord) commission.SaleRecord {
	s.PaymentDate = nil
	return s
}

func paidOn(s commission.SaleRecord, p generic.TimePoint) commission.SaleRecord {
	s.PaymentDate = &p
	return s
}

func monthKey(rep string, year int, month time.Month) commission.MonthKey {
	return commission.MonthKey{Representative: rep, Period: generic.YearMonth{Year: year, Month: month}}
}

// testPolicy mirrors the shipped default policy.
func testPolicy() commission.Policy {
	return commission.Policy{
		RevenueTiers: []commission.Tier{
			{ID: "t1", Threshold: dec("60000000"), Rate: dec("0.01")},
			{ID: "t2", Threshold: dec("250000000"), Rate: dec("0.013")},
			{ID: "t3", Threshold: dec("500000000"), Rate: dec("0.016")},
			{ID: "t4", Threshold: dec("700000000"), Rate: dec("0.018")},
			{ID: "t5", Threshold: dec("1000000000"), Rate: dec("0.02")},
			{ID: "t6", Threshold: dec("1250000000"), Rate: dec("0.025")},
			{ID: "t7", Threshold: dec("1450000000"), Rate: dec("0.03")},
		},
		DebtModifiers: []commission.DebtRule{
			{ID: "d1", DaysEnd: 4, Modifier: dec("1"), Status: "100%"},
			{ID: "d2", DaysEnd: 10, Modifier: dec("0.85"), Status: "85%"},
			{ID: "d3", DaysEnd: 30, Modifier: dec("0.7"), Status: "70%"},
			{ID: "d4", DaysEnd: 60, Modifier: dec("0"), Status: "0%"},
		},
		HospitalChannel: commission.HospitalChannel{
			RateMultiplier:   dec("0.8"),
			CustomerKeywords: []string{"bệnh viện", "bv."},
		},
		ImportedEquipment: commission.FlatRateCategory{
			Rate:            dec("0.1"),
			ProductKeywords: []string{"nhập khẩu"},
			SKUPrefixes:     []string{"NK-"},
		},
		CommercialEquipment: commission.FlatRateCategory{
			Rate:            dec("0.3"),
			ProductKeywords: []string{"thương mại"},
			SKUPrefixes:     []string{"TM-"},
		},
		Bonuses: commission.Bonuses{
			NewCustomer: commission.NewCustomerRule{Amount: dec("500000"), MinOrderValue: dec("10000000")},
			FitMe:       commission.UnitBonusRule{AmountPerUnit: dec("500000"), ProductKeywords: []string{"fitme"}},
		},
		NonCommissionable: commission.ExclusionRules{SKUContains: []string{"OSTEO"}},
	}
}

// noBonusPolicy is testPolicy with bonuses switched off, so commission
// assertions aren't muddied by first-order bonuses.
func noBonusPolicy() commission.Policy {
	p := testPolicy()
	p.Bonuses = commission.Bonuses{}
	return p
}

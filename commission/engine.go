/*
engine.go - Representative-month aggregation and the two-pass tier rate

PURPOSE:
  Calculate is the only entry point of the engine. It partitions sales into
  representative-month buckets, classifies every sale, resolves one tier
  rate per bucket, and rolls the buckets up into the report summary.

PASS ORDERING:
  The tier rate depends on the bucket's total standard + hospital revenue,
  which is only known after every sale in the bucket has been classified.
  So each bucket runs:
    1. classifyBucket: classify all sales, accumulate revenue, flat-rate
       commission and bonuses
    2. ResolveTierRate on the pass-1 tiered revenue
    3. applyTierRate: build updated details for tiered sales
  Pass 2 never observes a partially classified bucket.

SHARED PRECOMPUTATION:
  The customer first-order index spans the entire input and is built once,
  before any bucket is processed.

SUMMARY:
  Revenue, debt and line counts are derived from the sale lists directly;
  commission and bonus totals come from the buckets.
*/
package commission

import (
	"github.com/shopspring/decimal"
)

// Calculate builds a commission report from scratch.
func Calculate(sales []SaleRecord, policy Policy) Report {
	firstOrders := IndexFirstOrders(sales)
	buckets := groupByRepMonth(sales)

	byRep := make([]RepMonthSummary, 0, len(buckets))
	for _, b := range buckets {
		byRep = append(byRep, summarizeBucket(b, policy, firstOrders))
	}

	return Report{
		Summary: summarize(sales, byRep),
		ByRep:   byRep,
	}
}

// =============================================================================
// GROUPING
// =============================================================================

type bucket struct {
	key   MonthKey
	sales []SaleRecord
}

// KeyFor returns the bucket a sale belongs to.
func KeyFor(sale SaleRecord) MonthKey {
	rep := sale.Representative
	if rep == "" {
		rep = HouseRepresentative
	}
	return MonthKey{Representative: rep, Period: sale.OrderDate.YearMonth()}
}

// groupByRepMonth drops non-positive totals and keeps buckets in order of
// first appearance.
func groupByRepMonth(sales []SaleRecord) []*bucket {
	var ordered []*bucket
	index := make(map[MonthKey]*bucket)

	for _, s := range sales {
		if !s.Total.IsPositive() {
			continue
		}
		k := KeyFor(s)
		b, ok := index[k]
		if !ok {
			b = &bucket{key: k}
			index[k] = b
			ordered = append(ordered, b)
		}
		b.sales = append(b.sales, s)
	}
	return ordered
}

// =============================================================================
// PASS 1 - Classification
// =============================================================================

type bucketTally struct {
	details               []SaleDetail
	revenue               decimal.Decimal
	debt                  decimal.Decimal
	commissionableRevenue decimal.Decimal
	tieredRevenue         decimal.Decimal
	flatRateCommission    decimal.Decimal
	unitBonus             decimal.Decimal
	newCustomerBonus      decimal.Decimal
}

func classifyBucket(sales []SaleRecord, policy Policy, firstOrders FirstOrderIndex) bucketTally {
	t := bucketTally{details: make([]SaleDetail, 0, len(sales))}

	for _, sale := range sales {
		detail := Classify(sale, policy)
		t.details = append(t.details, detail)

		if detail.Category == CategoryUnpaid {
			t.debt = t.debt.Add(sale.Total)
			continue
		}

		t.revenue = t.revenue.Add(sale.Total)
		t.unitBonus = t.unitBonus.Add(UnitBonus(sale, policy.Bonuses.FitMe))
		t.newCustomerBonus = t.newCustomerBonus.Add(NewCustomerBonus(sale, policy.Bonuses.NewCustomer, firstOrders))

		switch {
		case detail.Category.Tiered():
			t.commissionableRevenue = t.commissionableRevenue.Add(detail.CommissionableAmount)
			t.tieredRevenue = t.tieredRevenue.Add(detail.CommissionableAmount)
		case detail.IsCommissionable:
			t.commissionableRevenue = t.commissionableRevenue.Add(detail.CommissionableAmount)
			t.flatRateCommission = t.flatRateCommission.Add(detail.CommissionEarned)
		}
	}
	return t
}

// =============================================================================
// PASS 2 - Tier rate application
// =============================================================================

// applyTierRate returns a new detail slice where every tiered sale carries
// its commission at rate. Other details are copied unchanged.
func applyTierRate(details []SaleDetail, rate decimal.Decimal, hospital HospitalChannel) ([]SaleDetail, decimal.Decimal) {
	updated := make([]SaleDetail, len(details))
	total := decimal.Zero

	for i, d := range details {
		if d.Category.Tiered() && d.IsCommissionable {
			base := d.CommissionableAmount.Mul(rate)
			if d.Category == CategoryHospital {
				base = base.Mul(hospital.RateMultiplier)
			}
			d.CommissionEarned = base.Mul(d.DebtModifier)
			total = total.Add(d.CommissionEarned)
		}
		updated[i] = d
	}
	return updated, total
}

// =============================================================================
// BUCKET + REPORT TOTALS
// =============================================================================

func summarizeBucket(b *bucket, policy Policy, firstOrders FirstOrderIndex) RepMonthSummary {
	tally := classifyBucket(b.sales, policy, firstOrders)
	rate := ResolveTierRate(tally.tieredRevenue, policy.RevenueTiers)
	details, tieredCommission := applyTierRate(tally.details, rate, policy.HospitalChannel)

	totalBonus := tally.unitBonus.Add(tally.newCustomerBonus)
	base := tieredCommission.Add(tally.flatRateCommission)

	return RepMonthSummary{
		Key:                   b.key,
		TotalRevenue:          tally.revenue,
		CommissionableRevenue: tally.commissionableRevenue,
		TotalDebt:             tally.debt,
		CommissionRate:        rate,
		BaseCommission:        base,
		UnitBonus:             tally.unitBonus,
		NewCustomerBonus:      tally.newCustomerBonus,
		TotalBonus:            totalBonus,
		FinalCommission:       base.Add(totalBonus),
		Sales:                 details,
		Adjustment:            decimal.Zero,
	}
}

func summarize(sales []SaleRecord, byRep []RepMonthSummary) Summary {
	s := Summary{SalesRecordCount: len(sales)}

	for _, sale := range sales {
		s.TotalRevenueAllLines = s.TotalRevenueAllLines.Add(sale.Total)
		if !sale.IsPaid() {
			s.TotalDebt = s.TotalDebt.Add(sale.Total)
		}
	}

	for _, r := range byRep {
		for _, d := range r.Sales {
			s.TotalCommissionableRevenue = s.TotalCommissionableRevenue.Add(d.CommissionableAmount)
			if d.IsPaid() {
				s.TotalRevenue = s.TotalRevenue.Add(d.Total)
				s.PaidInvoiceCount++
			}
		}
		s.TotalCommission = s.TotalCommission.Add(r.FinalCommission)
		s.TotalBonus = s.TotalBonus.Add(r.TotalBonus)
	}
	return s
}

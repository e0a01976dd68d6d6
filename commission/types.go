/*
Package commission computes sales-commission payouts from a ledger of sale
transactions under a configurable commission policy.

PURPOSE:
  This is the engine. Calculate turns (sales, policy) into a Report. It is a
  pure function: no I/O, no logging, no shared state between calls. Calling
  it twice with the same input yields the same report.

KEY CONCEPTS IN THIS FILE (types.go):
  - SaleRecord: One immutable transaction line from the ingested file
  - Policy: Revenue tiers, debt windows, channel/category overrides, bonuses
  - SaleDetail: A sale after classification, with the commission it earned
  - RepMonthSummary: One representative's totals for one calendar month
  - Report: The whole-report summary plus every representative-month bucket

DESIGN PRINCIPLES:
  1. Precision: All money and rates are decimal.Decimal
  2. Degrade, don't fail: Empty tiers give a zero rate, empty debt rules give
     a zero modifier, empty keyword lists match nothing
  3. Explicit keys: Buckets are keyed by MonthKey, a comparable struct, so a
     separator character inside a representative's name can't collide

SEE ALSO:
  - engine.go: Calculate and the two-pass aggregation
  - classify.go: Category precedence
  - debt.go, tiers.go, bonus.go: Rate and bonus resolution
  - adjust.go: Manual adjustment overlay
*/
package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// HouseRepresentative receives sales that carry no representative name.
const HouseRepresentative = "Công ty"

// =============================================================================
// INPUT - Sale records
// =============================================================================

// SaleRecord is one transaction line. PaymentDate is nil while unpaid.
type SaleRecord struct {
	ProductName    string
	SKU            string
	CustomerName   string
	InvoiceID      string
	OrderDate      generic.TimePoint
	PaymentDate    *generic.TimePoint
	Quantity       int
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	Representative string
}

func (s SaleRecord) IsPaid() bool { return s.PaymentDate != nil }

// =============================================================================
// POLICY - Pure configuration, no behavior
// =============================================================================

// Tier maps a revenue threshold to a commission rate.
type Tier struct {
	ID        string
	Threshold decimal.Decimal
	Rate      decimal.Decimal
}

// DebtRule earns Modifier when payment lands within DaysEnd days after the
// end of the order's month.
type DebtRule struct {
	ID       string
	DaysEnd  int
	Modifier decimal.Decimal
	Status   string
}

type HospitalChannel struct {
	RateMultiplier   decimal.Decimal
	CustomerKeywords []string
}

// FlatRateCategory bypasses the tier system.
type FlatRateCategory struct {
	Rate            decimal.Decimal
	ProductKeywords []string
	SKUPrefixes     []string
}

type NewCustomerRule struct {
	Amount        decimal.Decimal
	MinOrderValue decimal.Decimal
}

// UnitBonusRule pays a fixed amount per unit of a promoted product line.
type UnitBonusRule struct {
	AmountPerUnit   decimal.Decimal
	ProductKeywords []string
}

type Bonuses struct {
	NewCustomer NewCustomerRule
	FitMe       UnitBonusRule
}

type ExclusionRules struct {
	SKUContains []string
}

type Policy struct {
	RevenueTiers        []Tier
	DebtModifiers       []DebtRule
	HospitalChannel     HospitalChannel
	ImportedEquipment   FlatRateCategory
	CommercialEquipment FlatRateCategory
	Bonuses             Bonuses
	NonCommissionable   ExclusionRules
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Category is the single commission category assigned to a sale.
type Category string

const (
	CategoryUnpaid     Category = "unpaid"
	CategoryExcluded   Category = "excluded"
	CategoryImported   Category = "imported_equipment"
	CategoryCommercial Category = "commercial_equipment"
	CategoryHospital   Category = "hospital_channel"
	CategoryStandard   Category = "standard"
)

// Tiered reports whether the category is paid at the bucket's tier rate.
func (c Category) Tiered() bool {
	return c == CategoryStandard || c == CategoryHospital
}

// Debt status labels the engine assigns on its own.
const (
	StatusUnpaid        = "unpaid"
	StatusNotApplicable = "N/A"
	StatusFullyPaid     = "100%"
	StatusNoModifier    = "0%"
)

// SaleDetail is a sale extended with its classification outcome.
type SaleDetail struct {
	SaleRecord

	Category             Category
	IsCommissionable     bool
	CommissionableAmount decimal.Decimal
	DebtStatus           string
	DebtModifier         decimal.Decimal
	// DebtRuleMatched is false when the modifier came from the fallback
	// rather than from a configured debt window.
	DebtRuleMatched  bool
	CommissionEarned decimal.Decimal
	Rule             string
}

// =============================================================================
// OUTPUT - Report
// =============================================================================

// MonthKey identifies a representative-month bucket.
type MonthKey struct {
	Representative string
	Period         generic.YearMonth
}

func (k MonthKey) String() string { return k.Representative + " " + k.Period.String() }

// RepMonthSummary aggregates one representative's sales for one month.
// Adjustment and Notes belong to the editor; the engine leaves them zero.
type RepMonthSummary struct {
	Key                   MonthKey
	TotalRevenue          decimal.Decimal
	CommissionableRevenue decimal.Decimal
	TotalDebt             decimal.Decimal
	CommissionRate        decimal.Decimal
	BaseCommission        decimal.Decimal
	UnitBonus             decimal.Decimal
	NewCustomerBonus      decimal.Decimal
	TotalBonus            decimal.Decimal
	FinalCommission       decimal.Decimal
	Sales                 []SaleDetail
	Adjustment            decimal.Decimal
	Notes                 string
}

type Summary struct {
	TotalRevenue               decimal.Decimal
	TotalCommissionableRevenue decimal.Decimal
	TotalCommission            decimal.Decimal
	TotalBonus                 decimal.Decimal
	SalesRecordCount           int
	PaidInvoiceCount           int
	TotalRevenueAllLines       decimal.Decimal
	TotalDebt                  decimal.Decimal
}

type Report struct {
	Summary Summary
	ByRep   []RepMonthSummary
}

// Find returns the bucket for key, if present.
func (r Report) Find(key MonthKey) (RepMonthSummary, bool) {
	for _, s := range r.ByRep {
		if s.Key == key {
			return s, true
		}
	}
	return RepMonthSummary{}, false
}

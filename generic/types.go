/*
Package generic provides the domain-agnostic building blocks of the
commission service.

PURPOSE:
  This package holds the pieces every other package leans on but that carry
  no commission rules themselves: calendar arithmetic, identifiers, decimal
  helpers, sentinel errors, and the persistence contract.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: Type-safe IDs for policies and uploads
  - Decimal helpers: Parsing and percentage formatting for money and rates

DESIGN PRINCIPLES:
  1. Precision: Money and rates use decimal.Decimal to avoid floating-point drift
  2. Type Safety: Strong typing for IDs prevents mixing policy/upload IDs
  3. Purity: Nothing here performs I/O

SEE ALSO:
  - time.go: TimePoint, YearMonth and end-of-month arithmetic
  - store.go: Persistence interfaces
  - errors.go: Sentinel errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PolicyID string
type UploadID string

// ActivePolicyID is the single policy slot edited by the policy editor.
const ActivePolicyID PolicyID = "active"

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

// Percent renders a fractional rate as a percentage number: 0.013 -> "1.3".
func Percent(rate decimal.Decimal) string {
	return rate.Mul(hundred).String()
}

// Sum adds a list of decimals.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

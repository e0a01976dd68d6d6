package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// FirstOrderIndex maps each customer to the earliest order date seen
// anywhere in the input, regardless of representative or month.
type FirstOrderIndex map[string]generic.TimePoint

// IndexFirstOrders scans every sale once. Sales without a customer name
// are ignored.
func IndexFirstOrders(sales []SaleRecord) FirstOrderIndex {
	idx := make(FirstOrderIndex)
	for _, s := range sales {
		if s.CustomerName == "" {
			continue
		}
		if first, ok := idx[s.CustomerName]; !ok || s.OrderDate.Before(first) {
			idx[s.CustomerName] = s.OrderDate
		}
	}
	return idx
}

// IsFirstOrder reports whether the sale is dated on its customer's first
// order day. Every sale on that day qualifies.
func (idx FirstOrderIndex) IsFirstOrder(sale SaleRecord) bool {
	first, ok := idx[sale.CustomerName]
	return ok && first.Equal(sale.OrderDate)
}

// UnitBonus pays AmountPerUnit for each unit of a promoted product.
func UnitBonus(sale SaleRecord, rule UnitBonusRule) decimal.Decimal {
	if !containsKeyword(sale.ProductName, rule.ProductKeywords) {
		return decimal.Zero
	}
	return rule.AmountPerUnit.Mul(decimal.NewFromInt(int64(sale.Quantity)))
}

// NewCustomerBonus pays the fixed amount for a customer's first-day order
// when the order meets the minimum value.
func NewCustomerBonus(sale SaleRecord, rule NewCustomerRule, idx FirstOrderIndex) decimal.Decimal {
	if !idx.IsFirstOrder(sale) || sale.Total.LessThan(rule.MinOrderValue) {
		return decimal.Zero
	}
	return rule.Amount
}

package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// Rule labels attached to sale details.
const (
	RuleUnpaid   = "unpaid"
	RuleStandard = "standard"
)

// Classify assigns a sale its single category. First match wins:
//
//  1. unpaid      - no payment date
//  2. excluded    - SKU contains an exclusion keyword
//  3. imported    - flat rate, commission computed here
//  4. commercial  - flat rate, commission computed here
//  5. hospital / standard - commission deferred to the bucket's tier rate
//
// Tiered sales leave CommissionEarned at zero; see applyTierRate.
func Classify(sale SaleRecord, policy Policy) SaleDetail {
	if !sale.IsPaid() {
		return SaleDetail{
			SaleRecord:           sale,
			Category:             CategoryUnpaid,
			CommissionableAmount: decimal.Zero,
			DebtStatus:           StatusUnpaid,
			DebtModifier:         decimal.Zero,
			CommissionEarned:     decimal.Zero,
			Rule:                 RuleUnpaid,
		}
	}

	if kw, ok := MatchKeyword(sale.SKU, policy.NonCommissionable.SKUContains); ok {
		return SaleDetail{
			SaleRecord:           sale,
			Category:             CategoryExcluded,
			CommissionableAmount: decimal.Zero,
			DebtStatus:           StatusNotApplicable,
			DebtModifier:         decimal.Zero,
			CommissionEarned:     decimal.Zero,
			Rule:                 fmt.Sprintf("excluded SKU (%s)", kw),
		}
	}

	if policy.ImportedEquipment.Matches(sale.ProductName, sale.SKU) {
		return flatRateDetail(sale, policy, CategoryImported, policy.ImportedEquipment.Rate,
			fmt.Sprintf("imported equipment (%s%%)", generic.Percent(policy.ImportedEquipment.Rate)))
	}

	if policy.CommercialEquipment.Matches(sale.ProductName, sale.SKU) {
		return flatRateDetail(sale, policy, CategoryCommercial, policy.CommercialEquipment.Rate,
			fmt.Sprintf("commercial equipment (%s%%)", generic.Percent(policy.CommercialEquipment.Rate)))
	}

	detail := SaleDetail{
		SaleRecord:           sale,
		Category:             CategoryStandard,
		IsCommissionable:     true,
		CommissionableAmount: sale.Total,
		CommissionEarned:     decimal.Zero,
		Rule:                 RuleStandard,
	}

	// Hospital receivables count as fully collected whatever the payment timing.
	if containsKeyword(sale.CustomerName, policy.HospitalChannel.CustomerKeywords) {
		detail.Category = CategoryHospital
		detail.DebtModifier = decimal.NewFromInt(1)
		detail.DebtStatus = StatusFullyPaid
		detail.DebtRuleMatched = true
		detail.Rule = hospitalRule(policy.HospitalChannel)
		return detail
	}

	debt := ResolveDebtModifier(sale.OrderDate, *sale.PaymentDate, policy.DebtModifiers)
	detail.DebtModifier = debt.Modifier
	detail.DebtStatus = debt.Status
	detail.DebtRuleMatched = debt.Matched
	return detail
}

func flatRateDetail(sale SaleRecord, policy Policy, category Category, rate decimal.Decimal, rule string) SaleDetail {
	debt := ResolveDebtModifier(sale.OrderDate, *sale.PaymentDate, policy.DebtModifiers)
	return SaleDetail{
		SaleRecord:           sale,
		Category:             category,
		IsCommissionable:     true,
		CommissionableAmount: sale.Total,
		DebtStatus:           debt.Status,
		DebtModifier:         debt.Modifier,
		DebtRuleMatched:      debt.Matched,
		CommissionEarned:     sale.Total.Mul(rate).Mul(debt.Modifier),
		Rule:                 rule,
	}
}

func hospitalRule(h HospitalChannel) string {
	return fmt.Sprintf("hospital channel (%s%% of standard)", generic.Percent(h.RateMultiplier))
}

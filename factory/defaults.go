package factory

import "github.com/warp/commission-engine/commission"

// =============================================================================
// DEFAULT POLICY
// =============================================================================
//
// The policy a fresh installation starts from, and the one the policy
// editor resets to. Amounts are in VND.

// DefaultPolicyJSON returns the default policy document.
func DefaultPolicyJSON() PolicyJSON {
	return PolicyJSON{
		RevenueTiers: []TierJSON{
			{ID: "tier-1", Threshold: 60_000_000, Rate: 0.01},
			{ID: "tier-2", Threshold: 250_000_000, Rate: 0.013},
			{ID: "tier-3", Threshold: 500_000_000, Rate: 0.016},
			{ID: "tier-4", Threshold: 700_000_000, Rate: 0.018},
			{ID: "tier-5", Threshold: 1_000_000_000, Rate: 0.02},
			{ID: "tier-6", Threshold: 1_250_000_000, Rate: 0.025},
			{ID: "tier-7", Threshold: 1_450_000_000, Rate: 0.03},
		},
		DebtModifiers: []DebtRuleJSON{
			{ID: "debt-1", DaysEnd: 4, Modifier: 1, Status: "100%"},
			{ID: "debt-2", DaysEnd: 10, Modifier: 0.85, Status: "85%"},
			{ID: "debt-3", DaysEnd: 30, Modifier: 0.7, Status: "70%"},
			{ID: "debt-4", DaysEnd: 60, Modifier: 0, Status: "0%"},
		},
		HospitalChannel: HospitalChannelJSON{
			RateMultiplier:   0.8,
			CustomerKeywords: []string{"bệnh viện", "bv."},
		},
		ImportedEquipment: FlatRateCategoryJSON{
			Rate:            0.1,
			ProductKeywords: []string{"nhập khẩu"},
			SKUPrefixes:     []string{"NK-"},
		},
		CommercialEquipment: FlatRateCategoryJSON{
			Rate:            0.3,
			ProductKeywords: []string{"thương mại"},
			SKUPrefixes:     []string{"TM-"},
		},
		Bonuses: BonusesJSON{
			NewCustomer: NewCustomerJSON{Amount: 500_000, MinOrderValue: 10_000_000},
			FitMe: UnitBonusJSON{
				AmountPerUnit:   500_000,
				ProductKeywords: []string{"fitme"},
			},
		},
		NonCommissionable: NonCommissionableJSON{
			SKUContains: []string{"OSTEO"},
		},
	}
}

// DefaultPolicy returns the default policy ready for the engine.
func DefaultPolicy() commission.Policy {
	return NewPolicyFactory().FromJSON(DefaultPolicyJSON())
}

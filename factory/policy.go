/*
Package factory provides policy document to Go policy conversion.

PURPOSE:
  Converts JSON, YAML and HJSON policy documents into commission.Policy
  values. This enables policy configuration without code changes - the
  sales office can edit tiers, debt windows and keyword lists in a file or
  through the policy editor, and the factory creates the proper Go structs.

DOCUMENT SCHEMA (JSON; YAML and HJSON use the same keys):
  {
    "revenue_tiers": [{"id": "t1", "threshold": 60000000, "rate": 0.01}],
    "debt_modifiers": [{"id": "d1", "days_end": 4, "modifier": 1, "status": "100%"}],
    "hospital_channel": {"rate_multiplier": 0.8, "customer_keywords": ["bệnh viện"]},
    "imported_equipment": {"rate": 0.1, "product_keywords": ["nhập khẩu"], "sku_prefixes": ["NK-"]},
    "commercial_equipment": {"rate": 0.3, "product_keywords": ["thương mại"], "sku_prefixes": ["TM-"]},
    "bonuses": {
      "new_customer": {"amount": 500000, "min_order_value": 10000000},
      "fitme": {"amount_per_unit": 500000, "product_keywords": ["fitme"]}
    },
    "non_commissionable_rules": {"sku_contains": ["OSTEO"]}
  }

VALIDATION:
  Validate is the policy editor's gate: rates and modifiers in [0, 1],
  non-negative thresholds, amounts and day counts. The engine never calls
  it; Calculate degrades gracefully on whatever it is handed.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.LoadPolicyFile("policy.yaml")
  report := commission.Calculate(sales, policy)

SEE ALSO:
  - defaults.go: The shipped default policy
  - commission/types.go: Policy type definition
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hjson/hjson-go/v4"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// PolicyJSON is the document representation of a commission policy.
type PolicyJSON struct {
	RevenueTiers        []TierJSON            `json:"revenue_tiers" yaml:"revenue_tiers" validate:"dive"`
	DebtModifiers       []DebtRuleJSON        `json:"debt_modifiers" yaml:"debt_modifiers" validate:"dive"`
	HospitalChannel     HospitalChannelJSON   `json:"hospital_channel" yaml:"hospital_channel"`
	ImportedEquipment   FlatRateCategoryJSON  `json:"imported_equipment" yaml:"imported_equipment"`
	CommercialEquipment FlatRateCategoryJSON  `json:"commercial_equipment" yaml:"commercial_equipment"`
	Bonuses             BonusesJSON           `json:"bonuses" yaml:"bonuses"`
	NonCommissionable   NonCommissionableJSON `json:"non_commissionable_rules" yaml:"non_commissionable_rules"`
}

// TierJSON is one revenue tier.
type TierJSON struct {
	ID        string  `json:"id" yaml:"id"`
	Threshold float64 `json:"threshold" yaml:"threshold" validate:"gte=0"`
	Rate      float64 `json:"rate" yaml:"rate" validate:"gte=0,lte=1"`
}

// DebtRuleJSON is one payment-timeliness window.
type DebtRuleJSON struct {
	ID       string  `json:"id" yaml:"id"`
	DaysEnd  int     `json:"days_end" yaml:"days_end" validate:"gte=0"`
	Modifier float64 `json:"modifier" yaml:"modifier" validate:"gte=0,lte=1"`
	Status   string  `json:"status" yaml:"status" validate:"required"`
}

type HospitalChannelJSON struct {
	RateMultiplier   float64  `json:"rate_multiplier" yaml:"rate_multiplier" validate:"gte=0"`
	CustomerKeywords []string `json:"customer_keywords" yaml:"customer_keywords"`
}

type FlatRateCategoryJSON struct {
	Rate            float64  `json:"rate" yaml:"rate" validate:"gte=0,lte=1"`
	ProductKeywords []string `json:"product_keywords" yaml:"product_keywords"`
	SKUPrefixes     []string `json:"sku_prefixes" yaml:"sku_prefixes"`
}

type BonusesJSON struct {
	NewCustomer NewCustomerJSON `json:"new_customer" yaml:"new_customer"`
	FitMe       UnitBonusJSON   `json:"fitme" yaml:"fitme"`
}

type NewCustomerJSON struct {
	Amount        float64 `json:"amount" yaml:"amount" validate:"gte=0"`
	MinOrderValue float64 `json:"min_order_value" yaml:"min_order_value" validate:"gte=0"`
}

type UnitBonusJSON struct {
	AmountPerUnit   float64  `json:"amount_per_unit" yaml:"amount_per_unit" validate:"gte=0"`
	ProductKeywords []string `json:"product_keywords" yaml:"product_keywords"`
}

type NonCommissionableJSON struct {
	SKUContains []string `json:"sku_contains" yaml:"sku_contains"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts policy documents to commission policies.
type PolicyFactory struct {
	validate *validator.Validate
}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	v := validator.New()
	// Report fields by their document key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PolicyFactory{validate: v}
}

// ParsePolicy parses and validates a JSON policy document.
func (f *PolicyFactory) ParsePolicy(data []byte) (commission.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return commission.Policy{}, malformed("JSON", err)
	}
	return f.build(pj)
}

// ParsePolicyYAML parses and validates a YAML policy document.
func (f *PolicyFactory) ParsePolicyYAML(data []byte) (commission.Policy, error) {
	var pj PolicyJSON
	if err := yaml.Unmarshal(data, &pj); err != nil {
		return commission.Policy{}, malformed("YAML", err)
	}
	return f.build(pj)
}

// ParsePolicyHJSON parses and validates a hand-edited HJSON document, which
// allows comments and unquoted keys.
func (f *PolicyFactory) ParsePolicyHJSON(data []byte) (commission.Policy, error) {
	var pj PolicyJSON
	if err := hjson.Unmarshal(data, &pj); err != nil {
		return commission.Policy{}, malformed("HJSON", err)
	}
	return f.build(pj)
}

// LoadPolicyFile reads a policy document, choosing the format from the file
// extension (.json, .yaml/.yml, .hjson).
func (f *PolicyFactory) LoadPolicyFile(path string) (commission.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return commission.Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return f.ParsePolicy(data)
	case ".yaml", ".yml":
		return f.ParsePolicyYAML(data)
	case ".hjson":
		return f.ParsePolicyHJSON(data)
	default:
		return commission.Policy{}, fmt.Errorf("%w: unsupported policy file extension %q", generic.ErrInvalidPolicy, filepath.Ext(path))
	}
}

func (f *PolicyFactory) build(pj PolicyJSON) (commission.Policy, error) {
	if err := f.Validate(pj); err != nil {
		return commission.Policy{}, err
	}
	return f.FromJSON(pj), nil
}

func malformed(format string, err error) error {
	return fmt.Errorf("%w: parse policy %s: %v", generic.ErrInvalidPolicy, format, err)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks a policy document's field ranges. The returned error is a
// *generic.ValidationError wrapping generic.ErrInvalidPolicy.
func (f *PolicyFactory) Validate(pj PolicyJSON) error {
	err := f.validate.Struct(pj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", generic.ErrInvalidPolicy, err)
	}

	out := &generic.ValidationError{Kind: generic.ErrInvalidPolicy}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, generic.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "PolicyJSON.revenue_tiers[0].rate"
// becomes "revenue_tiers[0].rate".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "required":
		return "is required"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// =============================================================================
// CONVERSION
// =============================================================================

// FromJSON converts a document to a commission.Policy without validating it.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) commission.Policy {
	policy := commission.Policy{
		HospitalChannel: commission.HospitalChannel{
			RateMultiplier:   decimal.NewFromFloat(pj.HospitalChannel.RateMultiplier),
			CustomerKeywords: cloneStrings(pj.HospitalChannel.CustomerKeywords),
		},
		ImportedEquipment:   parseFlatRate(pj.ImportedEquipment),
		CommercialEquipment: parseFlatRate(pj.CommercialEquipment),
		Bonuses: commission.Bonuses{
			NewCustomer: commission.NewCustomerRule{
				Amount:        decimal.NewFromFloat(pj.Bonuses.NewCustomer.Amount),
				MinOrderValue: decimal.NewFromFloat(pj.Bonuses.NewCustomer.MinOrderValue),
			},
			FitMe: commission.UnitBonusRule{
				AmountPerUnit:   decimal.NewFromFloat(pj.Bonuses.FitMe.AmountPerUnit),
				ProductKeywords: cloneStrings(pj.Bonuses.FitMe.ProductKeywords),
			},
		},
		NonCommissionable: commission.ExclusionRules{
			SKUContains: cloneStrings(pj.NonCommissionable.SKUContains),
		},
	}

	for i, t := range pj.RevenueTiers {
		policy.RevenueTiers = append(policy.RevenueTiers, commission.Tier{
			ID:        orDefaultID(t.ID, "tier", i),
			Threshold: decimal.NewFromFloat(t.Threshold),
			Rate:      decimal.NewFromFloat(t.Rate),
		})
	}

	for i, d := range pj.DebtModifiers {
		policy.DebtModifiers = append(policy.DebtModifiers, commission.DebtRule{
			ID:       orDefaultID(d.ID, "debt", i),
			DaysEnd:  d.DaysEnd,
			Modifier: decimal.NewFromFloat(d.Modifier),
			Status:   d.Status,
		})
	}

	return policy
}

// ToJSON converts a commission.Policy back to its document form.
func (f *PolicyFactory) ToJSON(policy commission.Policy) PolicyJSON {
	pj := PolicyJSON{
		RevenueTiers:  []TierJSON{},
		DebtModifiers: []DebtRuleJSON{},
		HospitalChannel: HospitalChannelJSON{
			RateMultiplier:   policy.HospitalChannel.RateMultiplier.InexactFloat64(),
			CustomerKeywords: nonNil(policy.HospitalChannel.CustomerKeywords),
		},
		ImportedEquipment:   toFlatRateJSON(policy.ImportedEquipment),
		CommercialEquipment: toFlatRateJSON(policy.CommercialEquipment),
		Bonuses: BonusesJSON{
			NewCustomer: NewCustomerJSON{
				Amount:        policy.Bonuses.NewCustomer.Amount.InexactFloat64(),
				MinOrderValue: policy.Bonuses.NewCustomer.MinOrderValue.InexactFloat64(),
			},
			FitMe: UnitBonusJSON{
				AmountPerUnit:   policy.Bonuses.FitMe.AmountPerUnit.InexactFloat64(),
				ProductKeywords: nonNil(policy.Bonuses.FitMe.ProductKeywords),
			},
		},
		NonCommissionable: NonCommissionableJSON{
			SKUContains: nonNil(policy.NonCommissionable.SKUContains),
		},
	}

	for _, t := range policy.RevenueTiers {
		pj.RevenueTiers = append(pj.RevenueTiers, TierJSON{
			ID:        t.ID,
			Threshold: t.Threshold.InexactFloat64(),
			Rate:      t.Rate.InexactFloat64(),
		})
	}
	for _, d := range policy.DebtModifiers {
		pj.DebtModifiers = append(pj.DebtModifiers, DebtRuleJSON{
			ID:       d.ID,
			DaysEnd:  d.DaysEnd,
			Modifier: d.Modifier.InexactFloat64(),
			Status:   d.Status,
		})
	}
	return pj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseFlatRate(c FlatRateCategoryJSON) commission.FlatRateCategory {
	return commission.FlatRateCategory{
		Rate:            decimal.NewFromFloat(c.Rate),
		ProductKeywords: cloneStrings(c.ProductKeywords),
		SKUPrefixes:     cloneStrings(c.SKUPrefixes),
	}
}

func toFlatRateJSON(c commission.FlatRateCategory) FlatRateCategoryJSON {
	return FlatRateCategoryJSON{
		Rate:            c.Rate.InexactFloat64(),
		ProductKeywords: nonNil(c.ProductKeywords),
		SKUPrefixes:     nonNil(c.SKUPrefixes),
	}
}

func orDefaultID(id, prefix string, i int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", prefix, i+1)
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

// nonNil keeps empty lists as [] rather than null in documents.
func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}

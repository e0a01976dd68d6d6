package factory_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
	"gopkg.in/yaml.v3"
)

func TestDefaultPolicy(t *testing.T) {
	p := factory.DefaultPolicy()

	require.Len(t, p.RevenueTiers, 7)
	assert.True(t, p.RevenueTiers[0].Threshold.Equal(decimal.NewFromInt(60000000)))
	assert.True(t, p.RevenueTiers[1].Rate.Equal(decimal.RequireFromString("0.013")))
	assert.True(t, p.RevenueTiers[6].Rate.Equal(decimal.RequireFromString("0.03")))

	require.Len(t, p.DebtModifiers, 4)
	assert.Equal(t, 60, p.DebtModifiers[3].DaysEnd)
	assert.True(t, p.DebtModifiers[1].Modifier.Equal(decimal.RequireFromString("0.85")))

	assert.True(t, p.HospitalChannel.RateMultiplier.Equal(decimal.RequireFromString("0.8")))
	assert.Equal(t, []string{"NK-"}, p.ImportedEquipment.SKUPrefixes)
	assert.Equal(t, []string{"TM-"}, p.CommercialEquipment.SKUPrefixes)
	assert.Equal(t, []string{"OSTEO"}, p.NonCommissionable.SKUContains)
	assert.True(t, p.Bonuses.NewCustomer.Amount.Equal(decimal.NewFromInt(500000)))
}

func TestDefaultPolicyJSON_IsValid(t *testing.T) {
	assert.NoError(t, factory.NewPolicyFactory().Validate(factory.DefaultPolicyJSON()))
}

func TestParsePolicy_JSONRoundTrip(t *testing.T) {
	// GIVEN: The default policy serialized to JSON
	// WHEN: Parsing it back and converting to a document again
	// THEN: The document is unchanged

	f := factory.NewPolicyFactory()
	data, err := json.Marshal(factory.DefaultPolicyJSON())
	require.NoError(t, err)

	policy, err := f.ParsePolicy(data)
	require.NoError(t, err)

	assert.Equal(t, factory.DefaultPolicyJSON(), f.ToJSON(policy))
}

func TestParsePolicyYAML(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.LoadPolicyFile(filepath.Join("testdata", "policy.yaml"))
	require.NoError(t, err)

	require.Len(t, policy.RevenueTiers, 2)
	assert.Equal(t, "senior", policy.RevenueTiers[1].ID)
	assert.True(t, policy.RevenueTiers[0].Rate.Equal(decimal.RequireFromString("0.012")))
	assert.Equal(t, "50%", policy.DebtModifiers[1].Status)
	assert.Equal(t, []string{"OSTEO", "DEMO"}, policy.NonCommissionable.SKUContains)
	assert.Empty(t, policy.ImportedEquipment.ProductKeywords)
}

func TestParsePolicyHJSON(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.LoadPolicyFile(filepath.Join("testdata", "policy.hjson"))
	require.NoError(t, err)

	require.Len(t, policy.RevenueTiers, 1)
	assert.True(t, policy.RevenueTiers[0].Rate.Equal(decimal.RequireFromString("0.015")))
	assert.Equal(t, 365, policy.DebtModifiers[0].DaysEnd)
}

func TestParsePolicyYAML_MatchesJSON(t *testing.T) {
	f := factory.NewPolicyFactory()
	data, err := yaml.Marshal(factory.DefaultPolicyJSON())
	require.NoError(t, err)

	policy, err := f.ParsePolicyYAML(data)
	require.NoError(t, err)

	assert.Equal(t, factory.DefaultPolicyJSON(), f.ToJSON(policy))
}

func TestParsePolicy_Malformed(t *testing.T) {
	_, err := factory.NewPolicyFactory().ParsePolicy([]byte(`{"revenue_tiers": [`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrInvalidPolicy))
	assert.True(t, generic.IsClientError(err))
}

func TestValidate_RejectsOutOfRangeFields(t *testing.T) {
	// GIVEN: A policy with a rate above 1, a negative threshold and a rule
	//        without a status
	// WHEN: Validating
	// THEN: Every offending field is reported by its document path

	pj := factory.DefaultPolicyJSON()
	pj.RevenueTiers[0].Rate = 1.5
	pj.RevenueTiers[2].Threshold = -1
	pj.DebtModifiers[1].Status = ""
	pj.ImportedEquipment.Rate = -0.1

	err := factory.NewPolicyFactory().Validate(pj)
	require.Error(t, err)

	var verr *generic.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, generic.ErrInvalidPolicy))

	fields := map[string]string{}
	for _, fe := range verr.Fields {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "must be at most 1", fields["revenue_tiers[0].rate"])
	assert.Equal(t, "must be at least 0", fields["revenue_tiers[2].threshold"])
	assert.Equal(t, "is required", fields["debt_modifiers[1].status"])
	assert.Equal(t, "must be at least 0", fields["imported_equipment.rate"])
	assert.Len(t, verr.Fields, 4)
}

func TestValidate_EmptyPolicyIsAccepted(t *testing.T) {
	// Empty lists are legal; the engine degrades to zero rate and modifier.
	assert.NoError(t, factory.NewPolicyFactory().Validate(factory.PolicyJSON{}))
}

func TestFromJSON_FillsMissingIDs(t *testing.T) {
	pj := factory.PolicyJSON{
		RevenueTiers:  []factory.TierJSON{{Threshold: 1, Rate: 0.1}},
		DebtModifiers: []factory.DebtRuleJSON{{DaysEnd: 1, Modifier: 1, Status: "ok"}},
	}

	p := factory.NewPolicyFactory().FromJSON(pj)

	assert.Equal(t, "tier-1", p.RevenueTiers[0].ID)
	assert.Equal(t, "debt-1", p.DebtModifiers[0].ID)
}

func TestLoadPolicyFile_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.xml")
	require.NoError(t, os.WriteFile(path, []byte("<policy/>"), 0o600))

	_, err := factory.NewPolicyFactory().LoadPolicyFile(path)

	assert.True(t, errors.Is(err, generic.ErrInvalidPolicy))
}

func TestLoadPolicyFile_Missing(t *testing.T) {
	_, err := factory.NewPolicyFactory().LoadPolicyFile(filepath.Join(t.TempDir(), "nope.json"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

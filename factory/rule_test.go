package factory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

func TestParseRulePercentage(t *testing.T) {
	f := NewRuleFactory()

	// GIVEN a percentage rule in its JSON persistence form
	rule, err := f.ParseRule(`{
		"id": "standard-5pct",
		"tenant_id": "acme",
		"name": "Standard 5%",
		"rule_type": "percentage",
		"base_percentage": "5",
		"minimum_sales": "10000.00",
		"is_active": true
	}`)

	// THEN the typed form carries the rate and cliff
	require.NoError(t, err)
	assert.Equal(t, commission.RuleID("standard-5pct"), rule.ID)
	assert.Equal(t, commission.RulePercentage, rule.Type())
	terms := rule.Terms.(commission.PercentageTerms)
	assert.True(t, decimal.NewFromInt(5).Equal(terms.Rate))
	assert.True(t, decimal.RequireFromString("10000.00").Equal(terms.MinimumSales))
	assert.True(t, rule.IsActive)
}

func TestParseRuleFixedReadsBasePercentageAsAmount(t *testing.T) {
	f := NewRuleFactory()

	// GIVEN a fixed rule using the base_percentage column for its payout
	rule, err := f.ParseRule(`{
		"id": "flat-750",
		"tenant_id": "acme",
		"rule_type": "fixed",
		"base_percentage": "750.00",
		"minimum_sales": "5000.00"
	}`)

	// THEN the typed form is an Amount, not a rate
	require.NoError(t, err)
	terms := rule.Terms.(commission.FixedAmountTerms)
	assert.True(t, decimal.RequireFromString("750.00").Equal(terms.Amount))
}

func TestParseRuleTieredSortsBeforeValidating(t *testing.T) {
	f := NewRuleFactory()

	// GIVEN tiers persisted out of order
	rule, err := f.ParseRule(`{
		"id": "tiered-q1",
		"tenant_id": "acme",
		"rule_type": "tiered",
		"tiers": [
			{"min_sales": "100000", "percentage": "7"},
			{"min_sales": "0", "percentage": "3"},
			{"min_sales": "50000", "percentage": "5"}
		]
	}`)

	// THEN the rule parses with tiers ascending
	require.NoError(t, err)
	terms := rule.Terms.(commission.TieredTerms)
	require.Len(t, terms.Tiers, 3)
	assert.True(t, terms.Tiers[0].MinSales.IsZero())
	assert.True(t, decimal.NewFromInt(100000).Equal(terms.Tiers[2].MinSales))
}

func TestParseRuleRejectsBadConfig(t *testing.T) {
	f := NewRuleFactory()

	// Unknown type tag surfaces as the typed configuration error, so a
	// bad tag read back from storage is not an undifferentiated failure.
	_, err := f.ParseRule(`{"id": "x", "rule_type": "lottery"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrInvalidRule)

	_, err = ParseTermsConfig("lottery", "{}")
	assert.ErrorIs(t, err, commission.ErrInvalidRule)

	// Duplicate tier boundaries survive sorting and must fail validation.
	_, err = f.ParseRule(`{
		"id": "dupes",
		"rule_type": "tiered",
		"tiers": [
			{"min_sales": "50000", "percentage": "5"},
			{"min_sales": "50000", "percentage": "7"}
		]
	}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrInvalidRule)

	// Negative rate.
	_, err = f.ParseRule(`{"id": "neg", "rule_type": "percentage", "base_percentage": "-1"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrInvalidRule)
}

func TestTermsConfigRoundTrip(t *testing.T) {
	original := commission.TieredTerms{Tiers: []commission.Tier{
		{MinSales: decimal.Zero, Rate: decimal.NewFromInt(3)},
		{MinSales: decimal.NewFromInt(50000), Rate: decimal.NewFromInt(5)},
	}}

	// WHEN storing and reloading the config column form
	cfg, err := TermsConfigJSON(original)
	require.NoError(t, err)
	parsed, err := ParseTermsConfig("tiered", cfg)
	require.NoError(t, err)

	// THEN the typed terms survive
	terms := parsed.(commission.TieredTerms)
	require.Len(t, terms.Tiers, 2)
	assert.True(t, terms.Tiers[1].Rate.Equal(decimal.NewFromInt(5)))
}

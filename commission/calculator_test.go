package commission

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func salesOf(total string) PeriodSales {
	return PeriodSales{
		TenantID:   "tenant-1",
		AgentID:    "agent-1",
		Period:     MonthPeriod(2026, time.March),
		TotalSales: dec(total),
		OrderCount: 1,
	}
}

func percentageRule(rate, minimum string) *Rule {
	return &Rule{
		ID:       "rule-pct",
		TenantID: "tenant-1",
		Name:     "Standard Percentage",
		Terms:    PercentageTerms{Rate: dec(rate), MinimumSales: dec(minimum)},
		IsActive: true,
	}
}

func TestCalculatePercentage(t *testing.T) {
	// GIVEN a 5% rule with no minimum
	rule := percentageRule("5", "0")

	// WHEN calculating over 10,000.00 in sales
	amount, err := Calculate(salesOf("10000.00"), rule)

	// THEN the commission is exactly 500.00
	require.NoError(t, err)
	assert.True(t, dec("500.00").Equal(amount), "got %s", amount)
}

func TestCalculatePercentageRoundsHalfUp(t *testing.T) {
	// GIVEN a rate that lands exactly on a half cent
	rule := percentageRule("0.125", "0")

	// WHEN 100.00 * 0.125% = 0.125
	amount, err := Calculate(salesOf("100.00"), rule)

	// THEN the half cent rounds up, not to even
	require.NoError(t, err)
	assert.True(t, dec("0.13").Equal(amount), "got %s", amount)
}

func TestCalculateMinimumSalesIsACliff(t *testing.T) {
	rule := percentageRule("10", "10000.00")

	// GIVEN sales one cent below the threshold
	below, err := Calculate(salesOf("9999.99"), rule)
	require.NoError(t, err)

	// THEN the commission is exactly zero - no phase-in
	assert.True(t, below.IsZero(), "got %s", below)

	// AND exactly at the threshold the full rate applies
	at, err := Calculate(salesOf("10000.00"), rule)
	require.NoError(t, err)
	assert.True(t, dec("1000.00").Equal(at), "got %s", at)
}

func TestCalculateNoRuleYieldsZero(t *testing.T) {
	// GIVEN no applicable rule
	amount, err := Calculate(salesOf("50000.00"), nil)

	// THEN the outcome is zero without error
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestCalculateFixedAmount(t *testing.T) {
	rule := &Rule{
		ID:       "rule-fixed",
		TenantID: "tenant-1",
		Terms:    FixedAmountTerms{Amount: dec("750.00"), MinimumSales: dec("5000.00")},
	}

	// Below the cliff: zero.
	amount, err := Calculate(salesOf("4999.99"), rule)
	require.NoError(t, err)
	assert.True(t, amount.IsZero())

	// At or above: the flat amount regardless of how far above.
	amount, err = Calculate(salesOf("5000.00"), rule)
	require.NoError(t, err)
	assert.True(t, dec("750.00").Equal(amount))

	amount, err = Calculate(salesOf("900000.00"), rule)
	require.NoError(t, err)
	assert.True(t, dec("750.00").Equal(amount))
}

func TestCalculateVolumeBonus(t *testing.T) {
	// GIVEN a volume bonus of 2% above 20,000
	rule := &Rule{
		ID:       "rule-vol",
		TenantID: "tenant-1",
		Terms:    VolumeBonusTerms{Rate: dec("2"), MinimumSales: dec("20000.00")},
	}

	// WHEN sales clear the threshold
	amount, err := Calculate(salesOf("25000.00"), rule)

	// THEN the bonus applies to the whole total
	require.NoError(t, err)
	assert.True(t, dec("500.00").Equal(amount), "got %s", amount)
}

func tieredRule() *Rule {
	return &Rule{
		ID:       "rule-tiered",
		TenantID: "tenant-1",
		Terms: TieredTerms{Tiers: []Tier{
			{MinSales: dec("0"), Rate: dec("3")},
			{MinSales: dec("50000"), Rate: dec("5")},
			{MinSales: dec("100000"), Rate: dec("7")},
			{MinSales: dec("200000"), Rate: dec("10")},
		}},
	}
}

func TestCalculateTieredSingleTierAppliesToWholeTotal(t *testing.T) {
	rule := tieredRule()

	cases := []struct {
		total string
		want  string
	}{
		{"0", "0.00"},           // lowest boundary is 0, 3% of 0
		{"49999.99", "1500.00"}, // 3% tier, just under the next boundary
		{"50000.00", "2500.00"}, // 5% tier starts exactly at its boundary
		{"99999.99", "5000.00"}, // still the 5% tier - NOT marginal brackets
		{"100000.00", "7000.00"},
		{"125000.00", "8750.00"},
		{"200000.00", "20000.00"},
	}
	for _, tc := range cases {
		amount, err := Calculate(salesOf(tc.total), rule)
		require.NoError(t, err, "total %s", tc.total)
		assert.True(t, dec(tc.want).Equal(amount),
			"total %s: want %s, got %s", tc.total, tc.want, amount)
	}
}

func TestCalculateTieredBelowLowestBoundary(t *testing.T) {
	// GIVEN tiers whose lowest boundary is above zero
	rule := &Rule{
		ID:       "rule-tiered-floor",
		TenantID: "tenant-1",
		Terms: TieredTerms{Tiers: []Tier{
			{MinSales: dec("10000"), Rate: dec("4")},
		}},
	}

	// WHEN sales sit below every boundary
	amount, err := Calculate(salesOf("9999.99"), rule)

	// THEN no tier matches and the commission is zero
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestCalculateInvalidRuleSurfacesError(t *testing.T) {
	// GIVEN a rule with no terms at all
	rule := &Rule{ID: "rule-broken", TenantID: "tenant-1"}

	// WHEN calculating
	_, err := Calculate(salesOf("10000.00"), rule)

	// THEN the configuration error surfaces - never a silent zero
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	// AND unordered tiers are rejected the same way
	bad := &Rule{
		ID:       "rule-unordered",
		TenantID: "tenant-1",
		Terms: TieredTerms{Tiers: []Tier{
			{MinSales: dec("50000"), Rate: dec("5")},
			{MinSales: dec("50000"), Rate: dec("7")},
		}},
	}
	_, err = Calculate(salesOf("10000.00"), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

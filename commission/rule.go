/*
rule.go - Commission rule definitions

PURPOSE:
  Defines tenant-scoped commission rules as a tagged union: one Terms
  variant per rule type, each carrying only the fields it needs. Legacy
  rule rows model rule_type as a free-text tag with per-type field
  reinterpretation (base_percentage doubling as a flat amount for fixed
  rules); the typed variants make that overloading unrepresentable.

RULE TYPES:
  percentage:   rate% of total sales once a minimum-sales cliff is met
  volume_based: identical math to percentage; a distinct type so bonus
                layers can be selected and reported separately
  fixed:        a flat amount once the cliff is met
  tiered:       the single highest tier whose boundary is met sets the
                rate for the ENTIRE period total (no marginal brackets)

VALIDATION:
  Terms are validated once, when a rule is constructed or parsed from its
  JSON persistence form (see factory package) - not re-checked ad hoc on
  every calculation. Tiers must be non-empty, ascending by boundary, with
  no duplicate boundaries.

SEE ALSO:
  - calculator.go: Applies a rule to a PeriodSales
  - selection.go: Chooses which rule applies to an agent
  - factory/rule.go: JSON persistence form → typed Rule
*/
package commission

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULE TYPES
// =============================================================================

type RuleType string

const (
	RulePercentage  RuleType = "percentage"
	RuleTiered      RuleType = "tiered"
	RuleFixed       RuleType = "fixed"
	RuleVolumeBased RuleType = "volume_based"
)

// =============================================================================
// RULE - Tenant-scoped rule with typed terms
// =============================================================================

// Rule is a tenant-defined commission rule. Terms carries the per-type
// configuration; the surrounding fields are selection metadata.
//
// Rules are never deleted while a Commission references them;
// deactivation clears IsActive.
type Rule struct {
	ID       RuleID
	TenantID TenantID
	Name     string
	Terms    Terms

	// IsActive governs eligibility for automatic selection, not mutual
	// exclusivity; a tenant may have several active rules at once.
	IsActive bool

	CreatedAt time.Time
}

// Type returns the discriminator of the rule's terms, or "" if unset.
func (r Rule) Type() RuleType {
	if r.Terms == nil {
		return ""
	}
	return r.Terms.Type()
}

// Validate checks the rule is applicable: terms present and well-formed.
func (r Rule) Validate() error {
	if r.Terms == nil {
		return &InvalidRuleError{RuleID: r.ID, Reason: "missing terms"}
	}
	if err := r.Terms.Validate(); err != nil {
		return &InvalidRuleError{RuleID: r.ID, Reason: err.Error()}
	}
	return nil
}

// Terms is the tagged union of per-type rule configuration.
type Terms interface {
	Type() RuleType
	Validate() error
}

// =============================================================================
// TERMS VARIANTS
// =============================================================================

// PercentageTerms pays Rate% of the period's total sales, with a cliff:
// totals below MinimumSales earn exactly zero (no phase-in).
type PercentageTerms struct {
	Rate         decimal.Decimal // Percent, e.g. 5 means 5%.
	MinimumSales decimal.Decimal
}

func (t PercentageTerms) Type() RuleType { return RulePercentage }

func (t PercentageTerms) Validate() error {
	if t.Rate.IsNegative() {
		return fmt.Errorf("percentage rate must not be negative")
	}
	if t.MinimumSales.IsNegative() {
		return fmt.Errorf("minimum sales must not be negative")
	}
	return nil
}

// VolumeBonusTerms is computed exactly like PercentageTerms but represents
// a volume-based bonus layer. Kept as a distinct type purely for rule
// selection and reporting.
type VolumeBonusTerms struct {
	Rate         decimal.Decimal
	MinimumSales decimal.Decimal
}

func (t VolumeBonusTerms) Type() RuleType { return RuleVolumeBased }

func (t VolumeBonusTerms) Validate() error {
	return PercentageTerms{Rate: t.Rate, MinimumSales: t.MinimumSales}.Validate()
}

// FixedAmountTerms pays a flat Amount once the period total reaches
// MinimumSales, else zero.
type FixedAmountTerms struct {
	Amount       decimal.Decimal
	MinimumSales decimal.Decimal
}

func (t FixedAmountTerms) Type() RuleType { return RuleFixed }

func (t FixedAmountTerms) Validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("fixed amount must not be negative")
	}
	if t.MinimumSales.IsNegative() {
		return fmt.Errorf("minimum sales must not be negative")
	}
	return nil
}

// Tier is one (boundary, rate) breakpoint of a tiered rule.
type Tier struct {
	MinSales decimal.Decimal
	Rate     decimal.Decimal // Percent applied to the WHOLE period total.
}

// TieredTerms selects the highest tier whose MinSales boundary the period
// total meets and applies that single tier's rate to the entire total.
// Totals below the lowest boundary earn zero.
type TieredTerms struct {
	// Tiers must be non-empty and sorted ascending by MinSales with no
	// duplicate boundaries. Validate enforces this; the factory sorts
	// before validating so persisted order does not matter.
	Tiers []Tier
}

func (t TieredTerms) Type() RuleType { return RuleTiered }

func (t TieredTerms) Validate() error {
	if len(t.Tiers) == 0 {
		return fmt.Errorf("tiered rule requires at least one tier")
	}
	for i, tier := range t.Tiers {
		if tier.MinSales.IsNegative() {
			return fmt.Errorf("tier %d: boundary must not be negative", i)
		}
		if tier.Rate.IsNegative() {
			return fmt.Errorf("tier %d: rate must not be negative", i)
		}
		if i > 0 {
			prev := t.Tiers[i-1].MinSales
			if !tier.MinSales.GreaterThan(prev) {
				return fmt.Errorf("tier %d: boundary %s must be greater than previous %s",
					i, tier.MinSales, prev)
			}
		}
	}
	return nil
}

// Match returns the highest tier whose boundary the total meets,
// or (Tier{}, false) when the total is below every boundary.
func (t TieredTerms) Match(total decimal.Decimal) (Tier, bool) {
	matched := Tier{}
	found := false
	for _, tier := range t.Tiers {
		if tier.MinSales.LessThanOrEqual(total) {
			matched = tier
			found = true
		}
	}
	return matched, found
}

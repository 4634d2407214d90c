/*
Package factory provides JSON to Go commission-rule conversion.

PURPOSE:
  Converts JSON rule definitions into typed commission.Rule values. This
  enables rule configuration without code changes - tenant admins define
  rules in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify rules
  - Easy integration with admin UI
  - Version control for rule definitions
  - Database storage of rule configs (the SQLite store persists exactly
    this form in its config_json column)

JSON SCHEMA:
  {
    "id": "standard-5pct",
    "tenant_id": "acme",
    "name": "Standard 5%",
    "rule_type": "percentage",
    "base_percentage": "5",
    "minimum_sales": "10000.00",
    "is_active": true
  }

  Tiered rules carry a tiers array instead of base_percentage:

  {
    "rule_type": "tiered",
    "tiers": [
      {"min_sales": "0", "percentage": "3"},
      {"min_sales": "50000", "percentage": "5"}
    ]
  }

  Legacy rule rows reuse base_percentage as the flat payout of fixed
  rules; that reading is preserved here so existing rows parse, but
  the typed form it produces is FixedAmountTerms.Amount - the overload
  stops at this boundary.

KEY FEATURES:
  - Validates structure before returning (a rule that parses is a rule
    that calculates)
  - Sorts tiers by boundary so persisted order does not matter
  - Decimal fields parse from JSON strings or numbers; amounts never
    pass through float64

SEE ALSO:
  - commission/rule.go: Typed rule definitions
  - store/sqlite: Persists rules in this JSON form
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a commission rule.
type RuleJSON struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id"`
	Name         string           `json:"name"`
	RuleType     string           `json:"rule_type"`
	BasePct      *decimal.Decimal `json:"base_percentage,omitempty"` // Rate for percentage/volume_based, flat amount for fixed.
	MinimumSales *decimal.Decimal `json:"minimum_sales,omitempty"`
	Tiers        []TierJSON       `json:"tiers,omitempty"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    *time.Time       `json:"created_at,omitempty"`
}

// TierJSON is one tier of a tiered rule.
type TierJSON struct {
	MinSales   decimal.Decimal `json:"min_sales"`
	Percentage decimal.Decimal `json:"percentage"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rules to typed commission rules.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses a JSON string into a commission.Rule.
func (f *RuleFactory) ParseRule(jsonStr string) (*commission.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RuleJSON to a validated commission.Rule.
func (f *RuleFactory) FromJSON(rj RuleJSON) (*commission.Rule, error) {
	terms, err := ParseTerms(rj.RuleType, rj.BasePct, rj.MinimumSales, rj.Tiers)
	if err != nil {
		return nil, err
	}

	rule := &commission.Rule{
		ID:       commission.RuleID(rj.ID),
		TenantID: commission.TenantID(rj.TenantID),
		Name:     rj.Name,
		Terms:    terms,
		IsActive: rj.IsActive,
	}
	if rj.CreatedAt != nil {
		rule.CreatedAt = rj.CreatedAt.UTC()
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// ParseTerms builds the typed terms variant for a rule_type tag. Exposed
// separately because the SQLite store reconstitutes terms from a config
// column while the row carries id/name/is_active itself.
func ParseTerms(ruleType string, basePct, minimumSales *decimal.Decimal, tiers []TierJSON) (commission.Terms, error) {
	rate := decimal.Zero
	if basePct != nil {
		rate = *basePct
	}
	minimum := decimal.Zero
	if minimumSales != nil {
		minimum = *minimumSales
	}

	switch commission.RuleType(ruleType) {
	case commission.RulePercentage:
		return commission.PercentageTerms{Rate: rate, MinimumSales: minimum}, nil

	case commission.RuleVolumeBased:
		return commission.VolumeBonusTerms{Rate: rate, MinimumSales: minimum}, nil

	case commission.RuleFixed:
		return commission.FixedAmountTerms{Amount: rate, MinimumSales: minimum}, nil

	case commission.RuleTiered:
		parsed := make([]commission.Tier, 0, len(tiers))
		for _, tj := range tiers {
			parsed = append(parsed, commission.Tier{
				MinSales: tj.MinSales,
				Rate:     tj.Percentage,
			})
		}
		// Persisted order is not trusted; sort before validation so only
		// genuinely conflicting tiers (duplicate boundaries) fail.
		sort.Slice(parsed, func(i, j int) bool {
			return parsed[i].MinSales.LessThan(parsed[j].MinSales)
		})
		return commission.TieredTerms{Tiers: parsed}, nil

	default:
		return nil, &commission.InvalidRuleError{
			Reason: fmt.Sprintf("unknown rule type %q", ruleType),
		}
	}
}

// ToJSON converts a commission.Rule back to its JSON persistence form.
func (f *RuleFactory) ToJSON(rule *commission.Rule) (RuleJSON, error) {
	rj := RuleJSON{
		ID:       string(rule.ID),
		TenantID: string(rule.TenantID),
		Name:     rule.Name,
		RuleType: string(rule.Type()),
		IsActive: rule.IsActive,
	}
	if !rule.CreatedAt.IsZero() {
		created := rule.CreatedAt.UTC()
		rj.CreatedAt = &created
	}

	switch terms := rule.Terms.(type) {
	case commission.PercentageTerms:
		rj.BasePct = &terms.Rate
		rj.MinimumSales = &terms.MinimumSales
	case commission.VolumeBonusTerms:
		rj.BasePct = &terms.Rate
		rj.MinimumSales = &terms.MinimumSales
	case commission.FixedAmountTerms:
		rj.BasePct = &terms.Amount
		rj.MinimumSales = &terms.MinimumSales
	case commission.TieredTerms:
		for _, tier := range terms.Tiers {
			rj.Tiers = append(rj.Tiers, TierJSON{
				MinSales:   tier.MinSales,
				Percentage: tier.Rate,
			})
		}
	default:
		return RuleJSON{}, fmt.Errorf("rule %s has no serializable terms", rule.ID)
	}

	return rj, nil
}

// TermsConfigJSON marshals only the per-type configuration (rates,
// thresholds, tiers) for storage in a config column.
func TermsConfigJSON(terms commission.Terms) (string, error) {
	rule := commission.Rule{Terms: terms}
	f := NewRuleFactory()
	rj, err := f.ToJSON(&rule)
	if err != nil {
		return "", err
	}
	cfg := struct {
		BasePct      *decimal.Decimal `json:"base_percentage,omitempty"`
		MinimumSales *decimal.Decimal `json:"minimum_sales,omitempty"`
		Tiers        []TierJSON       `json:"tiers,omitempty"`
	}{rj.BasePct, rj.MinimumSales, rj.Tiers}

	out, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseTermsConfig reverses TermsConfigJSON given the rule_type tag.
func ParseTermsConfig(ruleType, configJSON string) (commission.Terms, error) {
	var cfg struct {
		BasePct      *decimal.Decimal `json:"base_percentage,omitempty"`
		MinimumSales *decimal.Decimal `json:"minimum_sales,omitempty"`
		Tiers        []TierJSON       `json:"tiers,omitempty"`
	}
	if configJSON != "" {
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse rule config JSON: %w", err)
		}
	}
	return ParseTerms(ruleType, cfg.BasePct, cfg.MinimumSales, cfg.Tiers)
}

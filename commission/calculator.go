/*
calculator.go - Pure commission calculation

PURPOSE:
  Maps (PeriodSales, Rule) to a commission amount. This is the one place
  rule-type dispatch happens; everything here is deterministic, side-effect
  free, and exercised directly by tests.

ROUNDING:
  All monetary results are rounded to 2 decimal places, half up.
  Intermediate multiplication stays in decimal arithmetic - no floats -
  so crossing a tier boundary or a cliff never drifts by a cent.

CLIFFS:
  minimum_sales is a cliff, not a phase-in: 9,999.99 against a 10,000.00
  threshold earns exactly zero.
*/
package commission

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Calculate returns the commission amount for the given sales under the
// given rule.
//
// A nil rule is the explicit "no rule matched" outcome and yields zero
// without error. A rule whose terms are missing or malformed yields
// InvalidRule - a configuration error surfaced to the caller, never
// silently defaulted to zero.
func Calculate(sales PeriodSales, rule *Rule) (decimal.Decimal, error) {
	if rule == nil {
		return decimal.Zero, nil
	}
	if err := rule.Validate(); err != nil {
		return decimal.Zero, err
	}

	total := sales.TotalSales

	switch terms := rule.Terms.(type) {
	case PercentageTerms:
		return rateAboveCliff(total, terms.Rate, terms.MinimumSales), nil

	case VolumeBonusTerms:
		// Identical math to percentage; the distinct type exists for
		// selection and reporting.
		return rateAboveCliff(total, terms.Rate, terms.MinimumSales), nil

	case FixedAmountTerms:
		if total.LessThan(terms.MinimumSales) {
			return decimal.Zero, nil
		}
		return round(terms.Amount), nil

	case TieredTerms:
		tier, ok := terms.Match(total)
		if !ok {
			// Below the lowest boundary.
			return decimal.Zero, nil
		}
		// The single matched tier's rate applies to the WHOLE total,
		// not just the slice above the boundary.
		return round(total.Mul(tier.Rate).Div(oneHundred)), nil

	default:
		return decimal.Zero, &InvalidRuleError{
			RuleID: rule.ID,
			Reason: "unrecognized rule terms",
		}
	}
}

func rateAboveCliff(total, rate, minimum decimal.Decimal) decimal.Decimal {
	if total.LessThan(minimum) {
		return decimal.Zero
	}
	return round(total.Mul(rate).Div(oneHundred))
}

// round applies the engine-wide monetary rounding: 2 places, half up.
// Amounts are never negative here, so decimal's round-half-away-from-zero
// is exactly round-half-up.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

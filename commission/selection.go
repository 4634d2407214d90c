/*
selection.go - Deterministic rule selection

PURPOSE:
  Decides which CommissionRule applies to an agent for a calculation.
  Selection used to be an ambient "whatever active rule the query
  happens to return" convention. Here the policy is an explicit,
  testable function with a total order:

  1. Explicit rule id (admin override) - fetched even if inactive;
     RuleNotFound if absent or owned by another tenant.
  2. The agent's assigned rule (agent directory), if that rule is active.
  3. The tenant's active rule with the newest CreatedAt; equal timestamps
     break by rule id descending so two runs can never disagree.
  4. No active rule → (nil, nil): an explicit "no rule" outcome the
     calculator maps to a zero commission. Not an error.
*/
package commission

import (
	"context"
	"sort"
)

// RuleSelector resolves the rule to apply for one calculation.
type RuleSelector struct {
	Rules       RuleStore
	Assignments AssignmentStore // Optional; nil skips agent-assignment lookup.
}

// Select returns the rule to apply, or (nil, nil) for the explicit
// "no rule" outcome.
func (s *RuleSelector) Select(ctx context.Context, tenantID TenantID, agentID AgentID, explicit *RuleID) (*Rule, error) {
	if explicit != nil {
		return s.Rules.GetRule(ctx, tenantID, *explicit)
	}

	if s.Assignments != nil {
		assigned, err := s.Assignments.AssignedRuleID(ctx, tenantID, agentID)
		if err != nil {
			return nil, err
		}
		if assigned != nil {
			rule, err := s.Rules.GetRule(ctx, tenantID, *assigned)
			if err == nil && rule.IsActive {
				return rule, nil
			}
			// A dangling or deactivated assignment falls through to the
			// tenant default rather than failing the calculation.
			if err != nil && !IsNotFound(err) {
				return nil, err
			}
		}
	}

	rules, err := s.Rules.ListActiveRules(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.After(rules[j].CreatedAt)
		}
		return rules[i].ID > rules[j].ID
	})

	selected := rules[0]
	return &selected, nil
}

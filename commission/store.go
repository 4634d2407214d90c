/*
store.go - Persistence and external-source interfaces

PURPOSE:
  Defines the interfaces between the engine and its data. Rules and
  assignments are owned by the tenant-admin surface and read here; the
  commission ledger is owned here; raw orders belong to the external
  Orders/Sales system and are only ever read.

KEY INTERFACES:
  RuleStore:       CommissionRule reads (plus Save for the admin surface)
  AssignmentStore: Agent → rule assignment lookup (selection tie-breaking)
  CommissionStore: The commission ledger - atomic upsert and conditional
                   status updates
  SalesSource:     External orders feed (see aggregator.go)

UPSERT CONTRACT:
  CommissionStore.Upsert is the durable half of the per-key mutual
  exclusion requirement: backed by a uniqueness constraint on
  (tenant, agent, period_start, period_end), it inserts the row or
  updates it in place, and MUST refuse the update with
  ImmutableCommission when the stored row is paid. On update only the
  sales snapshot (total_sales, order_count, rule_id, amount,
  updated_at) moves; identity and settlement state (status, paid_at,
  notes, created_at) stay with the stored row. Settlement state changes
  ONLY through UpdateStatus, so a recompute carrying a stale snapshot
  can never move a status backward.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - commission/store: In-memory for testing
*/
package commission

import (
	"context"
	"time"
)

// =============================================================================
// RULE STORE
// =============================================================================

// RuleStore persists tenant-scoped commission rules. The engine only
// reads; Save exists for the admin surface and seeders.
type RuleStore interface {
	// GetRule fetches one rule. Returns ErrRuleNotFound if it does not
	// exist or belongs to a different tenant.
	GetRule(ctx context.Context, tenantID TenantID, id RuleID) (*Rule, error)

	// ListActiveRules returns the tenant's active rules in no particular
	// order; selection sorts deterministically itself.
	ListActiveRules(ctx context.Context, tenantID TenantID) ([]Rule, error)

	// SaveRule inserts or replaces a rule definition.
	SaveRule(ctx context.Context, rule Rule) error
}

// =============================================================================
// ASSIGNMENT STORE - Agent directory's rule assignments (read-mostly)
// =============================================================================

// RuleAssignment pins an agent to a specific rule, overriding the
// tenant-default selection.
type RuleAssignment struct {
	ID        string
	TenantID  TenantID
	AgentID   AgentID
	RuleID    RuleID
	CreatedAt time.Time
}

type AssignmentStore interface {
	// AssignedRuleID returns the rule assigned to the agent, or nil when
	// no assignment exists.
	AssignedRuleID(ctx context.Context, tenantID TenantID, agentID AgentID) (*RuleID, error)

	// SaveAssignment inserts or replaces the agent's assignment.
	SaveAssignment(ctx context.Context, a RuleAssignment) error
}

// =============================================================================
// COMMISSION STORE - The ledger's persistence
// =============================================================================

// CommissionFilter narrows ListCommissions. Zero values mean "any".
type CommissionFilter struct {
	TenantID TenantID
	AgentID  AgentID
	Status   Status
	From     *time.Time // Period start at or after.
	To       *time.Time // Period start before.
}

type CommissionStore interface {
	// GetCommission fetches by id. Returns ErrCommissionNotFound if absent.
	GetCommission(ctx context.Context, id CommissionID) (*Commission, error)

	// FindByKey fetches the one row for the natural key, or (nil, nil)
	// when no row exists yet.
	FindByKey(ctx context.Context, key CommissionKey) (*Commission, error)

	// Upsert atomically inserts the row or updates its sales snapshot in
	// place, keyed on (tenant, agent, period). Settlement state of an
	// existing row is left untouched; updating a paid row fails with
	// ImmutableCommission and changes nothing.
	Upsert(ctx context.Context, c Commission) error

	// UpdateStatus performs a conditional transition: the update applies
	// only while the stored status equals from. A nil paidAt or notes
	// leaves that field as stored. Anything else fails with
	// InvalidTransitionError carrying the actual stored status, or
	// ErrCommissionNotFound.
	UpdateStatus(ctx context.Context, id CommissionID, from, to Status, paidAt *time.Time, notes *string) (*Commission, error)

	// ListCommissions returns rows matching the filter, newest period first.
	ListCommissions(ctx context.Context, filter CommissionFilter) ([]Commission, error)

	// ListPendingKeys returns the keys of every non-paid row for the
	// tenant ("" = all tenants). Feeds the recompute sweep.
	ListPendingKeys(ctx context.Context, tenantID TenantID) ([]CommissionKey, error)

	// Leaderboard aggregates commissions per agent over periods starting
	// within [from, to), ordered by the metric descending.
	Leaderboard(ctx context.Context, tenantID TenantID, metric LeaderboardMetric, from, to time.Time, limit int) ([]LeaderboardEntry, error)
}

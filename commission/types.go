/*
Package commission provides the core commission calculation engine.

PURPOSE:
  This package contains the domain types and algorithms for converting raw
  sales activity into per-agent monetary commission records under
  tenant-defined rules, and for driving those records through the
  pending → approved → paid settlement lifecycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - PeriodSales: One agent's aggregated sales for a period (derived, not stored)
  - Commission:  The persisted ledger record, one per agent+period
  - Status:      The settlement state machine (pending → approved → paid)
  - Tenant/Agent/Rule IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point cent drift
  2. Type Safety: Strong typing for IDs prevents mixing tenant/agent/rule IDs
  3. Idempotence: Recomputation updates the one row per key in place
  4. Auditability: Commissions are never physically deleted

SEE ALSO:
  - rule.go: Rule definitions (tagged union of rule terms)
  - calculator.go: PeriodSales + Rule → commission amount
  - ledger.go: Upsert/recompute orchestration and settlement transitions
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type AgentID string
type RuleID string
type CommissionID string

// =============================================================================
// PERIOD SALES - Aggregated sales activity (derived, computed on demand)
// =============================================================================

// PeriodSales summarizes one agent's sales within a period.
// It is never persisted on its own; the ledger snapshots its fields
// onto the Commission row it backs.
type PeriodSales struct {
	TenantID   TenantID
	AgentID    AgentID
	Period     Period
	TotalSales decimal.Decimal
	OrderCount int
}

// =============================================================================
// SETTLEMENT STATUS - pending → approved → paid
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid" // Terminal. Row is immutable from here.
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether the settlement state machine permits
// moving from s to next. No transition skips a state and none go backward.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved
	case StatusApproved:
		return next == StatusPaid
	}
	return false
}

// =============================================================================
// COMMISSION - The persisted ledger record
// =============================================================================

// Commission is one agent's commission for one period under one rule.
//
// INVARIANTS:
//   - Exactly one non-deleted row exists per (TenantID, AgentID, Period).
//   - Amount is never negative.
//   - RuleID is nil only for the explicit "no rule matched" outcome,
//     in which case Amount is zero.
//   - Once Status is paid the row is immutable; recompute is refused.
type Commission struct {
	ID       CommissionID
	TenantID TenantID
	AgentID  AgentID
	Period   Period

	// Snapshot of the PeriodSales used for the calculation.
	TotalSales decimal.Decimal
	OrderCount int

	RuleID *RuleID
	Amount decimal.Decimal

	Status Status
	PaidAt *time.Time // Set only on the transition to paid.
	Notes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the natural key the uniqueness invariant is defined over.
func (c Commission) Key() CommissionKey {
	return CommissionKey{
		TenantID: c.TenantID,
		AgentID:  c.AgentID,
		Period:   c.Period,
	}
}

// CommissionKey identifies the one row per (tenant, agent, period).
type CommissionKey struct {
	TenantID TenantID
	AgentID  AgentID
	Period   Period
}

// String renders the key in a stable form, used for per-key locking.
func (k CommissionKey) String() string {
	return string(k.TenantID) + "/" + string(k.AgentID) + "/" + k.Period.String()
}

// =============================================================================
// LEADERBOARD - Reporting aggregate over the ledger
// =============================================================================

// LeaderboardMetric selects what a leaderboard query ranks agents by.
type LeaderboardMetric string

const (
	MetricSales      LeaderboardMetric = "sales"
	MetricCommission LeaderboardMetric = "commission"
)

// LeaderboardEntry is one agent's aggregate in a leaderboard query.
type LeaderboardEntry struct {
	AgentID         AgentID
	TotalSales      decimal.Decimal
	TotalCommission decimal.Decimal
	Periods         int // Number of commission rows aggregated.
}

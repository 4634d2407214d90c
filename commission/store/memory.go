/*
Package store provides in-memory implementations of the commission
persistence interfaces.

PURPOSE:
  Test doubles that honor the same contracts as the SQLite store -
  including the upsert immutability guard and conditional status
  transitions - so engine tests run without a database file.

THREAD SAFETY:
  All stores are safe for concurrent use; a single RWMutex per store
  guards the maps.
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

// =============================================================================
// RULE STORE
// =============================================================================

type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[commission.RuleID]commission.Rule
}

func NewMemoryRuleStore() *MemoryRuleStore {
	return &MemoryRuleStore{rules: make(map[commission.RuleID]commission.Rule)}
}

func (s *MemoryRuleStore) GetRule(_ context.Context, tenantID commission.TenantID, id commission.RuleID) (*commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok || rule.TenantID != tenantID {
		return nil, commission.ErrRuleNotFound
	}
	return &rule, nil
}

func (s *MemoryRuleStore) ListActiveRules(_ context.Context, tenantID commission.TenantID) ([]commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []commission.Rule
	for _, rule := range s.rules {
		if rule.TenantID == tenantID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *MemoryRuleStore) SaveRule(_ context.Context, rule commission.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[rule.ID] = rule
	return nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

type assignmentKey struct {
	tenantID commission.TenantID
	agentID  commission.AgentID
}

type MemoryAssignmentStore struct {
	mu          sync.RWMutex
	assignments map[assignmentKey]commission.RuleAssignment
}

func NewMemoryAssignmentStore() *MemoryAssignmentStore {
	return &MemoryAssignmentStore{assignments: make(map[assignmentKey]commission.RuleAssignment)}
}

func (s *MemoryAssignmentStore) AssignedRuleID(_ context.Context, tenantID commission.TenantID, agentID commission.AgentID) (*commission.RuleID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[assignmentKey{tenantID, agentID}]
	if !ok {
		return nil, nil
	}
	id := a.RuleID
	return &id, nil
}

func (s *MemoryAssignmentStore) SaveAssignment(_ context.Context, a commission.RuleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignments[assignmentKey{a.TenantID, a.AgentID}] = a
	return nil
}

// =============================================================================
// COMMISSION STORE
// =============================================================================

type MemoryCommissionStore struct {
	mu          sync.RWMutex
	commissions map[commission.CommissionID]commission.Commission
}

func NewMemoryCommissionStore() *MemoryCommissionStore {
	return &MemoryCommissionStore{commissions: make(map[commission.CommissionID]commission.Commission)}
}

func (s *MemoryCommissionStore) GetCommission(_ context.Context, id commission.CommissionID) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commissions[id]
	if !ok {
		return nil, commission.ErrCommissionNotFound
	}
	return &c, nil
}

func (s *MemoryCommissionStore) FindByKey(_ context.Context, key commission.CommissionKey) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.findByKeyLocked(key)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryCommissionStore) findByKeyLocked(key commission.CommissionKey) (commission.Commission, bool) {
	for _, c := range s.commissions {
		if c.Key() == key {
			return c, true
		}
	}
	return commission.Commission{}, false
}

func (s *MemoryCommissionStore) Upsert(_ context.Context, c commission.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findByKeyLocked(c.Key()); ok {
		if existing.Status == commission.StatusPaid {
			return &commission.ImmutableCommissionError{
				CommissionID: existing.ID,
				Key:          existing.Key(),
			}
		}
		// One row per key: the update replaces only the sales snapshot.
		// Identity and settlement state stay with the stored row even if
		// the caller minted a fresh id or carries a stale status.
		delete(s.commissions, existing.ID)
		c.ID = existing.ID
		c.Status = existing.Status
		c.PaidAt = existing.PaidAt
		c.Notes = existing.Notes
		c.CreatedAt = existing.CreatedAt
	}
	s.commissions[c.ID] = c
	return nil
}

func (s *MemoryCommissionStore) UpdateStatus(_ context.Context, id commission.CommissionID, from, to commission.Status, paidAt *time.Time, notes *string) (*commission.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[id]
	if !ok {
		return nil, commission.ErrCommissionNotFound
	}
	if c.Status != from || !from.CanTransitionTo(to) {
		return nil, &commission.InvalidTransitionError{
			CommissionID: id,
			From:         c.Status,
			To:           to,
		}
	}
	c.Status = to
	if paidAt != nil {
		c.PaidAt = paidAt
	}
	if notes != nil {
		c.Notes = *notes
	}
	c.UpdatedAt = time.Now().UTC()
	s.commissions[id] = c
	return &c, nil
}

func (s *MemoryCommissionStore) ListCommissions(_ context.Context, filter commission.CommissionFilter) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []commission.Commission
	for _, c := range s.commissions {
		if filter.TenantID != "" && c.TenantID != filter.TenantID {
			continue
		}
		if filter.AgentID != "" && c.AgentID != filter.AgentID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.From != nil && c.Period.Start.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !c.Period.Start.Before(*filter.To) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Start.After(out[j].Period.Start)
	})
	return out, nil
}

func (s *MemoryCommissionStore) ListPendingKeys(_ context.Context, tenantID commission.TenantID) ([]commission.CommissionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []commission.CommissionKey
	for _, c := range s.commissions {
		if tenantID != "" && c.TenantID != tenantID {
			continue
		}
		if c.Status == commission.StatusPaid {
			continue
		}
		keys = append(keys, c.Key())
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys, nil
}

func (s *MemoryCommissionStore) Leaderboard(_ context.Context, tenantID commission.TenantID, metric commission.LeaderboardMetric, from, to time.Time, limit int) ([]commission.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAgent := make(map[commission.AgentID]*commission.LeaderboardEntry)
	for _, c := range s.commissions {
		if c.TenantID != tenantID {
			continue
		}
		if c.Period.Start.Before(from) || !c.Period.Start.Before(to) {
			continue
		}
		e, ok := byAgent[c.AgentID]
		if !ok {
			e = &commission.LeaderboardEntry{
				AgentID:         c.AgentID,
				TotalSales:      decimal.Zero,
				TotalCommission: decimal.Zero,
			}
			byAgent[c.AgentID] = e
		}
		e.TotalSales = e.TotalSales.Add(c.TotalSales)
		e.TotalCommission = e.TotalCommission.Add(c.Amount)
		e.Periods++
	}

	out := make([]commission.LeaderboardEntry, 0, len(byAgent))
	for _, e := range byAgent {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if metric == commission.MetricCommission {
			return out[i].TotalCommission.GreaterThan(out[j].TotalCommission)
		}
		return out[i].TotalSales.GreaterThan(out[j].TotalSales)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// =============================================================================
// SALES SOURCE
// =============================================================================

// MemorySalesSource is a SalesSource over a fixed set of orders, with an
// optional error hook for simulating transient source failures.
type MemorySalesSource struct {
	mu     sync.RWMutex
	orders []commission.Order

	// FailNext, when > 0, makes that many ListOrders calls fail.
	FailNext int
}

func NewMemorySalesSource(orders ...commission.Order) *MemorySalesSource {
	return &MemorySalesSource{orders: orders}
}

func (s *MemorySalesSource) Add(orders ...commission.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, orders...)
}

func (s *MemorySalesSource) ListOrders(_ context.Context, tenantID commission.TenantID, agentID commission.AgentID, period commission.Period) ([]commission.Order, error) {
	s.mu.Lock()
	if s.FailNext > 0 {
		s.FailNext--
		s.mu.Unlock()
		return nil, errSourceUnavailable
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []commission.Order
	for _, o := range s.orders {
		if o.TenantID != tenantID || o.AgentID != agentID {
			continue
		}
		if !period.Contains(o.OrderDate) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type sourceError string

func (e sourceError) Error() string { return string(e) }

const errSourceUnavailable = sourceError("sales source unavailable")

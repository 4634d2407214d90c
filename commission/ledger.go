/*
ledger.go - Commission ledger orchestration and settlement workflow

PURPOSE:
  The Ledger owns Commission records: the single upsert path that serves
  both first calculation and recompute, the settlement transitions, and
  the batch recompute sweep.

CRITICAL INVARIANTS:
  1. ONE ROW PER KEY: exactly one commission per (tenant, agent, period);
     recompute updates that row in place, never inserts a duplicate.
  2. IDEMPOTENT: upserting twice over unchanged sales and rules yields an
     unchanged row (modulo UpdatedAt bookkeeping).
  3. PAID IS FINAL: a paid row is immutable; recompute fails with
     ImmutableCommission, transitions never go backward.
  4. ALL OR NOTHING: a failed calculation persists nothing; any prior row
     is left exactly as it was.

CONCURRENCY:
  Two concurrent upserts for the same key must not race. A keyed
  in-process mutex serializes aggregate→select→calculate→persist per key,
  and the store's uniqueness constraint plus atomic upsert is the durable
  guard underneath it. Independent keys run freely in parallel - the
  sweep exploits that with a bounded worker pool.

RETRIES:
  Only AggregationFailed is retried (exponential backoff, bounded
  attempts), and the retry wraps the WHOLE attempt - never just the read -
  so a half-applied attempt can never be silently retried on top of a
  persisted row. Configuration and state errors surface immediately.

SEE ALSO:
  - store.go: CommissionStore contract the ledger drives
  - calculator.go: The pure math this orchestrates
*/
package commission

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 200 * time.Millisecond
	defaultSweepWorkers = 4
)

// Ledger orchestrates commission calculation and settlement.
type Ledger struct {
	Store      CommissionStore
	Aggregator *Aggregator
	Selector   *RuleSelector

	// MaxAttempts bounds retries of transient aggregation failures.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	// RetryBackoff is the initial backoff, doubled per retry.
	// Zero means DefaultRetryBackoff.
	RetryBackoff time.Duration

	// SweepWorkers bounds sweep parallelism. Zero means a small default.
	SweepWorkers int

	// now is swappable for tests.
	now func() time.Time

	locks keyLocks
}

// NewLedger wires a ledger over its collaborators.
func NewLedger(store CommissionStore, agg *Aggregator, sel *RuleSelector) *Ledger {
	return &Ledger{
		Store:      store,
		Aggregator: agg,
		Selector:   sel,
		now:        time.Now,
	}
}

// =============================================================================
// UPSERT - The single path for first calculation and recompute
// =============================================================================

// Upsert calculates (or recalculates) the commission for one key and
// persists it. explicit pins the rule; nil means automatic selection.
//
// First calculation inserts a pending row. Recompute overwrites the
// sales snapshot, rule and amount in place, preserving status and notes.
// A paid row refuses recompute with ImmutableCommission.
func (l *Ledger) Upsert(ctx context.Context, tenantID TenantID, agentID AgentID, period Period, explicit *RuleID) (*Commission, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	key := CommissionKey{TenantID: tenantID, AgentID: agentID, Period: period}
	unlock := l.locks.lock(key.String())
	defer unlock()

	existing, err := l.Store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusPaid {
		return nil, &ImmutableCommissionError{CommissionID: existing.ID, Key: key}
	}

	maxAttempts := l.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		c, err := l.attempt(ctx, key, existing, explicit)
		if err == nil {
			return c, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// attempt runs one full aggregate→select→calculate→persist pass.
// Nothing is persisted unless every step succeeds.
func (l *Ledger) attempt(ctx context.Context, key CommissionKey, existing *Commission, explicit *RuleID) (*Commission, error) {
	sales, err := l.Aggregator.Aggregate(ctx, key.TenantID, key.AgentID, key.Period)
	if err != nil {
		return nil, err
	}

	rule, err := l.Selector.Select(ctx, key.TenantID, key.AgentID, explicit)
	if err != nil {
		return nil, err
	}

	amount, err := Calculate(sales, rule)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	c := Commission{
		TenantID:   key.TenantID,
		AgentID:    key.AgentID,
		Period:     key.Period,
		TotalSales: sales.TotalSales,
		OrderCount: sales.OrderCount,
		Amount:     amount,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if rule != nil {
		id := rule.ID
		c.RuleID = &id
	}
	if existing != nil {
		// In-place recompute: identity, status, notes and creation time
		// belong to the existing row.
		c.ID = existing.ID
		c.Status = existing.Status
		c.Notes = existing.Notes
		c.PaidAt = existing.PaidAt
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = CommissionID(uuid.NewString())
	}

	if err := l.Store.Upsert(ctx, c); err != nil {
		return nil, err
	}

	// The stored row is authoritative: a settlement transition may have
	// landed since the snapshot, and the store keeps that state through
	// the upsert.
	stored, err := l.Store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return &c, nil
}

// =============================================================================
// SETTLEMENT TRANSITIONS
// =============================================================================

// Approve moves a commission from pending to approved, optionally
// recording reviewer notes. An empty notes leaves the stored notes
// unchanged.
func (l *Ledger) Approve(ctx context.Context, id CommissionID, notes string) (*Commission, error) {
	var n *string
	if notes != "" {
		n = &notes
	}
	return l.Store.UpdateStatus(ctx, id, StatusPending, StatusApproved, nil, n)
}

// MarkPaid moves a commission from approved to paid, recording paidAt.
// A zero paidAt records the current time. Paid is terminal: the row is
// immutable afterwards, enforced here and by the store's upsert guard.
func (l *Ledger) MarkPaid(ctx context.Context, id CommissionID, paidAt time.Time) (*Commission, error) {
	if paidAt.IsZero() {
		paidAt = l.now().UTC()
	}
	return l.Store.UpdateStatus(ctx, id, StatusApproved, StatusPaid, &paidAt, nil)
}

// =============================================================================
// BATCH SWEEP - Recompute all non-paid commissions
// =============================================================================

// SweepResult summarizes one batch recompute run.
type SweepResult struct {
	Recomputed int
	Failed     int
	Errors     []error
}

// SweepPending recomputes every non-paid commission for the tenant
// ("" = all tenants). Keys are independent, so the sweep parallelizes
// across them with a bounded worker pool; within a key the upsert lock
// serializes as usual. Per-key failures are collected, never fatal to
// the sweep.
func (l *Ledger) SweepPending(ctx context.Context, tenantID TenantID) (SweepResult, error) {
	keys, err := l.Store.ListPendingKeys(ctx, tenantID)
	if err != nil {
		return SweepResult{}, err
	}

	workers := l.SweepWorkers
	if workers <= 0 {
		workers = defaultSweepWorkers
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	var (
		result SweepResult
		mu     sync.Mutex
		wg     sync.WaitGroup
		work   = make(chan CommissionKey)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				_, err := l.Upsert(ctx, key.TenantID, key.AgentID, key.Period, nil)
				mu.Lock()
				if err != nil {
					result.Failed++
					result.Errors = append(result.Errors, err)
				} else {
					result.Recomputed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, key := range keys {
		select {
		case work <- key:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return result, ctx.Err()
		}
	}
	close(work)
	wg.Wait()

	return result, nil
}

// =============================================================================
// KEYED LOCKS - Per-key mutual exclusion for upserts
// =============================================================================

// keyLocks hands out one mutex per commission key. Entries are retained
// for the process lifetime; the key space (active tenant/agent/period
// combinations) is small relative to that cost.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

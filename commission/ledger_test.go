package commission_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reshigan/SalesSync-sub022/commission"
	"github.com/Reshigan/SalesSync-sub022/commission/store"
)

type ledgerFixture struct {
	ledger      *commission.Ledger
	commissions *store.MemoryCommissionStore
	rules       *store.MemoryRuleStore
	source      *store.MemorySalesSource
	period      commission.Period
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	rules := store.NewMemoryRuleStore()
	source := store.NewMemorySalesSource()
	commissions := store.NewMemoryCommissionStore()

	ledger := commission.NewLedger(
		commissions,
		&commission.Aggregator{Source: source},
		&commission.RuleSelector{Rules: rules},
	)
	ledger.RetryBackoff = time.Millisecond

	return &ledgerFixture{
		ledger:      ledger,
		commissions: commissions,
		rules:       rules,
		source:      source,
		period:      commission.MonthPeriod(2026, time.March),
	}
}

func (f *ledgerFixture) seedTieredRule(t *testing.T) {
	t.Helper()
	err := f.rules.SaveRule(context.Background(), commission.Rule{
		ID:       "rule-tiered",
		TenantID: "t1",
		Name:     "Quarterly Tiers",
		Terms: commission.TieredTerms{Tiers: []commission.Tier{
			{MinSales: mustDec("0"), Rate: mustDec("3")},
			{MinSales: mustDec("50000"), Rate: mustDec("5")},
			{MinSales: mustDec("100000"), Rate: mustDec("7")},
			{MinSales: mustDec("200000"), Rate: mustDec("10")},
		}},
		IsActive:  true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func (f *ledgerFixture) seedOrder(id, amount string) {
	f.source.Add(commission.Order{
		ID:          id,
		TenantID:    "t1",
		AgentID:     "a1",
		TotalAmount: mustDec(amount),
		Status:      commission.OrderCompleted,
		OrderDate:   f.period.Start.AddDate(0, 0, 5),
	})
}

func TestLedgerUpsertEndToEnd(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "75000.00")
	f.seedOrder("o2", "50000.00")

	// WHEN calculating the first time
	c, err := f.ledger.Upsert(context.Background(), "t1", "a1", f.period, nil)

	// THEN a pending row lands with the 7% tier applied to the whole total
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPending, c.Status)
	assert.True(t, mustDec("125000.00").Equal(c.TotalSales), "got %s", c.TotalSales)
	assert.True(t, mustDec("8750.00").Equal(c.Amount), "got %s", c.Amount)
	assert.Equal(t, 2, c.OrderCount)
	require.NotNil(t, c.RuleID)
	assert.Equal(t, commission.RuleID("rule-tiered"), *c.RuleID)
}

func TestLedgerUpsertIsIdempotent(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "60000.00")

	ctx := context.Background()

	// GIVEN an existing row
	first, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)

	// WHEN recomputing over unchanged data
	second, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)

	// THEN the same row is updated in place, not duplicated
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Amount.Equal(second.Amount))

	list, err := f.commissions.ListCommissions(ctx, commission.CommissionFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLedgerRecomputePreservesStatusAndNotes(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "60000.00")

	ctx := context.Background()

	c, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)

	// GIVEN an approved row with reviewer notes
	_, err = f.ledger.Approve(ctx, c.ID, "reviewed against Q1 statement")
	require.NoError(t, err)

	// WHEN a late order arrives and the row is recomputed
	f.seedOrder("o2", "45000.00")
	recomputed, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)

	// THEN the amount reflects the new total but status and notes survive
	assert.True(t, mustDec("105000.00").Equal(recomputed.TotalSales))
	assert.True(t, mustDec("7350.00").Equal(recomputed.Amount), "got %s", recomputed.Amount)
	assert.Equal(t, commission.StatusApproved, recomputed.Status)
	assert.Equal(t, "reviewed against Q1 statement", recomputed.Notes)
}

func TestLedgerPaidCommissionIsImmutable(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "60000.00")

	ctx := context.Background()

	c, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)
	_, err = f.ledger.Approve(ctx, c.ID, "")
	require.NoError(t, err)
	paid, err := f.ledger.MarkPaid(ctx, c.ID, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	// WHEN more sales land and recompute is attempted
	f.seedOrder("o2", "90000.00")
	_, err = f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)

	// THEN the recompute is refused
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrImmutableCommission)

	// AND the stored row is byte-for-byte what it was
	after, err := f.commissions.GetCommission(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPaid, after.Status)
	assert.True(t, mustDec("60000.00").Equal(after.TotalSales))
	assert.True(t, mustDec("3000.00").Equal(after.Amount), "got %s", after.Amount)
}

func TestLedgerSettlementTransitions(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "10000.00")

	ctx := context.Background()

	c, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)

	// Paying before approval is rejected.
	_, err = f.ledger.MarkPaid(ctx, c.ID, time.Time{})
	assert.ErrorIs(t, err, commission.ErrInvalidTransition)

	// pending → approved succeeds exactly once.
	approved, err := f.ledger.Approve(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, commission.StatusApproved, approved.Status)
	_, err = f.ledger.Approve(ctx, c.ID, "")
	assert.ErrorIs(t, err, commission.ErrInvalidTransition)

	// approved → paid records the payout timestamp.
	paidAt := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	paid, err := f.ledger.MarkPaid(ctx, c.ID, paidAt)
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paidAt.Equal(*paid.PaidAt))

	// Paid is terminal.
	_, err = f.ledger.Approve(ctx, c.ID, "")
	assert.ErrorIs(t, err, commission.ErrInvalidTransition)
}

func TestLedgerRetriesTransientAggregationFailure(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "10000.00")

	// GIVEN a source that fails twice before recovering
	f.source.FailNext = 2

	// WHEN upserting
	c, err := f.ledger.Upsert(context.Background(), "t1", "a1", f.period, nil)

	// THEN the third attempt lands the row
	require.NoError(t, err)
	assert.True(t, mustDec("300.00").Equal(c.Amount), "got %s", c.Amount)
}

func TestLedgerGivesUpAfterBoundedRetries(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.source.FailNext = 100

	_, err := f.ledger.Upsert(context.Background(), "t1", "a1", f.period, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrAggregationFailed)

	// Nothing was persisted.
	list, err := f.commissions.ListCommissions(context.Background(), commission.CommissionFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLedgerNoRuleYieldsZeroPendingRow(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedOrder("o1", "50000.00")

	// WHEN no rule exists for the tenant
	c, err := f.ledger.Upsert(context.Background(), "t1", "a1", f.period, nil)

	// THEN a zero-amount pending row records the outcome explicitly
	require.NoError(t, err)
	assert.True(t, c.Amount.IsZero())
	assert.Nil(t, c.RuleID)
	assert.Equal(t, commission.StatusPending, c.Status)
	assert.True(t, mustDec("50000.00").Equal(c.TotalSales))
}

func TestLedgerConcurrentUpsertsOneRow(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "60000.00")

	ctx := context.Background()

	// WHEN many upserts race on the same key
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// THEN exactly one row exists
	list, err := f.commissions.ListCommissions(ctx, commission.CommissionFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mustDec("3000.00").Equal(list[0].Amount))
}

func TestLedgerSweepRecomputesNonPaidRows(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedTieredRule(t)
	f.seedOrder("o1", "60000.00")
	f.source.Add(commission.Order{
		ID: "o2", TenantID: "t1", AgentID: "a2",
		TotalAmount: mustDec("10000.00"),
		Status:      commission.OrderCompleted,
		OrderDate:   f.period.Start.AddDate(0, 0, 5),
	})

	ctx := context.Background()

	c1, err := f.ledger.Upsert(ctx, "t1", "a1", f.period, nil)
	require.NoError(t, err)
	_, err = f.ledger.Upsert(ctx, "t1", "a2", f.period, nil)
	require.NoError(t, err)

	// GIVEN one of the rows is already paid
	_, err = f.ledger.Approve(ctx, c1.ID, "")
	require.NoError(t, err)
	_, err = f.ledger.MarkPaid(ctx, c1.ID, time.Time{})
	require.NoError(t, err)

	// AND a late order changes the unpaid agent's total
	f.source.Add(commission.Order{
		ID: "o3", TenantID: "t1", AgentID: "a2",
		TotalAmount: mustDec("40000.00"),
		Status:      commission.OrderCompleted,
		OrderDate:   f.period.Start.AddDate(0, 0, 6),
	})

	// WHEN sweeping the tenant
	result, err := f.ledger.SweepPending(ctx, "t1")

	// THEN only the non-paid row was recomputed, without errors
	require.NoError(t, err)
	assert.Equal(t, 1, result.Recomputed)
	assert.Equal(t, 0, result.Failed)

	list, err := f.commissions.ListCommissions(ctx, commission.CommissionFilter{TenantID: "t1", AgentID: "a2"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mustDec("2500.00").Equal(list[0].Amount), "got %s", list[0].Amount)
}

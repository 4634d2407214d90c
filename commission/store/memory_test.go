package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pendingCommission(id string) commission.Commission {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return commission.Commission{
		ID:         commission.CommissionID(id),
		TenantID:   "t1",
		AgentID:    "a1",
		Period:     commission.MonthPeriod(2026, time.March),
		TotalSales: dec("60000.00"),
		OrderCount: 3,
		Amount:     dec("3000.00"),
		Status:     commission.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestMemoryUpsertKeepsSettlementStateOnRecompute(t *testing.T) {
	s := NewMemoryCommissionStore()
	ctx := context.Background()

	// GIVEN a row approved (with notes) after the recompute snapshotted it
	require.NoError(t, s.Upsert(ctx, pendingCommission("c1")))
	notes := "reviewed against the Q1 statement"
	_, err := s.UpdateStatus(ctx, "c1", commission.StatusPending, commission.StatusApproved, nil, &notes)
	require.NoError(t, err)

	// WHEN the recompute persists its stale pending snapshot
	stale := pendingCommission("c1")
	stale.TotalSales = dec("90000.00")
	stale.Amount = dec("4500.00")
	require.NoError(t, s.Upsert(ctx, stale))

	// THEN the sales snapshot moved but the settlement state did not
	got, err := s.GetCommission(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, commission.StatusApproved, got.Status)
	assert.Equal(t, notes, got.Notes)
	assert.True(t, dec("90000.00").Equal(got.TotalSales))
	assert.True(t, dec("4500.00").Equal(got.Amount))
}

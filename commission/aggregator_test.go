package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	orders []Order
	err    error
}

func (s *stubSource) ListOrders(context.Context, TenantID, AgentID, Period) ([]Order, error) {
	return s.orders, s.err
}

func TestAggregateExcludesCancelledAndRefunded(t *testing.T) {
	period := MonthPeriod(2026, time.March)
	mid := period.Start.AddDate(0, 0, 10)

	// GIVEN a mixed bag of order statuses within the period
	source := &stubSource{orders: []Order{
		{ID: "o1", TenantID: "t1", AgentID: "a1", TotalAmount: dec("100.00"), Status: OrderCompleted, OrderDate: mid},
		{ID: "o2", TenantID: "t1", AgentID: "a1", TotalAmount: dec("250.50"), Status: OrderPending, OrderDate: mid},
		{ID: "o3", TenantID: "t1", AgentID: "a1", TotalAmount: dec("999.00"), Status: OrderCancelled, OrderDate: mid},
		{ID: "o4", TenantID: "t1", AgentID: "a1", TotalAmount: dec("400.00"), Status: OrderRefunded, OrderDate: mid},
	}}
	agg := &Aggregator{Source: source}

	// WHEN aggregating
	sales, err := agg.Aggregate(context.Background(), "t1", "a1", period)

	// THEN only completed and pending orders count
	require.NoError(t, err)
	assert.True(t, dec("350.50").Equal(sales.TotalSales), "got %s", sales.TotalSales)
	assert.Equal(t, 2, sales.OrderCount)
}

func TestAggregateHalfOpenPeriodBoundaries(t *testing.T) {
	period := MonthPeriod(2026, time.March)

	// GIVEN orders at the exact period boundaries
	source := &stubSource{orders: []Order{
		{ID: "at-start", TenantID: "t1", AgentID: "a1", TotalAmount: dec("10.00"), Status: OrderCompleted, OrderDate: period.Start},
		{ID: "at-end", TenantID: "t1", AgentID: "a1", TotalAmount: dec("20.00"), Status: OrderCompleted, OrderDate: period.End},
		{ID: "before", TenantID: "t1", AgentID: "a1", TotalAmount: dec("40.00"), Status: OrderCompleted, OrderDate: period.Start.Add(-time.Nanosecond)},
	}}
	agg := &Aggregator{Source: source}

	// WHEN aggregating
	sales, err := agg.Aggregate(context.Background(), "t1", "a1", period)

	// THEN the start instant is included, the end instant is not
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(sales.TotalSales), "got %s", sales.TotalSales)
	assert.Equal(t, 1, sales.OrderCount)
}

func TestAggregateNoOrdersYieldsZero(t *testing.T) {
	agg := &Aggregator{Source: &stubSource{}}

	sales, err := agg.Aggregate(context.Background(), "t1", "a1", MonthPeriod(2026, time.March))

	require.NoError(t, err)
	assert.True(t, sales.TotalSales.Equal(decimal.Zero))
	assert.Equal(t, 0, sales.OrderCount)
}

func TestAggregateSourceFailureIsRetryable(t *testing.T) {
	// GIVEN an unreachable orders source
	agg := &Aggregator{Source: &stubSource{err: errors.New("connection refused")}}

	// WHEN aggregating
	_, err := agg.Aggregate(context.Background(), "t1", "a1", MonthPeriod(2026, time.March))

	// THEN the failure is classified as transient
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregationFailed)
	assert.True(t, IsRetryable(err))
}

func TestAggregateRejectsInvalidPeriod(t *testing.T) {
	agg := &Aggregator{Source: &stubSource{}}
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := agg.Aggregate(context.Background(), "t1", "a1", Period{Start: start, End: start})

	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

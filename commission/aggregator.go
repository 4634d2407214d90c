/*
aggregator.go - Raw orders → PeriodSales

PURPOSE:
  Reduces an agent's raw order rows for a period to the single
  (total_sales, order_count) summary the calculator consumes. The orders
  themselves belong to the external Orders/Sales system; this file only
  defines the read interface and the reduction.

WHAT COUNTS AS A SALE:
  - order_date within the half-open period [start, end)
  - order_status neither cancelled nor refunded
  - total_amount taken as-is (whatever the Orders system defines as
    "sales" - post-discount, tax policy opaque; never recomputed here)

FAILURE:
  A source failure surfaces as AggregationFailed, which the ledger
  retries with backoff around the WHOLE aggregate+calculate+persist
  attempt (see ledger.go). Aggregation itself is read-only and safe to
  repeat any number of times.
*/
package commission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ORDERS - External Orders/Sales system (read-only)
// =============================================================================

type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
	OrderPending   OrderStatus = "pending"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Order is the slice of an order row the aggregator needs.
type Order struct {
	ID          string
	TenantID    TenantID
	AgentID     AgentID
	TotalAmount decimal.Decimal
	Status      OrderStatus
	OrderDate   time.Time
}

// Countable reports whether the order contributes to commissionable sales.
func (o Order) Countable() bool {
	return o.Status != OrderCancelled && o.Status != OrderRefunded
}

// SalesSource reads raw orders from the external Orders/Sales system.
type SalesSource interface {
	// ListOrders returns the agent's orders with order_date in
	// [period.Start, period.End). Implementations may over-return;
	// the aggregator re-filters defensively.
	ListOrders(ctx context.Context, tenantID TenantID, agentID AgentID, period Period) ([]Order, error)
}

// =============================================================================
// AGGREGATOR
// =============================================================================

const DefaultAggregateTimeout = 10 * time.Second

// Aggregator reduces raw orders to a PeriodSales summary.
type Aggregator struct {
	Source SalesSource

	// Timeout bounds a single ListOrders call. Zero means
	// DefaultAggregateTimeout.
	Timeout time.Duration
}

// Aggregate computes the PeriodSales for one agent and period.
// Read-only; safe to call repeatedly.
func (a *Aggregator) Aggregate(ctx context.Context, tenantID TenantID, agentID AgentID, period Period) (PeriodSales, error) {
	sales := PeriodSales{
		TenantID:   tenantID,
		AgentID:    agentID,
		Period:     period,
		TotalSales: decimal.Zero,
	}

	if err := period.Validate(); err != nil {
		return sales, err
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAggregateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	orders, err := a.Source.ListOrders(ctx, tenantID, agentID, period)
	if err != nil {
		return sales, &AggregationError{
			Key: CommissionKey{TenantID: tenantID, AgentID: agentID, Period: period},
			Err: err,
		}
	}

	for _, o := range orders {
		if !o.Countable() || !period.Contains(o.OrderDate) {
			continue
		}
		sales.TotalSales = sales.TotalSales.Add(o.TotalAmount)
		sales.OrderCount++
	}

	return sales, nil
}

/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (RuleStore, AssignmentStore,
  CommissionStore, SalesSource) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  commission.RuleStore:       Rule definitions (JSON config column)
  commission.AssignmentStore: Agent-to-rule assignments
  commission.CommissionStore: The commission ledger
  commission.SalesSource:     Raw order rows for aggregation

ONE-ROW-PER-KEY ENFORCEMENT:
  The commissions table carries a UNIQUE index on
  (tenant_id, agent_id, period_start, period_end). Upsert rides that
  index with ON CONFLICT DO UPDATE, guarded so a paid row is never
  touched - the database is the last line of defense under concurrent
  recomputes, beneath the ledger's in-process keyed lock.

MONEY AS TEXT:
  All monetary columns (amounts, totals, rates inside config_json) are
  stored as decimal strings and re-parsed on read. No REAL columns for
  money - SQLite's float arithmetic is exactly what decimal exists to
  avoid. Aggregation for leaderboards folds in Go for the same reason.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/salessync.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := commission.NewLedger(store, agg, sel)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - commission/store.go: Interface definitions
  - commission/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Reshigan/SalesSync-sub022/commission"
	"github.com/Reshigan/SalesSync-sub022/factory"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Commission rules (config_json holds the per-type terms)
	CREATE TABLE IF NOT EXISTS commission_rules (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		rule_type TEXT NOT NULL,
		config_json TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_tenant_active
		ON commission_rules(tenant_id, is_active);

	-- Agent-to-rule assignments (one per agent)
	CREATE TABLE IF NOT EXISTS rule_assignments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(tenant_id, agent_id)
	);

	-- The commission ledger
	-- CRITICAL: the unique index is the durable one-row-per-key guarantee
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		total_sales TEXT NOT NULL,
		order_count INTEGER NOT NULL,
		rule_id TEXT,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_at TEXT,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(tenant_id, agent_id, period_start, period_end)
	);

	CREATE INDEX IF NOT EXISTS idx_commissions_tenant_agent
		ON commissions(tenant_id, agent_id);
	CREATE INDEX IF NOT EXISTS idx_commissions_status
		ON commissions(status);
	CREATE INDEX IF NOT EXISTS idx_commissions_tenant_period
		ON commissions(tenant_id, period_start DESC);

	-- Raw orders (mirror of the Orders/Sales system feed)
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		order_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Hot path: aggregation scans by agent and date range
	CREATE INDEX IF NOT EXISTS idx_orders_agent_date
		ON orders(tenant_id, agent_id, order_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RULE STORE (commission.RuleStore interface)
// =============================================================================

// GetRule retrieves a rule scoped to the tenant.
func (s *Store) GetRule(ctx context.Context, tenantID commission.TenantID, id commission.RuleID) (*commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, rule_type, config_json, is_active, created_at
		 FROM commission_rules WHERE id = ? AND tenant_id = ?`,
		id, tenantID,
	)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListActiveRules returns the tenant's active rules.
func (s *Store) ListActiveRules(ctx context.Context, tenantID commission.TenantID) ([]commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, rule_type, config_json, is_active, created_at
		 FROM commission_rules WHERE tenant_id = ? AND is_active = TRUE`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []commission.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// SaveRule inserts or replaces a rule definition.
func (s *Store) SaveRule(ctx context.Context, rule commission.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := rule.Validate(); err != nil {
		return err
	}
	configJSON, err := factory.TermsConfigJSON(rule.Terms)
	if err != nil {
		return err
	}

	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO commission_rules (id, tenant_id, name, rule_type, config_json, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rule_type = excluded.rule_type,
			config_json = excluded.config_json,
			is_active = excluded.is_active
	`

	_, err = s.db.ExecContext(ctx, query,
		rule.ID, rule.TenantID, rule.Name, rule.Type(),
		configJSON, rule.IsActive,
		createdAt.Format(time.RFC3339Nano),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*commission.Rule, error) {
	var (
		rule       commission.Rule
		ruleType   string
		configJSON string
		createdAt  string
	)

	err := row.Scan(&rule.ID, &rule.TenantID, &rule.Name, &ruleType, &configJSON, &rule.IsActive, &createdAt)
	if err != nil {
		return nil, err
	}

	rule.Terms, err = factory.ParseTermsConfig(ruleType, configJSON)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	rule.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rule, nil
}

// =============================================================================
// ASSIGNMENT STORE (commission.AssignmentStore interface)
// =============================================================================

// AssignedRuleID returns the rule assigned to the agent, or nil.
func (s *Store) AssignedRuleID(ctx context.Context, tenantID commission.TenantID, agentID commission.AgentID) (*commission.RuleID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ruleID commission.RuleID
	err := s.db.QueryRowContext(ctx,
		"SELECT rule_id FROM rule_assignments WHERE tenant_id = ? AND agent_id = ?",
		tenantID, agentID,
	).Scan(&ruleID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ruleID, nil
}

// SaveAssignment inserts or replaces the agent's assignment.
func (s *Store) SaveAssignment(ctx context.Context, a commission.RuleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO rule_assignments (id, tenant_id, agent_id, rule_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, agent_id) DO UPDATE SET
			rule_id = excluded.rule_id
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.AgentID, a.RuleID,
		createdAt.Format(time.RFC3339Nano),
	)
	return err
}

// =============================================================================
// COMMISSION STORE (commission.CommissionStore interface)
// =============================================================================

const commissionColumns = `id, tenant_id, agent_id, period_start, period_end,
	total_sales, order_count, rule_id, amount, status, paid_at, notes, created_at, updated_at`

// GetCommission retrieves a commission by id.
func (s *Store) GetCommission(ctx context.Context, id commission.CommissionID) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getCommissionLocked(ctx, id)
}

func (s *Store) getCommissionLocked(ctx context.Context, id commission.CommissionID) (*commission.Commission, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+commissionColumns+" FROM commissions WHERE id = ?", id)

	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrCommissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByKey retrieves the one row for the natural key, or (nil, nil).
func (s *Store) FindByKey(ctx context.Context, key commission.CommissionKey) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+commissionColumns+` FROM commissions
		 WHERE tenant_id = ? AND agent_id = ? AND period_start = ? AND period_end = ?`,
		key.TenantID, key.AgentID,
		key.Period.Start.UTC().Format(time.RFC3339Nano),
		key.Period.End.UTC().Format(time.RFC3339Nano),
	)

	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Upsert atomically inserts or updates the one row per key. The conflict
// update replaces only the sales snapshot: settlement state (status,
// paid_at, notes) belongs to UpdateStatus and stays as stored, so a
// recompute carrying a stale status can never move the row backward.
// A paid row is never touched at all, even if a caller races past the
// ledger's in-process lock.
func (s *Store) Upsert(ctx context.Context, c commission.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO commissions
		(id, tenant_id, agent_id, period_start, period_end, total_sales, order_count,
		 rule_id, amount, status, paid_at, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, agent_id, period_start, period_end) DO UPDATE SET
			total_sales = excluded.total_sales,
			order_count = excluded.order_count,
			rule_id = excluded.rule_id,
			amount = excluded.amount,
			updated_at = excluded.updated_at
		WHERE commissions.status != 'paid'
	`

	var ruleID *string
	if c.RuleID != nil {
		id := string(*c.RuleID)
		ruleID = &id
	}
	var paidAt *string
	if c.PaidAt != nil {
		t := c.PaidAt.UTC().Format(time.RFC3339Nano)
		paidAt = &t
	}

	res, err := s.db.ExecContext(ctx, query,
		c.ID, c.TenantID, c.AgentID,
		c.Period.Start.UTC().Format(time.RFC3339Nano),
		c.Period.End.UTC().Format(time.RFC3339Nano),
		c.TotalSales.String(), c.OrderCount,
		ruleID, c.Amount.String(), c.Status,
		paidAt, c.Notes,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert commission: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// The conflict guard fired: the stored row is paid.
		stored, err := s.findByKeyLocked(ctx, c.Key())
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("upsert affected no rows for %s", c.Key())
		}
		return &commission.ImmutableCommissionError{
			CommissionID: stored.ID,
			Key:          stored.Key(),
		}
	}
	return nil
}

func (s *Store) findByKeyLocked(ctx context.Context, key commission.CommissionKey) (*commission.Commission, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+commissionColumns+` FROM commissions
		 WHERE tenant_id = ? AND agent_id = ? AND period_start = ? AND period_end = ?`,
		key.TenantID, key.AgentID,
		key.Period.Start.UTC().Format(time.RFC3339Nano),
		key.Period.End.UTC().Format(time.RFC3339Nano),
	)
	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// UpdateStatus performs a conditional settlement transition: the UPDATE
// applies only while the stored status equals from, so two racing
// approvals resolve to exactly one winner.
func (s *Store) UpdateStatus(ctx context.Context, id commission.CommissionID, from, to commission.Status, paidAt *time.Time, notes *string) (*commission.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !from.CanTransitionTo(to) {
		return nil, &commission.InvalidTransitionError{CommissionID: id, From: from, To: to}
	}

	var paidAtStr *string
	if paidAt != nil {
		t := paidAt.UTC().Format(time.RFC3339Nano)
		paidAtStr = &t
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE commissions
		 SET status = ?, paid_at = COALESCE(?, paid_at), notes = COALESCE(?, notes), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, paidAtStr, notes, time.Now().UTC().Format(time.RFC3339Nano),
		id, from,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either missing or in the wrong state; report which, with the
		// actual stored status.
		stored, err := s.getCommissionLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &commission.InvalidTransitionError{
			CommissionID: id,
			From:         stored.Status,
			To:           to,
		}
	}

	return s.getCommissionLocked(ctx, id)
}

// ListCommissions returns rows matching the filter, newest period first.
func (s *Store) ListCommissions(ctx context.Context, filter commission.CommissionFilter) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + commissionColumns + " FROM commissions WHERE 1=1"
	var args []any

	if filter.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, filter.TenantID)
	}
	if filter.AgentID != "" {
		query += " AND agent_id = ?"
		args = append(args, filter.AgentID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		query += " AND period_start >= ?"
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if filter.To != nil {
		query += " AND period_start < ?"
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY period_start DESC, agent_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commission.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListPendingKeys returns the natural keys of every non-paid row.
func (s *Store) ListPendingKeys(ctx context.Context, tenantID commission.TenantID) ([]commission.CommissionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT tenant_id, agent_id, period_start, period_end
		FROM commissions WHERE status != 'paid'`
	var args []any
	if tenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	query += " ORDER BY tenant_id, agent_id, period_start"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []commission.CommissionKey
	for rows.Next() {
		var key commission.CommissionKey
		var start, end string
		if err := rows.Scan(&key.TenantID, &key.AgentID, &start, &end); err != nil {
			return nil, err
		}
		key.Period.Start, _ = time.Parse(time.RFC3339Nano, start)
		key.Period.End, _ = time.Parse(time.RFC3339Nano, end)
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Leaderboard aggregates per-agent totals over periods starting within
// [from, to). Rows are fetched and folded in Go so the sums stay in
// decimal arithmetic; SQLite would coerce the TEXT amounts to floats.
func (s *Store) Leaderboard(ctx context.Context, tenantID commission.TenantID, metric commission.LeaderboardMetric, from, to time.Time, limit int) ([]commission.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, total_sales, amount FROM commissions
		 WHERE tenant_id = ? AND period_start >= ? AND period_start < ?
		 ORDER BY agent_id`,
		tenantID,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []commission.LeaderboardEntry
	for rows.Next() {
		var agentID commission.AgentID
		var totalSales, amount string
		if err := rows.Scan(&agentID, &totalSales, &amount); err != nil {
			return nil, err
		}

		sales, err := decimal.NewFromString(totalSales)
		if err != nil {
			return nil, fmt.Errorf("bad total_sales for agent %s: %w", agentID, err)
		}
		comm, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad amount for agent %s: %w", agentID, err)
		}

		if n := len(entries); n > 0 && entries[n-1].AgentID == agentID {
			entries[n-1].TotalSales = entries[n-1].TotalSales.Add(sales)
			entries[n-1].TotalCommission = entries[n-1].TotalCommission.Add(comm)
			entries[n-1].Periods++
		} else {
			entries = append(entries, commission.LeaderboardEntry{
				AgentID:         agentID,
				TotalSales:      sales,
				TotalCommission: comm,
				Periods:         1,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortEntries(entries, metric)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func sortEntries(entries []commission.LeaderboardEntry, metric commission.LeaderboardMetric) {
	less := func(a, b commission.LeaderboardEntry) bool {
		if metric == commission.MetricCommission {
			return a.TotalCommission.GreaterThan(b.TotalCommission)
		}
		return a.TotalSales.GreaterThan(b.TotalSales)
	}
	// Insertion sort; leaderboards are small and already grouped.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && less(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func scanCommission(row rowScanner) (*commission.Commission, error) {
	var (
		c          commission.Commission
		start, end string
		totalSales string
		ruleID     sql.NullString
		amount     string
		paidAt     sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(&c.ID, &c.TenantID, &c.AgentID, &start, &end,
		&totalSales, &c.OrderCount, &ruleID, &amount, &c.Status,
		&paidAt, &c.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.Period.Start, _ = time.Parse(time.RFC3339Nano, start)
	c.Period.End, _ = time.Parse(time.RFC3339Nano, end)
	c.TotalSales, err = decimal.NewFromString(totalSales)
	if err != nil {
		return nil, fmt.Errorf("bad total_sales for commission %s: %w", c.ID, err)
	}
	c.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount for commission %s: %w", c.ID, err)
	}
	if ruleID.Valid {
		id := commission.RuleID(ruleID.String)
		c.RuleID = &id
	}
	if paidAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, paidAt.String)
		c.PaidAt = &t
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &c, nil
}

// =============================================================================
// SALES SOURCE (commission.SalesSource interface)
// =============================================================================

// ListOrders returns the agent's orders with order_date in the period.
// Cancelled and refunded orders are returned too; the aggregator owns
// the countability rule.
func (s *Store) ListOrders(ctx context.Context, tenantID commission.TenantID, agentID commission.AgentID, period commission.Period) ([]commission.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, agent_id, total_amount, status, order_date FROM orders
		 WHERE tenant_id = ? AND agent_id = ? AND order_date >= ? AND order_date < ?
		 ORDER BY order_date`,
		tenantID, agentID,
		period.Start.UTC().Format(time.RFC3339Nano),
		period.End.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []commission.Order
	for rows.Next() {
		var o commission.Order
		var totalAmount, orderDate string
		if err := rows.Scan(&o.ID, &o.TenantID, &o.AgentID, &totalAmount, &o.Status, &orderDate); err != nil {
			return nil, err
		}
		o.TotalAmount, err = decimal.NewFromString(totalAmount)
		if err != nil {
			return nil, fmt.Errorf("bad total_amount for order %s: %w", o.ID, err)
		}
		o.OrderDate, _ = time.Parse(time.RFC3339Nano, orderDate)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SaveOrders inserts or replaces a batch of order rows atomically.
// Feeds the orders mirror from ingestion.
func (s *Store) SaveOrders(ctx context.Context, orders []commission.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, tenant_id, agent_id, total_amount, status, order_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_amount = excluded.total_amount,
			status = excluded.status,
			order_date = excluded.order_date
	`

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, o := range orders {
		if _, err := tx.ExecContext(ctx, query,
			o.ID, o.TenantID, o.AgentID,
			o.TotalAmount.String(), o.Status,
			o.OrderDate.UTC().Format(time.RFC3339Nano), now,
		); err != nil {
			return fmt.Errorf("failed to save order %s: %w", o.ID, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"commissions", "orders", "rule_assignments", "commission_rules"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the commission engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Commissions:
    GET    /api/commissions                List (tenant_id, agent_id, status, from/to filters)
    GET    /api/commissions/{id}           Get one commission
    POST   /api/commissions/recalculate    Calculate or recompute one key
    POST   /api/commissions/{id}/approve   pending → approved
    POST   /api/commissions/{id}/pay       approved → paid
    GET    /api/commissions/leaderboard    Ranked per-agent totals

  Rules:
    GET    /api/rules                      List active rules for a tenant
    POST   /api/rules                      Create/update a rule from JSON
    GET    /api/rules/{id}                 Get one rule
    POST   /api/rules/{id}/deactivate      Retire a rule (no deletes)

  Admin:
    POST   /api/admin/assignments          Pin an agent to a rule
    POST   /api/admin/sweep                Batch recompute non-paid rows

  Orders:
    POST   /api/orders                     Ingest a batch of order rows

ERROR HANDLING:
  Domain errors map to HTTP status by KIND via writeDomainError:
  - 400: Invalid input, invalid rule config, invalid period
  - 404: Rule or commission not found
  - 409: Illegal settlement transition, paid-row recompute
  - 502: Orders source unreachable (after ledger retries)
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. Tenancy comes from
  explicit tenant_id parameters. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Reshigan/SalesSync-sub022/commission"
	"github.com/Reshigan/SalesSync-sub022/factory"
	"github.com/Reshigan/SalesSync-sub022/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Ledger      *commission.Ledger
	RuleFactory *factory.RuleFactory
	Cache       *LeaderboardCache // Optional; nil disables caching.
}

// NewHandler creates a new handler over the store and ledger.
func NewHandler(store *sqlite.Store, ledger *commission.Ledger, cache *LeaderboardCache) *Handler {
	return &Handler{
		Store:       store,
		Ledger:      ledger,
		RuleFactory: factory.NewRuleFactory(),
		Cache:       cache,
	}
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// ListCommissions returns commissions matching the query filters. The
// from/to window selects by period start, half-open like periods
// themselves.
// GET /api/commissions?tenant_id=&agent_id=&status=&from=&to=
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := q.Get("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}

	filter := commission.CommissionFilter{
		TenantID: commission.TenantID(tenantID),
		AgentID:  commission.AgentID(q.Get("agent_id")),
	}
	if status := q.Get("status"); status != "" {
		s := commission.Status(status)
		if !s.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status: "+status, nil)
			return
		}
		filter.Status = s
	}
	if v := q.Get("from"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		filter.To = &t
	}

	commissions, err := h.Store.ListCommissions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commissions", err)
		return
	}

	dtos := make([]CommissionDTO, len(commissions))
	for i := range commissions {
		dtos[i] = toCommissionDTO(&commissions[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCommission returns a single commission.
// GET /api/commissions/{id}
func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	id := commission.CommissionID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCommission(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(c))
}

// Recalculate computes (or recomputes) the commission for one
// tenant+agent+period key.
// POST /api/commissions/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TenantID == "" || req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id and agent_id are required", nil)
		return
	}

	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	var explicit *commission.RuleID
	if req.RuleID != nil && *req.RuleID != "" {
		id := commission.RuleID(*req.RuleID)
		explicit = &id
	}

	c, err := h.Ledger.Upsert(r.Context(),
		commission.TenantID(req.TenantID),
		commission.AgentID(req.AgentID),
		period, explicit)
	if err != nil {
		writeDomainError(w, "Failed to calculate commission", err)
		return
	}

	h.invalidateLeaderboard(r, c.TenantID)
	writeJSON(w, http.StatusOK, toCommissionDTO(c))
}

// ApproveCommission moves a commission from pending to approved, with
// optional reviewer notes in the body.
// POST /api/commissions/{id}/approve
func (h *Handler) ApproveCommission(w http.ResponseWriter, r *http.Request) {
	id := commission.CommissionID(chi.URLParam(r, "id"))

	var req ApproveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	c, err := h.Ledger.Approve(r.Context(), id, req.Notes)
	if err != nil {
		writeDomainError(w, "Failed to approve commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(c))
}

// PayCommission moves a commission from approved to paid.
// POST /api/commissions/{id}/pay
func (h *Handler) PayCommission(w http.ResponseWriter, r *http.Request) {
	id := commission.CommissionID(chi.URLParam(r, "id"))

	var req PayRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var paidAt time.Time
	if req.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_at timestamp", err)
			return
		}
		paidAt = t
	}

	c, err := h.Ledger.MarkPaid(r.Context(), id, paidAt)
	if err != nil {
		writeDomainError(w, "Failed to mark commission paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(c))
}

// Leaderboard returns ranked per-agent totals over a date range.
// GET /api/commissions/leaderboard?tenant_id=&metric=&from=&to=&limit=
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := commission.TenantID(q.Get("tenant_id"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}

	metric := commission.MetricCommission
	if m := q.Get("metric"); m != "" {
		switch commission.LeaderboardMetric(m) {
		case commission.MetricSales:
			metric = commission.MetricSales
		case commission.MetricCommission:
			metric = commission.MetricCommission
		default:
			writeError(w, http.StatusBadRequest, "unknown metric: "+m, nil)
			return
		}
	}

	from, to, err := parseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	limit := 10
	if l := q.Get("limit"); l != "" {
		n, err := parsePositiveInt(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	query := LeaderboardQuery{
		TenantID: tenantID,
		Metric:   metric,
		From:     from,
		To:       to,
		Limit:    limit,
	}

	if h.Cache != nil {
		if entries, ok := h.Cache.Get(r.Context(), query); ok {
			writeJSON(w, http.StatusOK, toLeaderboardDTOs(entries))
			return
		}
	}

	entries, err := h.Store.Leaderboard(r.Context(), tenantID, metric, from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build leaderboard", err)
		return
	}

	if h.Cache != nil {
		h.Cache.Set(r.Context(), query, entries)
	}
	writeJSON(w, http.StatusOK, toLeaderboardDTOs(entries))
}

func (h *Handler) invalidateLeaderboard(r *http.Request, tenantID commission.TenantID) {
	if h.Cache != nil {
		h.Cache.Invalidate(r.Context(), tenantID)
	}
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns a tenant's active rules.
// GET /api/rules?tenant_id=
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	tenantID := commission.TenantID(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}

	rules, err := h.Store.ListActiveRules(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]factory.RuleJSON, 0, len(rules))
	for i := range rules {
		rj, err := h.RuleFactory.ToJSON(&rules[i])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to serialize rule", err)
			return
		}
		dtos = append(dtos, rj)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule creates or updates a rule from its JSON form.
// POST /api/rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if rj.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}
	if rj.ID == "" {
		rj.ID = uuid.NewString()
	}

	rule, err := h.RuleFactory.FromJSON(rj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule definition", err)
		return
	}

	if err := h.Store.SaveRule(r.Context(), *rule); err != nil {
		writeDomainError(w, "Failed to save rule", err)
		return
	}

	out, err := h.RuleFactory.ToJSON(rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// GetRule returns a single rule.
// GET /api/rules/{id}?tenant_id=
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	tenantID := commission.TenantID(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}
	id := commission.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Store.GetRule(r.Context(), tenantID, id)
	if err != nil {
		writeDomainError(w, "Failed to get rule", err)
		return
	}

	rj, err := h.RuleFactory.ToJSON(rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize rule", err)
		return
	}
	writeJSON(w, http.StatusOK, rj)
}

// DeactivateRule retires a rule from automatic selection. Rules
// referenced by commissions are never deleted.
// POST /api/rules/{id}/deactivate?tenant_id=
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	tenantID := commission.TenantID(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}
	id := commission.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Store.GetRule(r.Context(), tenantID, id)
	if err != nil {
		writeDomainError(w, "Failed to get rule", err)
		return
	}

	rule.IsActive = false
	if err := h.Store.SaveRule(r.Context(), *rule); err != nil {
		writeDomainError(w, "Failed to deactivate rule", err)
		return
	}

	rj, err := h.RuleFactory.ToJSON(rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize rule", err)
		return
	}
	writeJSON(w, http.StatusOK, rj)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateAssignment pins an agent to a rule.
// POST /api/admin/assignments
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TenantID == "" || req.AgentID == "" || req.RuleID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id, agent_id and rule_id are required", nil)
		return
	}

	// The rule must exist under this tenant before it can be assigned.
	if _, err := h.Store.GetRule(r.Context(), commission.TenantID(req.TenantID), commission.RuleID(req.RuleID)); err != nil {
		writeDomainError(w, "Failed to resolve rule", err)
		return
	}

	a := commission.RuleAssignment{
		ID:        uuid.NewString(),
		TenantID:  commission.TenantID(req.TenantID),
		AgentID:   commission.AgentID(req.AgentID),
		RuleID:    commission.RuleID(req.RuleID),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveAssignment(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": a.ID})
}

// TriggerSweep recomputes all non-paid commissions.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	result, err := h.Ledger.SweepPending(r.Context(), commission.TenantID(req.TenantID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}

	resp := SweepResponseDTO{
		Recomputed: result.Recomputed,
		Failed:     result.Failed,
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ORDER INGESTION
// =============================================================================

// IngestOrders accepts a batch of order rows from the Orders/Sales feed.
// POST /api/orders
func (h *Handler) IngestOrders(w http.ResponseWriter, r *http.Request) {
	var req IngestOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Orders) == 0 {
		writeError(w, http.StatusBadRequest, "orders must not be empty", nil)
		return
	}

	orders := make([]commission.Order, 0, len(req.Orders))
	for _, o := range req.Orders {
		if o.ID == "" || o.TenantID == "" || o.AgentID == "" {
			writeError(w, http.StatusBadRequest, "order id, tenant_id and agent_id are required", nil)
			return
		}
		orderDate, err := parseTimestamp(o.OrderDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid order_date for order "+o.ID, err)
			return
		}
		orders = append(orders, commission.Order{
			ID:          o.ID,
			TenantID:    commission.TenantID(o.TenantID),
			AgentID:     commission.AgentID(o.AgentID),
			TotalAmount: o.TotalAmount,
			Status:      commission.OrderStatus(o.Status),
			OrderDate:   orderDate,
		})
	}

	if err := h.Store.SaveOrders(r.Context(), orders); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save orders", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"ingested": len(orders)})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func parsePeriod(start, end string) (commission.Period, error) {
	s, err := parseTimestamp(start)
	if err != nil {
		return commission.Period{}, err
	}
	e, err := parseTimestamp(end)
	if err != nil {
		return commission.Period{}, err
	}
	p := commission.Period{Start: s, End: e}
	return p, p.Validate()
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	f, err := parseTimestamp(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := parseTimestamp(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return f, t, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to status and machine-readable code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case commission.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, commission.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, commission.ErrImmutableCommission):
		status, code = http.StatusConflict, "immutable_commission"
	case errors.Is(err, commission.ErrInvalidRule):
		status, code = http.StatusBadRequest, "invalid_rule"
	case errors.Is(err, commission.ErrInvalidPeriod):
		status, code = http.StatusBadRequest, "invalid_period"
	case errors.Is(err, commission.ErrAggregationFailed):
		status, code = http.StatusBadGateway, "aggregation_failed"
	}

	resp := ErrorResponse{Error: message, Code: code, Details: err.Error()}
	writeJSON(w, status, resp)
}

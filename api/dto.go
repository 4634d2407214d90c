/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  All monetary fields cross the wire as decimal strings ("8750.00"),
  never as JSON numbers - clients must not round-trip money through
  float64.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type (rule create/response bodies)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

// =============================================================================
// COMMISSION TYPES
// =============================================================================

// CommissionDTO represents a commission ledger row in API responses.
type CommissionDTO struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenant_id"`
	AgentID     string  `json:"agent_id"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	TotalSales  string  `json:"total_sales"`
	OrderCount  int     `json:"order_count"`
	RuleID      *string `json:"rule_id,omitempty"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	PaidAt      *string `json:"paid_at,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toCommissionDTO(c *commission.Commission) CommissionDTO {
	dto := CommissionDTO{
		ID:          string(c.ID),
		TenantID:    string(c.TenantID),
		AgentID:     string(c.AgentID),
		PeriodStart: c.Period.Start.UTC().Format(time.RFC3339),
		PeriodEnd:   c.Period.End.UTC().Format(time.RFC3339),
		TotalSales:  c.TotalSales.String(),
		OrderCount:  c.OrderCount,
		Amount:      c.Amount.String(),
		Status:      string(c.Status),
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.RuleID != nil {
		id := string(*c.RuleID)
		dto.RuleID = &id
	}
	if c.PaidAt != nil {
		t := c.PaidAt.UTC().Format(time.RFC3339)
		dto.PaidAt = &t
	}
	return dto
}

// RecalculateRequest asks for a commission (re)calculation.
type RecalculateRequest struct {
	TenantID    string  `json:"tenant_id"`
	AgentID     string  `json:"agent_id"`
	PeriodStart string  `json:"period_start"` // RFC 3339 or YYYY-MM-DD.
	PeriodEnd   string  `json:"period_end"`
	RuleID      *string `json:"rule_id,omitempty"` // Pins the rule; bypasses selection.
}

// ApproveRequest carries optional reviewer notes recorded on approval.
type ApproveRequest struct {
	Notes string `json:"notes,omitempty"`
}

// PayRequest carries the optional payout timestamp.
type PayRequest struct {
	PaidAt string `json:"paid_at,omitempty"` // Defaults to now.
}

// =============================================================================
// LEADERBOARD TYPES
// =============================================================================

// LeaderboardEntryDTO is one ranked agent.
type LeaderboardEntryDTO struct {
	Rank            int    `json:"rank"`
	AgentID         string `json:"agent_id"`
	TotalSales      string `json:"total_sales"`
	TotalCommission string `json:"total_commission"`
	Periods         int    `json:"periods"`
}

func toLeaderboardDTOs(entries []commission.LeaderboardEntry) []LeaderboardEntryDTO {
	dtos := make([]LeaderboardEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LeaderboardEntryDTO{
			Rank:            i + 1,
			AgentID:         string(e.AgentID),
			TotalSales:      e.TotalSales.String(),
			TotalCommission: e.TotalCommission.String(),
			Periods:         e.Periods,
		}
	}
	return dtos
}

// =============================================================================
// ADMIN TYPES
// =============================================================================

// AssignmentRequest pins an agent to a rule.
type AssignmentRequest struct {
	TenantID string `json:"tenant_id"`
	AgentID  string `json:"agent_id"`
	RuleID   string `json:"rule_id"`
}

// SweepRequest scopes a batch recompute. Empty tenant sweeps all.
type SweepRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
}

// SweepResponseDTO summarizes a sweep run.
type SweepResponseDTO struct {
	Recomputed int      `json:"recomputed"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// =============================================================================
// ORDER INGESTION TYPES
// =============================================================================

// OrderDTO is one order row in the ingestion feed.
type OrderDTO struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	AgentID     string          `json:"agent_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	OrderDate   string          `json:"order_date"`
}

// IngestOrdersRequest is a batch of orders from the Orders/Sales system.
type IngestOrdersRequest struct {
	Orders []OrderDTO `json:"orders"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the standard error payload. Code is machine-readable;
// clients branch on it, never on the message text.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

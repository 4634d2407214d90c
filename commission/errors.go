/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers decide what to do by KIND, never by message text:

  1. Configuration errors (RuleNotFound, InvalidRule) - fix the rule data;
     never retried, never auto-corrected.
  2. Transient errors (AggregationFailed) - the orders source was
     unreachable; retryable with backoff.
  3. State errors (InvalidTransition, ImmutableCommission) - caller logic
     error; rejected synchronously, no retry, no silent no-op.

USAGE:
  if errors.Is(err, commission.ErrImmutableCommission) { ... }

  var itErr *commission.InvalidTransitionError
  if errors.As(err, &itErr) { log.Println(itErr.From, itErr.To) }
*/
package commission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when an explicitly requested rule does not
	// exist or belongs to a different tenant.
	ErrRuleNotFound = errors.New("commission rule not found")

	// ErrInvalidRule is returned when a rule's configuration cannot be
	// applied: unrecognized rule type, or a tiered rule with no tiers.
	ErrInvalidRule = errors.New("invalid commission rule")

	// ErrAggregationFailed is returned when the external orders source is
	// unreachable. Retryable.
	ErrAggregationFailed = errors.New("sales aggregation failed")

	// ErrInvalidTransition is returned for illegal settlement transitions
	// (paying an unapproved commission, approving twice, ...).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrImmutableCommission is returned when recompute is attempted on a
	// paid commission. Corrections require an out-of-band adjustment.
	ErrImmutableCommission = errors.New("commission is paid and immutable")

	// ErrCommissionNotFound is returned when a referenced commission row
	// does not exist.
	ErrCommissionNotFound = errors.New("commission not found")

	// ErrInvalidPeriod is returned when a period is malformed (end not
	// strictly after start).
	ErrInvalidPeriod = errors.New("invalid period: end must be after start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRuleError details why a rule configuration is unusable.
type InvalidRuleError struct {
	RuleID RuleID
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %s: %s", e.RuleID, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }

// InvalidTransitionError details an illegal settlement transition.
type InvalidTransitionError struct {
	CommissionID CommissionID
	From         Status
	To           Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("commission %s: cannot transition %s -> %s", e.CommissionID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ImmutableCommissionError identifies the paid row a mutation bounced off.
type ImmutableCommissionError struct {
	CommissionID CommissionID
	Key          CommissionKey
}

func (e *ImmutableCommissionError) Error() string {
	return fmt.Sprintf("commission %s (%s) is paid and cannot be recomputed", e.CommissionID, e.Key)
}

func (e *ImmutableCommissionError) Unwrap() error { return ErrImmutableCommission }

// AggregationError wraps the underlying orders-source failure.
type AggregationError struct {
	Key CommissionKey
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregating sales for %s: %v", e.Key, e.Err)
}

func (e *AggregationError) Unwrap() error { return ErrAggregationFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAggregationFailed)
}

// IsClientError returns true if the error is due to invalid caller input
// or caller logic, as opposed to an engine/infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrImmutableCommission) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrCommissionNotFound)
}

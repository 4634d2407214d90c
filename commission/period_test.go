package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodContainsIsHalfOpen(t *testing.T) {
	p := MonthPeriod(2026, time.January)

	assert.True(t, p.Contains(p.Start), "start instant belongs to the period")
	assert.False(t, p.Contains(p.End), "end instant belongs to the NEXT period")
	assert.True(t, p.Contains(p.End.Add(-time.Nanosecond)))
	assert.False(t, p.Contains(p.Start.Add(-time.Nanosecond)))
}

func TestPeriodValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, Period{Start: start, End: start.AddDate(0, 1, 0)}.Validate())
	assert.ErrorIs(t, Period{Start: start, End: start}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, Period{Start: start, End: start.AddDate(0, -1, 0)}.Validate(), ErrInvalidPeriod)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
	assert.True(t, StatusApproved.CanTransitionTo(StatusPaid))

	// No skips, nothing backward, paid is terminal.
	assert.False(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.False(t, StatusApproved.CanTransitionTo(StatusPending))
	assert.False(t, StatusPaid.CanTransitionTo(StatusApproved))
	assert.False(t, StatusPaid.CanTransitionTo(StatusPending))
}

package commission

import "time"

// =============================================================================
// PERIOD - Half-open date range for one commission calculation
// =============================================================================

// Period is the half-open interval [Start, End) over which sales are
// aggregated for one commission calculation. An order dated exactly at
// End belongs to the NEXT period, never to this one.
//
// Examples:
//   - January 2025: [2025-01-01, 2025-02-01)
//   - Q1 2025:      [2025-01-01, 2025-04-01)
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Validate returns ErrInvalidPeriod unless End is strictly after Start.
func (p Period) Validate() error {
	if !p.End.After(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Equal reports whether two periods cover the same instant range.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// String renders the period as "[start, end)" with date precision.
func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + ")"
}

// MonthPeriod returns the calendar-month period containing the given date.
// Convenient for the common monthly settlement cycle.
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

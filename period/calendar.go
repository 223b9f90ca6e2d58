package period

import "time"

// =============================================================================
// CALENDAR PROJECTOR - "now" to schedule-aware period defaults
// =============================================================================

// DateLayout is the storage and form format of received dates.
const DateLayout = "2006-01-02"

// CurrentPeriod returns the period containing now: the calendar month for
// monthly, ceil(month/3) for quarterly. Absent or unknown schedules get the
// quarterly projection.
func CurrentPeriod(now time.Time, s Schedule) int {
	month := int(now.Month())
	if s.orQuarterly() == Monthly {
		return month
	}
	return QuarterOfMonth(month)
}

// Containing returns the token of the period containing t. s falls back to
// Quarterly like CurrentPeriod.
func Containing(t time.Time, s Schedule) Token {
	s = s.orQuarterly()
	return NewToken(s, CurrentPeriod(t, s), t.Year())
}

// PreviousPeriod steps one period back, wrapping at the year boundary
// (quarter 1 -> quarter 4 of the prior year, month 1 -> month 12).
func PreviousPeriod(p, year int, s Schedule) (int, int) {
	if p <= 1 {
		return s.orQuarterly().PeriodsPerYear(), year - 1
	}
	return p - 1, year
}

// ProjectFromDate returns the period immediately before the one containing
// date: the arrears default for a payment received on that day. An
// unparseable date falls back to the period before the current one.
func ProjectFromDate(date string, s Schedule, now time.Time) Point {
	s = s.orQuarterly()
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		t = now
	}
	return Containing(t, s).Prev().Point
}

// Due returns the newest period a payment may settle at now: the arrears
// default for a new draft.
func Due(s Schedule, now time.Time) Token {
	return Containing(now, s).Prev()
}

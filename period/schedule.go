/*
Package period maps wall-clock dates onto the billing periods that provider
payments settle.

PURPOSE:
  Providers pay advisory fees on a monthly or quarterly schedule, always in
  arrears. This package owns everything that reasons about those periods:

  - Schedule:   the cadence tag (monthly, quarterly) and its capability set
  - Calendar:   current / previous period projection from a date
  - Codec:      display tokens ("Jan 2024", "Q1 2024") <-> (period, year)
  - Validator:  arrears and ordering rules for a (start, end) range

ORDINALS:
  Every comparison goes through the ordinal year*periods_per_year + period.
  Ordinals are only comparable within one schedule.

CLOCK:
  Nothing in this package reads time.Now directly. Callers pass "now" in,
  usually from a Clock (see clock.go), so behavior is reproducible in tests.

SEE ALSO:
  - fee/: expected fee computation
  - payment/: the engine that combines periods, fees and storage
*/
package period

import "strings"

// =============================================================================
// SCHEDULE - Payment cadence of a contract
// =============================================================================

// Schedule is the payment cadence a contract bills on.
// The zero value means the contract has no schedule.
type Schedule string

const (
	None      Schedule = ""
	Monthly   Schedule = "monthly"
	Quarterly Schedule = "quarterly"
)

// ParseSchedule normalizes a stored or user-supplied schedule tag.
// Unknown values are returned as-is so callers can reject them via Valid.
func ParseSchedule(s string) Schedule {
	return Schedule(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether s is one of the supported cadences.
func (s Schedule) Valid() bool {
	return s == Monthly || s == Quarterly
}

// PeriodsPerYear returns 12 for monthly, 4 for quarterly and 0 otherwise.
func (s Schedule) PeriodsPerYear() int {
	switch s {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	default:
		return 0
	}
}

// Unit is the human noun for one period ("month" or "quarter"), used by the
// form layer to phrase error messages.
func (s Schedule) Unit() string {
	switch s {
	case Monthly:
		return "month"
	case Quarterly:
		return "quarter"
	default:
		return "period"
	}
}

// WindowSize is how many periods Enumerate walks back.
func (s Schedule) WindowSize() int {
	switch s {
	case Monthly:
		return 24
	case Quarterly:
		return 8
	default:
		return 0
	}
}

// orQuarterly returns s when valid and Quarterly otherwise. Calendar
// projections fall back to quarters when the schedule is absent or unknown.
func (s Schedule) orQuarterly() Schedule {
	if s.Valid() {
		return s
	}
	return Quarterly
}

func (s Schedule) String() string { return string(s) }

package period

import "time"

// =============================================================================
// RANGE VALIDATOR - Arrears and ordering rules for a (start, end) pair
// =============================================================================

// Reason is a coded range violation. The form layer maps reasons onto
// "month" or "quarter" wording via Schedule.Unit.
type Reason string

const (
	ReasonNoSchedule        Reason = "no_schedule"
	ReasonMalformedToken    Reason = "malformed_token"
	ReasonStartNotInArrears Reason = "start_not_in_arrears"
	ReasonEndNotInArrears   Reason = "end_not_in_arrears"
	ReasonEndBeforeStart    Reason = "end_before_start"
)

// Range is a contiguous run of periods, both ends inclusive.
type Range struct {
	Start Point
	End   Point
}

// Single is a one-period range.
func Single(p Point) Range {
	return Range{Start: p, End: p}
}

// Validate checks r under s at the instant now. It returns every violated
// rule; an empty result means the range is admissible.
//
//  1. s is present
//  2. both ends are well formed
//  3. ordinal(start) <= ordinal(end)
//  4. ordinal(end)   <  ordinal(current period)
//  5. ordinal(start) <  ordinal(current period)
func Validate(r Range, s Schedule, now time.Time) []Reason {
	if !s.Valid() {
		return []Reason{ReasonNoSchedule}
	}
	if !WellFormed(r.Start, s) || !WellFormed(r.End, s) {
		return []Reason{ReasonMalformedToken}
	}

	var reasons []Reason
	current := Containing(now, s).Ordinal()
	start := Ordinal(r.Start.Period, r.Start.Year, s)
	end := Ordinal(r.End.Period, r.End.Year, s)

	if start >= current {
		reasons = append(reasons, ReasonStartNotInArrears)
	}
	if end >= current {
		reasons = append(reasons, ReasonEndNotInArrears)
	}
	if start > end {
		reasons = append(reasons, ReasonEndBeforeStart)
	}
	return reasons
}

// EndCandidates filters Enumerate(s, now) down to the tokens that are legal
// end periods for start. The form layer shows this list verbatim.
func EndCandidates(start Point, s Schedule, now time.Time) []Token {
	var out []Token
	for _, t := range Enumerate(s, now) {
		if len(Validate(Range{Start: start, End: t.Point}, s, now)) == 0 {
			out = append(out, t)
		}
	}
	return out
}

// Label renders r for display: a single token when start equals end,
// otherwise "start - end".
func (r Range) Label(s Schedule) string {
	start := Format(r.Start.Period, r.Start.Year, s)
	if r.Start == r.End {
		return start
	}
	return start + " - " + Format(r.End.Period, r.End.Year, s)
}

// Len is the number of periods in r under s, or 0 when r is not ordered.
func (r Range) Len(s Schedule) int {
	n := Ordinal(r.End.Period, r.End.Year, s) - Ordinal(r.Start.Period, r.Start.Year, s) + 1
	if n < 0 {
		return 0
	}
	return n
}

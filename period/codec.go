package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoSchedule is returned when a period operation needs a schedule and
	// none was given.
	ErrNoSchedule = errors.New("no payment schedule")

	// ErrMalformedToken is returned when a display token does not parse under
	// the stated schedule.
	ErrMalformedToken = errors.New("malformed period token")
)

// NotApplicable is what Format renders for periods it cannot express.
const NotApplicable = "N/A"

var monthAbbrev = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// =============================================================================
// POINT / TOKEN
// =============================================================================

// Point is a (period, year) pair. Period is a month (1-12) or a quarter (1-4)
// depending on the schedule it is read under.
type Point struct {
	Period int
	Year   int
}

// Token is a Point bound to its schedule.
type Token struct {
	Schedule Schedule
	Point
}

// NewToken builds a token without validating it.
func NewToken(s Schedule, p, year int) Token {
	return Token{Schedule: s, Point: Point{Period: p, Year: year}}
}

// Valid reports whether the period is legal for the schedule and the year is
// a positive four-digit year.
func (t Token) Valid() bool {
	return WellFormed(t.Point, t.Schedule)
}

// Ordinal is year*periods_per_year + period under the token's schedule.
func (t Token) Ordinal() int {
	return Ordinal(t.Period, t.Year, t.Schedule)
}

// Prev is the period immediately before t.
func (t Token) Prev() Token {
	p, y := PreviousPeriod(t.Period, t.Year, t.Schedule)
	return NewToken(t.Schedule, p, y)
}

// String renders the display token, or "N/A" when t is not valid.
func (t Token) String() string {
	return Format(t.Period, t.Year, t.Schedule)
}

// Quarter maps the token onto the quarter that contains it. Monthly periods
// map to ceil(month/3); quarterly periods are returned unchanged.
func (t Token) Quarter() int {
	if t.Schedule == Monthly {
		return QuarterOfMonth(t.Period)
	}
	return t.Period
}

// QuarterOfMonth returns ceil(month/3).
func QuarterOfMonth(month int) int {
	return (month + 2) / 3
}

// WellFormed reports whether p is a legal period under s.
func WellFormed(p Point, s Schedule) bool {
	if !s.Valid() {
		return false
	}
	return p.Period >= 1 && p.Period <= s.PeriodsPerYear() && p.Year >= 1 && p.Year <= 9999
}

// =============================================================================
// CODEC
// =============================================================================

// Ordinal returns year*periods_per_year + period. Ordinals are total-ordered
// within a schedule and are the only basis for range comparisons.
func Ordinal(p, year int, s Schedule) int {
	return year*s.PeriodsPerYear() + p
}

// Format renders a display token: "Jan 2024" for monthly, "Q1 2024" for
// quarterly. It returns "N/A" when s is absent or p is out of range.
func Format(p, year int, s Schedule) string {
	if !WellFormed(Point{Period: p, Year: year}, s) {
		return NotApplicable
	}
	if s == Monthly {
		return fmt.Sprintf("%s %04d", monthAbbrev[p-1], year)
	}
	return fmt.Sprintf("Q%d %04d", p, year)
}

// Parse converts a display token back into a Token. Tokens of one schedule
// never parse under the other.
func Parse(token string, s Schedule) (Token, error) {
	if !s.Valid() {
		return Token{}, ErrNoSchedule
	}

	label, yearPart, ok := strings.Cut(token, " ")
	if !ok || strings.Contains(yearPart, " ") {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	year, err := parseYear(yearPart)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %q: %v", ErrMalformedToken, token, err)
	}

	var p int
	switch s {
	case Monthly:
		p = monthIndex(label)
	case Quarterly:
		p = quarterIndex(label)
	}
	if p == 0 {
		return Token{}, fmt.Errorf("%w: %q is not a %s", ErrMalformedToken, label, s.Unit())
	}

	return NewToken(s, p, year), nil
}

func parseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, errors.New("year must have four digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("year must be numeric")
		}
	}
	year, _ := strconv.Atoi(s)
	if year < 1 {
		return 0, errors.New("year must be positive")
	}
	return year, nil
}

func monthIndex(label string) int {
	for i, m := range monthAbbrev {
		if label == m {
			return i + 1
		}
	}
	return 0
}

func quarterIndex(label string) int {
	if len(label) != 2 || label[0] != 'Q' {
		return 0
	}
	q := int(label[1] - '0')
	if q < 1 || q > 4 {
		return 0
	}
	return q
}

// Enumerate lists the selectable periods for a schedule, newest first. It
// starts at the period before the one containing now and walks back 24
// months or 8 quarters. The result is empty when s is not a valid schedule.
func Enumerate(s Schedule, now time.Time) []Token {
	if !s.Valid() {
		return nil
	}
	n := s.WindowSize()
	out := make([]Token, 0, n)
	t := Containing(now, s).Prev()
	for i := 0; i < n; i++ {
		out = append(out, t)
		t = t.Prev()
	}
	return out
}

// Strings renders tokens with Format.
func Strings(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.String()
	}
	return out
}

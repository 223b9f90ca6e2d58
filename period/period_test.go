package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fee-engine/period"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var march15 = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

var schedules = []period.Schedule{period.Monthly, period.Quarterly}

func pt(p, y int) period.Point { return period.Point{Period: p, Year: y} }

// =============================================================================
// CALENDAR PROJECTOR
// =============================================================================

func TestCurrentPeriod(t *testing.T) {
	assert.Equal(t, 3, period.CurrentPeriod(march15, period.Monthly))
	assert.Equal(t, 1, period.CurrentPeriod(march15, period.Quarterly))

	// Absent schedule falls back to the quarterly projection
	assert.Equal(t, 1, period.CurrentPeriod(march15, period.None))
	assert.Equal(t, 4, period.CurrentPeriod(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), "weekly"))
}

func TestPreviousPeriod_WrapsAtYearBoundary(t *testing.T) {
	p, y := period.PreviousPeriod(1, 2024, period.Quarterly)
	assert.Equal(t, 4, p)
	assert.Equal(t, 2023, y)

	p, y = period.PreviousPeriod(1, 2024, period.Monthly)
	assert.Equal(t, 12, p)
	assert.Equal(t, 2023, y)

	p, y = period.PreviousPeriod(7, 2024, period.Monthly)
	assert.Equal(t, 6, p)
	assert.Equal(t, 2024, y)
}

func TestProjectFromDate(t *testing.T) {
	assert.Equal(t, pt(4, 2023), period.ProjectFromDate("2024-03-15", period.Quarterly, march15))
	assert.Equal(t, pt(2, 2024), period.ProjectFromDate("2024-03-15", period.Monthly, march15))
	assert.Equal(t, pt(12, 2023), period.ProjectFromDate("2024-01-02", period.Monthly, march15))
	assert.Equal(t, pt(2, 2024), period.ProjectFromDate("2024-07-01", period.Quarterly, march15))
}

func TestProjectFromDate_UnparseableFallsBackToNow(t *testing.T) {
	assert.Equal(t, pt(4, 2023), period.ProjectFromDate("03/15/2024", period.Quarterly, march15))
	assert.Equal(t, pt(2, 2024), period.ProjectFromDate("", period.Monthly, march15))
}

// =============================================================================
// PERIOD CODEC
// =============================================================================

func TestFormat(t *testing.T) {
	assert.Equal(t, "Jan 2024", period.Format(1, 2024, period.Monthly))
	assert.Equal(t, "Dec 2023", period.Format(12, 2023, period.Monthly))
	assert.Equal(t, "Q4 2023", period.Format(4, 2023, period.Quarterly))

	assert.Equal(t, "N/A", period.Format(1, 2024, period.None))
	assert.Equal(t, "N/A", period.Format(5, 2024, period.Quarterly))
	assert.Equal(t, "N/A", period.Format(13, 2024, period.Monthly))
	assert.Equal(t, "N/A", period.Format(0, 2024, period.Monthly))
}

func TestParse(t *testing.T) {
	tok, err := period.Parse("Jan 2024", period.Monthly)
	require.NoError(t, err)
	assert.Equal(t, period.NewToken(period.Monthly, 1, 2024), tok)

	tok, err = period.Parse("Q3 2022", period.Quarterly)
	require.NoError(t, err)
	assert.Equal(t, period.NewToken(period.Quarterly, 3, 2022), tok)
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		schedule period.Schedule
	}{
		{"quarter token under monthly", "Q1 2024", period.Monthly},
		{"month token under quarterly", "Jan 2024", period.Quarterly},
		{"lowercase month", "jan 2024", period.Monthly},
		{"full month name", "January 2024", period.Monthly},
		{"quarter five", "Q5 2024", period.Quarterly},
		{"quarter zero", "Q0 2024", period.Quarterly},
		{"two-digit year", "Q1 24", period.Quarterly},
		{"no year", "Jan", period.Monthly},
		{"extra space", "Jan  2024", period.Monthly},
		{"trailing text", "Jan 2024 x", period.Monthly},
		{"empty", "", period.Quarterly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := period.Parse(tc.token, tc.schedule)
			assert.ErrorIs(t, err, period.ErrMalformedToken)
		})
	}

	_, err := period.Parse("Q1 2024", period.None)
	assert.ErrorIs(t, err, period.ErrNoSchedule)
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, s := range schedules {
		for year := 1999; year <= 2030; year++ {
			for p := 1; p <= s.PeriodsPerYear(); p++ {
				tok, err := period.Parse(period.Format(p, year, s), s)
				require.NoError(t, err)
				assert.Equal(t, pt(p, year), tok.Point)
			}
		}
		for _, tok := range period.Strings(period.Enumerate(s, march15)) {
			parsed, err := period.Parse(tok, s)
			require.NoError(t, err)
			assert.Equal(t, tok, parsed.String())
		}
	}
}

func TestOrdinal(t *testing.T) {
	assert.Equal(t, 2024*12+3, period.Ordinal(3, 2024, period.Monthly))
	assert.Equal(t, 2024*4+1, period.Ordinal(1, 2024, period.Quarterly))
	assert.Less(t, period.Ordinal(4, 2023, period.Quarterly), period.Ordinal(1, 2024, period.Quarterly))
}

func TestEnumerate_Quarterly(t *testing.T) {
	// GIVEN: Wall clock 2024-03-15 (Q1 2024)
	// THEN: 8 quarters from Q4 2023 back to Q1 2022, current quarter absent
	tokens := period.Strings(period.Enumerate(period.Quarterly, march15))

	require.Len(t, tokens, 8)
	assert.Equal(t, "Q4 2023", tokens[0])
	assert.Equal(t, "Q1 2022", tokens[7])
	assert.NotContains(t, tokens, "Q1 2024")
}

func TestEnumerate_Monthly(t *testing.T) {
	tokens := period.Strings(period.Enumerate(period.Monthly, march15))

	require.Len(t, tokens, 24)
	assert.Equal(t, "Feb 2024", tokens[0])
	assert.Equal(t, "Mar 2022", tokens[23])
	assert.NotContains(t, tokens, "Mar 2024")
}

func TestEnumerate_JanuaryWrapsToPriorYear(t *testing.T) {
	// GIVEN: A clock in the first month of the year
	jan10 := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

	// THEN: Both schedules start in the prior year
	quarters := period.Strings(period.Enumerate(period.Quarterly, jan10))
	require.Len(t, quarters, 8)
	assert.Equal(t, "Q4 2023", quarters[0])
	assert.Equal(t, "Q1 2022", quarters[7])
	assert.Equal(t, "Q4 2023", period.Due(period.Quarterly, jan10).String())

	months := period.Strings(period.Enumerate(period.Monthly, jan10))
	require.Len(t, months, 24)
	assert.Equal(t, "Dec 2023", months[0])
	assert.Equal(t, "Jan 2022", months[23])
	assert.Equal(t, "Dec 2023", period.Due(period.Monthly, jan10).String())
}

func TestEnumerate_NoSchedule(t *testing.T) {
	assert.Empty(t, period.Enumerate(period.None, march15))
	assert.Empty(t, period.Enumerate("annual", march15))
}

func TestEnumerate_StrictlyDecreasingAndInArrears(t *testing.T) {
	instants := []time.Time{
		march15,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, now := range instants {
		for _, s := range schedules {
			tokens := period.Enumerate(s, now)
			current := period.Containing(now, s).Ordinal()
			for i, tok := range tokens {
				assert.Less(t, tok.Ordinal(), current, "token %s at %s", tok, now)
				if i > 0 {
					assert.Less(t, tok.Ordinal(), tokens[i-1].Ordinal())
				}
			}
		}
	}
}

// =============================================================================
// RANGE VALIDATOR
// =============================================================================

func TestValidate_RejectsCurrentPeriod(t *testing.T) {
	// GIVEN: Monthly schedule, wall clock in March 2024
	// WHEN: The draft settles March 2024
	// THEN: Both ends are outside arrears
	reasons := period.Validate(period.Single(pt(3, 2024)), period.Monthly, march15)

	assert.ElementsMatch(t, []period.Reason{
		period.ReasonStartNotInArrears,
		period.ReasonEndNotInArrears,
	}, reasons)
}

func TestValidate_MultiQuarterRange(t *testing.T) {
	r := period.Range{Start: pt(2, 2023), End: pt(4, 2023)}
	assert.Empty(t, period.Validate(r, period.Quarterly, march15))
}

func TestValidate_EndBeforeStart(t *testing.T) {
	r := period.Range{Start: pt(4, 2023), End: pt(2, 2023)}
	assert.Equal(t, []period.Reason{period.ReasonEndBeforeStart},
		period.Validate(r, period.Quarterly, march15))
}

func TestValidate_EndInFuture(t *testing.T) {
	r := period.Range{Start: pt(4, 2023), End: pt(2, 2024)}
	assert.Equal(t, []period.Reason{period.ReasonEndNotInArrears},
		period.Validate(r, period.Quarterly, march15))
}

func TestValidate_NoScheduleAndMalformed(t *testing.T) {
	assert.Equal(t, []period.Reason{period.ReasonNoSchedule},
		period.Validate(period.Single(pt(1, 2023)), period.None, march15))
	assert.Equal(t, []period.Reason{period.ReasonMalformedToken},
		period.Validate(period.Range{Start: pt(5, 2023), End: pt(1, 2023)}, period.Quarterly, march15))
	assert.Equal(t, []period.Reason{period.ReasonMalformedToken},
		period.Validate(period.Single(pt(1, 0)), period.Monthly, march15))
}

func TestValidate_Stable(t *testing.T) {
	r := period.Range{Start: pt(3, 2024), End: pt(1, 2024)}
	first := period.Validate(r, period.Monthly, march15)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, period.Validate(r, period.Monthly, march15))
	}
}

func TestEndCandidates_Sound(t *testing.T) {
	for _, s := range schedules {
		for _, start := range period.Enumerate(s, march15) {
			ends := period.EndCandidates(start.Point, s, march15)
			require.NotEmpty(t, ends, "start %s always admits itself", start)
			assert.Equal(t, start, ends[len(ends)-1])
			for _, end := range ends {
				assert.Empty(t, period.Validate(period.Range{Start: start.Point, End: end.Point}, s, march15))
			}
		}
	}
}

func TestEndCandidates_Quarterly(t *testing.T) {
	ends := period.Strings(period.EndCandidates(pt(2, 2023), period.Quarterly, march15))
	assert.Equal(t, []string{"Q4 2023", "Q3 2023", "Q2 2023"}, ends)
}

func TestRange_LabelAndLen(t *testing.T) {
	r := period.Range{Start: pt(2, 2023), End: pt(4, 2023)}
	assert.Equal(t, "Q2 2023 - Q4 2023", r.Label(period.Quarterly))
	assert.Equal(t, 3, r.Len(period.Quarterly))
	assert.Equal(t, "Jan 2024", period.Single(pt(1, 2024)).Label(period.Monthly))
	assert.Equal(t, 0, period.Range{Start: pt(4, 2023), End: pt(1, 2023)}.Len(period.Quarterly))
}

func TestToken_Quarter(t *testing.T) {
	for month, want := range map[int]int{1: 1, 2: 1, 3: 1, 4: 2, 6: 2, 7: 3, 9: 3, 10: 4, 12: 4} {
		assert.Equal(t, want, period.NewToken(period.Monthly, month, 2024).Quarter())
	}
	assert.Equal(t, 3, period.NewToken(period.Quarterly, 3, 2024).Quarter())
}

package period

import "time"

// Clock is the wall-clock source. Read it once per operation; a draft opened
// before a period boundary and saved after it is judged against the new time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Used by tests and replay tooling.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// FixedDate returns a FixedClock pinned to midnight UTC of the given day.
func FixedDate(year int, month time.Month, day int) FixedClock {
	return FixedClock{T: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

package shared

import "time"

// DateLayout is the ISO layout used for date-only values
const DateLayout = "2006-01-02"

// Date truncates t to midnight UTC of its calendar day
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a date-only value
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the current date
func Today() time.Time {
	return Date(time.Now())
}

// Yesterday returns the date before d
func Yesterday(d time.Time) time.Time {
	return Date(d).AddDate(0, 0, -1)
}

// EndOfYear returns 31.12. of d's year
func EndOfYear(d time.Time) time.Time {
	return NewDate(d.Year(), time.December, 31)
}

// SameDate reports whether a and b fall on the same calendar day
func SameDate(a, b time.Time) bool {
	return Date(a).Equal(Date(b))
}

// DatePtr returns a pointer to the date value of t
func DatePtr(t time.Time) *time.Time {
	d := Date(t)
	return &d
}

// Clock returns the current date; tests replace it to pin "today"
type Clock func() time.Time

// SystemClock is the default clock
func SystemClock() time.Time {
	return Today()
}

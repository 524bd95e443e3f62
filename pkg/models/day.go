package models

import (
	"time"
)

// DayLayout is the calendar-day format used for rollover comparisons
const DayLayout = "2006-01-02"

// Day identifies a calendar day (YYYY-MM-DD), not an instant
type Day string

// DayOf returns the calendar day of t in loc
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	return Day(t.In(loc).Format(DayLayout))
}

// IsZero reports whether the day is unset
func (d Day) IsZero() bool {
	return d == ""
}

// Date parses the day as midnight UTC. Full timestamps written by older
// clients are accepted and truncated to their date part.
func (d Day) Date() (time.Time, bool) {
	if d == "" {
		return time.Time{}, false
	}
	s := string(d)
	if len(s) > len(DayLayout) {
		s = s[:len(DayLayout)]
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysUntil returns the whole days from d to other. ok is false when either
// day is unset or malformed.
func (d Day) DaysUntil(other Day) (int, bool) {
	from, ok := d.Date()
	if !ok {
		return 0, false
	}
	to, ok := other.Date()
	if !ok {
		return 0, false
	}
	return int(to.Sub(from).Hours() / 24), true
}

// String implements fmt.Stringer
func (d Day) String() string {
	return string(d)
}

// file: internals/helpers/dbtime/dbtime.go
package dbtime

import (
	"time"
)

const DateLayout = "2006-01-02"

// LocalDateOf returns the calendar date of t in the campus zone, formatted
// YYYY-MM-DD. This is the date component of an attendance record's identity.
// A nil loc means UTC.
func LocalDateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD string (query params, stored keys).
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ToCampusTime converts a stored UTC timestamp for display. Zero stays zero.
func ToCampusTime(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() || loc == nil {
		return t
	}
	return t.In(loc)
}

func ToCampusTimePtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := ToCampusTime(*t, loc)
	return &v
}

// UTC normalizes event times before they are written; stored times are always UTC.
func UTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

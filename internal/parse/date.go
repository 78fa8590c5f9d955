package parse

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used by the history filter.
const DateLayout = "2006-01-02"

// Date parses an ISO calendar date and returns midnight of that day in loc.
// A full RFC3339 timestamp is also accepted; only its calendar date in loc
// is kept.
func Date(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if d, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return d, nil
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", raw)
	}
	return StartOfDay(ts, loc), nil
}

// StartOfDay returns midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

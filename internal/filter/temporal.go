package filter

import (
	"fmt"
	"time"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

type timeUnit int

const (
	unitYear timeUnit = iota
	unitMonth
	unitDay
	unitInstant
)

var truncatedLayouts = []struct {
	layout string
	unit   timeUnit
}{
	{"2006", unitYear},
	{"2006-01", unitMonth},
	{"2006-01-02", unitDay},
	{time.RFC3339, unitInstant},
}

func parseTruncated(s string) (time.Time, timeUnit, error) {
	for _, l := range truncatedLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t.UTC(), l.unit, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("invalid time %q: want YYYY, YYYY-MM, YYYY-MM-DD or RFC3339", s)
}

// endOfUnit turns the start of a truncated period into its inclusive end.
func endOfUnit(start time.Time, u timeUnit) time.Time {
	switch u {
	case unitYear:
		return start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	case unitMonth:
		return start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case unitDay:
		return start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	default:
		return start
	}
}

// ParseInterval expands start and end into an inclusive interval. Truncated
// forms cover their whole unit, so "2024" alone means the entire year and
// "2024-06".."2024-08" runs from June 1st through August 31st. An omitted
// end derives from start's unit; an omitted start leaves the interval open
// towards the past.
func ParseInterval(start, end string) (time.Time, time.Time, error) {
	if start == "" && end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("temporal filter needs a start or an end")
	}

	var from, to time.Time
	if start != "" {
		s, unit, err := parseTruncated(start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
		from = s
		if end == "" {
			to = endOfUnit(s, unit)
		}
	}
	if end != "" {
		e, unit, err := parseTruncated(end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		to = endOfUnit(e, unit)
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("temporal interval ends (%s) before it starts (%s)", end, start)
	}
	return from, to, nil
}

// Temporal keeps the dated entries inside the inclusive interval and reports
// how many undated entries were set aside. Undated entries never match.
func Temporal(c *vpc.Catalog, start, end string) (*vpc.Catalog, int, error) {
	from, to, err := ParseInterval(start, end)
	if err != nil {
		return nil, 0, err
	}
	if c.IsEmpty() {
		return vpc.New(), 0, nil
	}

	kept := c.Filter(func(e vpc.Entry) bool {
		if !e.HasDatetime() {
			return false
		}
		return !e.Datetime.Before(from) && !e.Datetime.After(to)
	})
	return kept, c.Undated(), nil
}

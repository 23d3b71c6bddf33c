package calendar

import (
	"fmt"
	"time"

	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// Intervals is an ordered sequence of boundary times, strictly increasing.
// The first element is the start the sequence was built from; the end it was
// built against is never part of the sequence unless it is itself a boundary.
type Intervals []time.Time

// NextBoundary returns the first granularity boundary strictly after t.
//
//   - Day: t plus one calendar day
//   - Week: the next Monday after t; a Monday advances a full week
//   - Month: the first day of the following month, keeping t's time of day
func NextBoundary(t time.Time, g types.Granularity) (time.Time, error) {
	switch g {
	case types.GranularityDay:
		return t.AddDate(0, 0, 1), nil
	case types.GranularityWeek:
		days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return t.AddDate(0, 0, days), nil
	case types.GranularityMonth:
		// time.Date normalizes month 13 into January of the next year
		return time.Date(t.Year(), t.Month()+1, 1,
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("%w: got %q", types.ErrInvalidGranularity, string(g))
	}
}

// BuildIntervals returns the boundaries between start and end at granularity g.
// The sequence begins with start and keeps appending NextBoundary of the last
// element while it does not exceed end.
func BuildIntervals(start, end time.Time, g types.Granularity) (Intervals, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: start %s, end %s", types.ErrInvalidRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: got %q", err, string(g))
	}

	intervals := Intervals{start}
	current := start
	for {
		next, err := NextBoundary(current, g)
		if err != nil {
			return nil, err
		}
		if next.After(end) {
			break
		}
		intervals = append(intervals, next)
		current = next
	}

	return intervals, nil
}

// Len returns the number of boundaries
func (iv Intervals) Len() int {
	return len(iv)
}

// Last returns the final boundary, or the zero time for an empty sequence
func (iv Intervals) Last() time.Time {
	if len(iv) == 0 {
		return time.Time{}
	}
	return iv[len(iv)-1]
}

// Package calendar computes interval boundaries for the chunking engine.
//
// Boundaries follow calendar rules rather than fixed durations: a day is a
// calendar day, a week ends on the next Monday, and a month ends on the first day
// of the following month with the time of day carried over.
//
//	intervals, err := calendar.BuildIntervals(start, end, types.GranularityWeek)
//	if errors.Is(err, types.ErrInvalidRange) {
//	    // end was not after start
//	}
package calendar

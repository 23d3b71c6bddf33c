package types

import "errors"

// Domain errors shared by the calendar, scanner and chunker
var (
	// ErrInvalidRange is returned when an end boundary is not strictly after its start
	ErrInvalidRange = errors.New("end must be after start")
	// ErrInvalidGranularity is returned for any token outside day, week, month
	ErrInvalidGranularity = errors.New("granularity must be one of: day, week, month")
	// ErrNoTimestampFound is returned when no line of a file matches the timestamp pattern
	ErrNoTimestampFound = errors.New("could not find timestamps in file")
	// ErrInvalidOverlap is returned for a negative overlap margin
	ErrInvalidOverlap = errors.New("overlap days cannot be negative")

	// Search result errors
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between -1 and 1")
	ErrEmptyContent          = errors.New("content cannot be empty")
)

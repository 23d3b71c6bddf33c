package types

import (
	"fmt"
	"strings"
)

// Granularity is the partitioning unit for time windows
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity converts a token into a Granularity.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if err := g.Validate(); err != nil {
		return "", fmt.Errorf("%w: got %q", err, s)
	}
	return g, nil
}

// Validate checks that g is one of the recognized granularities
func (g Granularity) Validate() error {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return nil
	default:
		return ErrInvalidGranularity
	}
}

func (g Granularity) String() string {
	return string(g)
}

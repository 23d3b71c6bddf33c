package types

import (
	"errors"
	"strings"
	"time"
)

// Chunk is a single time-bounded slice of a chat log.
//
// Lines holds every timestamped line whose timestamp falls inside the window, in
// file order and without line terminators. Lines may be empty when a window
// covers a stretch of the log with no activity.
type Chunk struct {
	// Identification
	Source string // Path of the file the chunk was cut from
	Index  int    // 0-based window index within the file

	// Window bounds, overlap already applied
	WindowStart time.Time
	WindowEnd   time.Time

	// Content
	Lines []string
}

// Validate checks the window bounds and index
func (c *Chunk) Validate() error {
	if c.WindowStart.IsZero() || c.WindowEnd.IsZero() {
		return errors.New("window bounds must be set")
	}

	if c.WindowEnd.Before(c.WindowStart) {
		return errors.New("window start must be before or equal to window end")
	}

	if c.Index < 0 {
		return errors.New("window index cannot be negative")
	}

	return nil
}

// IsEmpty reports whether the window captured no lines
func (c *Chunk) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Text joins the lines back into the text they were read from, one line per row
// with a trailing newline. An empty chunk yields "".
func (c *Chunk) Text() string {
	if len(c.Lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, line := range c.Lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Size returns the number of characters (runes) in the chunk text
func (c *Chunk) Size() int {
	n := 0
	for _, line := range c.Lines {
		n += len([]rune(line)) + 1
	}
	return n
}

// Contains reports whether t falls inside the closed window [WindowStart, WindowEnd]
func (c *Chunk) Contains(t time.Time) bool {
	return !t.Before(c.WindowStart) && !t.After(c.WindowEnd)
}

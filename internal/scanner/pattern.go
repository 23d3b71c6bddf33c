package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/itchyny/timefmt-go"
)

const (
	// DefaultTimestampRegex matches exported chat lines such as "[23/2/25, 14:28:56]"
	// and captures the date part
	DefaultTimestampRegex = `\[(\d{1,2}/\d{1,2}/\d{2}), \d{1,2}:\d{2}:\d{2}(?:.AM|.PM)?\]`

	// DefaultDateFormat parses the captured date as day/month/2-digit-year
	DefaultDateFormat = "%d/%m/%y"
)

var (
	// ErrCaptureGroups is returned when a timestamp regex does not have exactly one capture group
	ErrCaptureGroups = errors.New("timestamp regex must have exactly one capture group")

	// ErrDateOutOfRange is returned for dates that do not exist, such as 31/2/25
	ErrDateOutOfRange = errors.New("date is out of range")
)

// Pattern extracts and parses the timestamp embedded in a line of text
type Pattern struct {
	re     *regexp.Regexp
	format string
}

// Compile builds a Pattern from a regular expression with exactly one capture
// group and a strftime-style format for the captured text.
func Compile(expr, format string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile timestamp regex: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("%w: %q has %d", ErrCaptureGroups, expr, re.NumSubexp())
	}
	if format == "" {
		return nil, errors.New("date format is required")
	}
	return &Pattern{re: re, format: format}, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(expr, format string) *Pattern {
	p, err := Compile(expr, format)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the pattern for the bracketed chat export format
func Default() *Pattern {
	return MustCompile(DefaultTimestampRegex, DefaultDateFormat)
}

// Regexp returns the compiled timestamp expression
func (p *Pattern) Regexp() *regexp.Regexp {
	return p.re
}

// Format returns the date format the captured text is parsed with
func (p *Pattern) Format() string {
	return p.format
}

// Extract returns the captured date text of the first match in line
func (p *Pattern) Extract(line string) (string, bool) {
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse converts captured date text into a time in UTC. A value whose fields
// overflow, such as day 31 of February, is rejected instead of rolled forward.
func (p *Pattern) Parse(value string) (time.Time, error) {
	t, err := timefmt.Parse(value, p.format)
	if err != nil {
		return time.Time{}, err
	}
	if back := timefmt.Format(t, p.format); !sameFields(value, back) {
		return time.Time{}, fmt.Errorf("%w: %q reads back as %q", ErrDateOutOfRange, value, back)
	}
	return t, nil
}

// sameFields compares two renderings of a date ignoring case and the leading
// zeros of numeric fields
func sameFields(a, b string) bool {
	return strings.EqualFold(trimZeros(a), trimZeros(b))
}

func trimZeros(s string) string {
	rs := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))
	lead := true
	for i, r := range rs {
		if !unicode.IsDigit(r) {
			lead = true
			sb.WriteRune(r)
			continue
		}
		if lead && r == '0' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]) {
			continue
		}
		lead = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Match extracts and parses the timestamp of line. ok is false when the line
// carries no timestamp. A captured value that does not parse is an error.
func (p *Pattern) Match(line string) (t time.Time, ok bool, err error) {
	value, found := p.Extract(line)
	if !found {
		return time.Time{}, false, nil
	}
	t, err = p.Parse(value)
	if err != nil {
		return time.Time{}, true, &ParseError{Value: value, Format: p.format, Err: err}
	}
	return t, true, nil
}

// ParseError reports a captured timestamp that does not match the date format.
// It indicates a pattern/format mismatch and is never skipped.
type ParseError struct {
	Path   string
	Line   int
	Value  string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: cannot parse %q with format %q: %v", e.Path, e.Line, e.Value, e.Format, e.Err)
	}
	return fmt.Sprintf("cannot parse %q with format %q: %v", e.Value, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

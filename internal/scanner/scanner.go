package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// MaxLineBytes is the longest line a pass can read
const MaxLineBytes = 1 << 20

var (
	// SkipRest is returned by a line callback to end the pass early without error
	SkipRest = errors.New("skip rest of file")

	// ErrInvalidEncoding is returned for a line that is not valid UTF-8
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// Line is a single physical line of a chat log
type Line struct {
	Number       int // 1-based
	Text         string
	Timestamp    time.Time
	HasTimestamp bool
}

// Each opens path and calls fn for every line in order. The file is closed
// before Each returns on every path. Returning SkipRest from fn stops the pass
// and Each returns nil; any other error stops the pass and is returned.
func Each(path string, p *Pattern, fn func(Line) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if !utf8.ValidString(text) {
			return fmt.Errorf("%s:%d: %w", path, n, ErrInvalidEncoding)
		}

		ts, ok, err := p.Match(text)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Path = path
				pe.Line = n
			}
			return err
		}

		if err := fn(Line{Number: n, Text: text, Timestamp: ts, HasTimestamp: ok}); err != nil {
			if errors.Is(err, SkipRest) {
				return nil
			}
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// FirstTimestamp returns the parsed timestamp of the first matching line
func FirstTimestamp(path string, p *Pattern) (time.Time, error) {
	var first time.Time
	found := false
	err := Each(path, p, func(l Line) error {
		if !l.HasTimestamp {
			return nil
		}
		first, found = l.Timestamp, true
		return SkipRest
	})
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, fmt.Errorf("%s: %w", path, types.ErrNoTimestampFound)
	}
	return first, nil
}

// LastTimestamp returns the maximum parsed timestamp across all matching lines
func LastTimestamp(path string, p *Pattern) (time.Time, error) {
	_, last, err := Bounds(path, p)
	return last, err
}

// Bounds returns the first observed and the maximum observed timestamp in a
// single pass over the file.
func Bounds(path string, p *Pattern) (first, last time.Time, err error) {
	found := false
	err = Each(path, p, func(l Line) error {
		if !l.HasTimestamp {
			return nil
		}
		if !found {
			first, last, found = l.Timestamp, l.Timestamp, true
			return nil
		}
		if l.Timestamp.After(last) {
			last = l.Timestamp
		}
		return nil
	})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !found {
		return time.Time{}, time.Time{}, fmt.Errorf("%s: %w", path, types.ErrNoTimestampFound)
	}
	return first, last, nil
}

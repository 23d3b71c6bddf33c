package chunker

import (
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/calendar"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// ProbeDays is how far past the first timestamp FirstChunk looks for its end boundary
const ProbeDays = 31

// Window is the closed time range one chunk covers, overlap already applied
type Window struct {
	Index int
	Start time.Time
	End   time.Time
}

// Chunker partitions time-stamped chat logs into time windows
type Chunker struct {
	logger *zap.Logger
}

// New creates a new Chunker instance. A nil logger disables logging.
func New(logger *zap.Logger) *Chunker {
	return &Chunker{logger: logging.OrNop(logger)}
}

// Windows computes the window bounds Chunk will use for a file.
//
// Interior boundaries are widened by overlapDays on both sides. The start of the
// first window and the end of the last window are the file's own first and last
// timestamps and are never widened.
func (c *Chunker) Windows(path string, p *scanner.Pattern, g types.Granularity, overlapDays int) ([]Window, error) {
	if overlapDays < 0 {
		return nil, fmt.Errorf("%w: got %d", types.ErrInvalidOverlap, overlapDays)
	}

	start, end, err := scanner.Bounds(path, p)
	if err != nil {
		return nil, err
	}

	intervals, err := calendar.BuildIntervals(start, end, g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	last := intervals.Len() - 1
	windows := make([]Window, 0, intervals.Len())
	for i, boundary := range intervals {
		w := Window{Index: i, Start: boundary, End: end}
		if i > 0 {
			w.Start = boundary.AddDate(0, 0, -overlapDays)
		}
		if i < last {
			w.End = intervals[i+1].AddDate(0, 0, overlapDays)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Chunk returns a lazy sequence of the file's windows and the timestamped lines
// inside each one, both ends inclusive. Lines without a timestamp belong to no
// window. A window with no lines is still yielded.
//
// The file is re-read once per window, so it must not change while the sequence
// is consumed. Ranging over the sequence again starts from scratch. The first
// error is yielded once with a zero Chunk and ends the sequence.
func (c *Chunker) Chunk(path string, p *scanner.Pattern, g types.Granularity, overlapDays int) iter.Seq2[types.Chunk, error] {
	return func(yield func(types.Chunk, error) bool) {
		windows, err := c.Windows(path, p, g, overlapDays)
		if err != nil {
			yield(types.Chunk{}, err)
			return
		}

		c.logger.Debug("chunking file",
			zap.String("path", path),
			zap.String("granularity", g.String()),
			zap.Int("overlap_days", overlapDays),
			zap.Int("windows", len(windows)))

		for _, w := range windows {
			chunk := types.Chunk{
				Source:      path,
				Index:       w.Index,
				WindowStart: w.Start,
				WindowEnd:   w.End,
			}
			if err := collect(&chunk, p); err != nil {
				yield(types.Chunk{}, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// ChunkAll collects every chunk of the file
func (c *Chunker) ChunkAll(path string, p *scanner.Pattern, g types.Granularity, overlapDays int) ([]types.Chunk, error) {
	chunks := make([]types.Chunk, 0)
	for chunk, err := range c.Chunk(path, p, g, overlapDays) {
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// FirstChunk returns the lines of the file's first window only, as a cheap preview.
//
// The window is half-open: it starts at the first timestamp and ends just before
// the second boundary of a ProbeDays-long probe. When the probe has fewer than two
// boundaries the last timestamp of the file is used as the end instead.
//
// Reading stops at the first line at or past the end, so lines are assumed to be
// in non-decreasing timestamp order. A decrease seen before that point is logged
// as a warning.
func (c *Chunker) FirstChunk(path string, p *scanner.Pattern, g types.Granularity) ([]string, error) {
	start, err := scanner.FirstTimestamp(path, p)
	if err != nil {
		return nil, err
	}

	probe, err := calendar.BuildIntervals(start, start.AddDate(0, 0, ProbeDays), g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var end time.Time
	if probe.Len() < 2 {
		end, err = scanner.LastTimestamp(path, p)
		if err != nil {
			return nil, err
		}
	} else {
		end = probe[1]
	}

	lines := make([]string, 0)
	var prev time.Time
	outOfOrder := 0
	err = scanner.Each(path, p, func(l scanner.Line) error {
		if !l.HasTimestamp {
			return nil
		}
		if l.Timestamp.Before(prev) {
			outOfOrder++
		}
		prev = l.Timestamp

		if !l.Timestamp.Before(end) {
			return scanner.SkipRest
		}
		if !l.Timestamp.Before(start) {
			lines = append(lines, l.Text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outOfOrder > 0 {
		c.logger.Warn("timestamps out of order, first chunk may be incomplete",
			zap.String("path", path),
			zap.Int("decreases", outOfOrder))
	}
	return lines, nil
}

// collect fills chunk.Lines with every timestamped line of its source that
// falls inside the chunk window, in file order
func collect(chunk *types.Chunk, p *scanner.Pattern) error {
	chunk.Lines = make([]string, 0)
	return scanner.Each(chunk.Source, p, func(l scanner.Line) error {
		if l.HasTimestamp && chunk.Contains(l.Timestamp) {
			chunk.Lines = append(chunk.Lines, l.Text)
		}
		return nil
	})
}

package chunker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

func day(d int, m time.Month) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

// line renders a chat line dated 2025 with a unique message body
func line(d int, m time.Month, msg string) string {
	return fmt.Sprintf("[%d/%d/25, 10:00:00] %s", d, int(m), msg)
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestNew(t *testing.T) {
	c := New(nil)
	assert.NotNil(t, c)
	assert.NotNil(t, c.logger)
}

func TestChunk_SingleWindowNotExpanded(t *testing.T) {
	// Monday to Sunday, no interior boundary
	path := writeLog(t,
		line(6, time.January, "a"),
		"continuation without timestamp",
		line(9, time.January, "b"),
		line(12, time.January, "c"),
	)

	chunks, err := New(nil).ChunkAll(path, scanner.Default(), types.GranularityWeek, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, day(6, time.January), c.WindowStart)
	assert.Equal(t, day(12, time.January), c.WindowEnd)
	assert.Equal(t, []string{
		line(6, time.January, "a"),
		line(9, time.January, "b"),
		line(12, time.January, "c"),
	}, c.Lines)
	assert.Equal(t, path, c.Source)
	assert.Equal(t, 0, c.Index)
}

func threeWeekLog(t *testing.T) string {
	return writeLog(t,
		line(6, time.January, "m0"),
		line(10, time.January, "m1"),
		line(12, time.January, "m2"),
		line(14, time.January, "m3"),
		line(15, time.January, "m4"),
		line(19, time.January, "m5"),
		line(21, time.January, "m6"),
		line(22, time.January, "m7"),
		line(26, time.January, "m8"),
	)
}

func TestChunk_InteriorOverlap(t *testing.T) {
	path := threeWeekLog(t)

	chunks, err := New(nil).ChunkAll(path, scanner.Default(), types.GranularityWeek, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// first window: start untouched, end widened past the Jan 13 boundary
	assert.Equal(t, day(6, time.January), chunks[0].WindowStart)
	assert.Equal(t, day(14, time.January), chunks[0].WindowEnd)

	// middle window: both sides widened
	assert.Equal(t, day(12, time.January), chunks[1].WindowStart)
	assert.Equal(t, day(21, time.January), chunks[1].WindowEnd)

	// last window: start widened, end is the last timestamp
	assert.Equal(t, day(19, time.January), chunks[2].WindowStart)
	assert.Equal(t, day(26, time.January), chunks[2].WindowEnd)

	// lines exactly on a widened boundary are included
	assert.Equal(t, []string{
		line(6, time.January, "m0"),
		line(10, time.January, "m1"),
		line(12, time.January, "m2"),
		line(14, time.January, "m3"),
	}, chunks[0].Lines)
	assert.Equal(t, []string{
		line(12, time.January, "m2"),
		line(14, time.January, "m3"),
		line(15, time.January, "m4"),
		line(19, time.January, "m5"),
		line(21, time.January, "m6"),
	}, chunks[1].Lines)
	assert.Equal(t, []string{
		line(19, time.January, "m5"),
		line(21, time.January, "m6"),
		line(22, time.January, "m7"),
		line(26, time.January, "m8"),
	}, chunks[2].Lines)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NoError(t, c.Validate())
	}
}

func TestChunk_UnionCoversEveryLine(t *testing.T) {
	path := threeWeekLog(t)
	all := []string{
		line(6, time.January, "m0"),
		line(10, time.January, "m1"),
		line(12, time.January, "m2"),
		line(14, time.January, "m3"),
		line(15, time.January, "m4"),
		line(19, time.January, "m5"),
		line(21, time.January, "m6"),
		line(22, time.January, "m7"),
		line(26, time.January, "m8"),
	}
	boundaries := []time.Time{day(13, time.January), day(20, time.January)}

	for _, overlap := range []int{0, 1, 2} {
		t.Run(fmt.Sprintf("overlap=%d", overlap), func(t *testing.T) {
			chunks, err := New(nil).ChunkAll(path, scanner.Default(), types.GranularityWeek, overlap)
			require.NoError(t, err)

			counts := make(map[string]int)
			for _, c := range chunks {
				for _, l := range c.Lines {
					counts[l]++
				}
			}
			require.Len(t, counts, len(all))

			p := scanner.Default()
			for _, l := range all {
				ts, _, err := p.Match(l)
				require.NoError(t, err)

				nearBoundary := false
				for _, b := range boundaries {
					if !ts.Before(b.AddDate(0, 0, -overlap)) && !ts.After(b.AddDate(0, 0, overlap)) {
						nearBoundary = true
					}
				}
				if nearBoundary {
					assert.LessOrEqual(t, counts[l], 2, l)
				} else {
					assert.Equal(t, 1, counts[l], l)
				}
			}
		})
	}
}

func TestChunk_EmptyWindowStillYielded(t *testing.T) {
	path := writeLog(t,
		line(1, time.January, "a"),
		line(4, time.January, "b"),
	)

	chunks, err := New(nil).ChunkAll(path, scanner.Default(), types.GranularityDay, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.True(t, chunks[1].IsEmpty())
	assert.Equal(t, day(2, time.January), chunks[1].WindowStart)
	assert.Equal(t, day(3, time.January), chunks[1].WindowEnd)
}

func TestChunk_Restartable(t *testing.T) {
	path := threeWeekLog(t)
	seq := New(nil).Chunk(path, scanner.Default(), types.GranularityWeek, 1)

	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count())
}

func TestChunk_EarlyBreak(t *testing.T) {
	path := threeWeekLog(t)

	n := 0
	for _, err := range New(nil).Chunk(path, scanner.Default(), types.GranularityWeek, 1) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestChunk_Errors(t *testing.T) {
	c := New(nil)
	p := scanner.Default()

	t.Run("negative overlap", func(t *testing.T) {
		_, err := c.ChunkAll(threeWeekLog(t), p, types.GranularityWeek, -1)
		assert.ErrorIs(t, err, types.ErrInvalidOverlap)
	})

	t.Run("no timestamps", func(t *testing.T) {
		_, err := c.ChunkAll(writeLog(t, "hello", "world"), p, types.GranularityDay, 0)
		assert.ErrorIs(t, err, types.ErrNoTimestampFound)
	})

	t.Run("single timestamp", func(t *testing.T) {
		path := writeLog(t, line(4, time.March, "a"), line(4, time.March, "b"))
		_, err := c.ChunkAll(path, p, types.GranularityDay, 0)
		assert.ErrorIs(t, err, types.ErrInvalidRange)
	})

	t.Run("invalid granularity", func(t *testing.T) {
		_, err := c.ChunkAll(threeWeekLog(t), p, types.Granularity("year"), 0)
		assert.ErrorIs(t, err, types.ErrInvalidGranularity)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := c.ChunkAll(filepath.Join(t.TempDir(), "nope.txt"), p, types.GranularityDay, 0)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("parse error yielded once", func(t *testing.T) {
		path := writeLog(t, line(1, time.January, "a"), "[1/13/25, 10:00:00] bad", line(5, time.January, "b"))

		errs := 0
		for chunk, err := range c.Chunk(path, p, types.GranularityDay, 0) {
			require.Error(t, err)
			assert.Equal(t, types.Chunk{}, chunk)
			var pe *scanner.ParseError
			assert.True(t, errors.As(err, &pe))
			errs++
		}
		assert.Equal(t, 1, errs)
	})

	t.Run("impossible date yielded once", func(t *testing.T) {
		path := writeLog(t, line(1, time.January, "a"), "[31/2/25, 10:00:00] bad", line(5, time.January, "b"))

		errs := 0
		for chunk, err := range c.Chunk(path, p, types.GranularityDay, 0) {
			require.Error(t, err)
			assert.Equal(t, types.Chunk{}, chunk)
			var pe *scanner.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, 2, pe.Line)
			assert.ErrorIs(t, err, scanner.ErrDateOutOfRange)
			errs++
		}
		assert.Equal(t, 1, errs)
	})
}

func TestWindows(t *testing.T) {
	windows, err := New(nil).Windows(threeWeekLog(t), scanner.Default(), types.GranularityWeek, 0)
	require.NoError(t, err)
	assert.Equal(t, []Window{
		{Index: 0, Start: day(6, time.January), End: day(13, time.January)},
		{Index: 1, Start: day(13, time.January), End: day(20, time.January)},
		{Index: 2, Start: day(20, time.January), End: day(26, time.January)},
	}, windows)
}

func TestFirstChunk_ShortFileReturnsAll(t *testing.T) {
	path := writeLog(t,
		line(6, time.January, "a"),
		"continuation",
		line(12, time.January, "b"),
		line(20, time.January, "c"),
	)

	lines, err := New(nil).FirstChunk(path, scanner.Default(), types.GranularityMonth)
	require.NoError(t, err)
	assert.Equal(t, []string{
		line(6, time.January, "a"),
		line(12, time.January, "b"),
		line(20, time.January, "c"),
	}, lines)
}

func TestFirstChunk_ExclusiveEnd(t *testing.T) {
	path := writeLog(t,
		line(6, time.January, "a"),
		line(6, time.January, "b"),
		line(7, time.January, "on boundary"),
		line(8, time.January, "after"),
	)

	lines, err := New(nil).FirstChunk(path, scanner.Default(), types.GranularityDay)
	require.NoError(t, err)
	assert.Equal(t, []string{
		line(6, time.January, "a"),
		line(6, time.January, "b"),
	}, lines)
}

func TestFirstChunk_Week(t *testing.T) {
	// Wednesday start, ends before the following Monday
	path := writeLog(t,
		line(8, time.January, "a"),
		line(12, time.January, "b"),
		line(13, time.January, "monday"),
	)

	lines, err := New(nil).FirstChunk(path, scanner.Default(), types.GranularityWeek)
	require.NoError(t, err)
	assert.Equal(t, []string{line(8, time.January, "a"), line(12, time.January, "b")}, lines)
}

func TestFirstChunk_WarnsOnOutOfOrder(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(zap.New(core))

	path := writeLog(t,
		line(6, time.January, "a"),
		line(8, time.January, "b"),
		line(7, time.January, "late"),
		line(20, time.January, "c"),
	)

	lines, err := c.FirstChunk(path, scanner.Default(), types.GranularityMonth)
	require.NoError(t, err)
	assert.Len(t, lines, 4)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(1), logs.All()[0].ContextMap()["decreases"])
}

func TestFirstChunk_Errors(t *testing.T) {
	c := New(nil)

	_, err := c.FirstChunk(writeLog(t, "no dates"), scanner.Default(), types.GranularityDay)
	assert.ErrorIs(t, err, types.ErrNoTimestampFound)

	_, err = c.FirstChunk(writeLog(t, line(1, time.January, "a")), scanner.Default(), types.Granularity("fortnight"))
	assert.ErrorIs(t, err, types.ErrInvalidGranularity)
}

package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/chatcontext-mcp/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompile_CaptureGroups(t *testing.T) {
	_, err := Compile(`\[(\d+)/(\d+)\]`, "%d/%m")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureGroups)

	_, err = Compile(`\[\d+\]`, "%d")
	assert.ErrorIs(t, err, ErrCaptureGroups)

	_, err = Compile(`\[(\d+`, "%d")
	assert.Error(t, err)

	_, err = Compile(`\[(\d+)\]`, "")
	assert.Error(t, err)

	p, err := Compile(`\[(\d{1,2}/\d{1,2}/\d{2})\]`, "%d/%m/%y")
	require.NoError(t, err)
	assert.Equal(t, "%d/%m/%y", p.Format())
}

func TestPattern_Match(t *testing.T) {
	p := Default()

	ts, ok, err := p.Match("[23/2/25, 14:28:56] David: Ok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, date(2025, time.February, 23), ts)

	ts, ok, err = p.Match("[5/11/24, 9:01:02 PM] Ana: hola")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, date(2024, time.November, 5), ts)

	_, ok, err = p.Match("a continuation line")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPattern_MatchFirstWins(t *testing.T) {
	p := Default()
	ts, ok, err := p.Match("[1/3/25, 10:00:00] quoting [9/9/24, 10:00:00]")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date(2025, time.March, 1), ts)
}

func TestPattern_MatchParseError(t *testing.T) {
	p := Default()
	_, ok, err := p.Match("[45/13/25, 10:00:00] bad date")
	require.Error(t, err)
	assert.True(t, ok)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "45/13/25", pe.Value)
	assert.Equal(t, DefaultDateFormat, pe.Format)
}

func TestPattern_MatchImpossibleDate(t *testing.T) {
	p := Default()
	for _, line := range []string{
		"[31/2/25, 10:00:00] Ana: hola",
		"[30/2/24, 10:00:00] Ana: leap year has 29",
		"[29/2/25, 10:00:00] Ana: not a leap year",
		"[31/4/25, 10:00:00] Ana: april has 30",
	} {
		t.Run(line[:9], func(t *testing.T) {
			ts, ok, err := p.Match(line)
			assert.True(t, ok)
			assert.True(t, ts.IsZero())

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.ErrorIs(t, err, ErrDateOutOfRange)
		})
	}
}

func TestPattern_ParseLeadingZeros(t *testing.T) {
	p := Default()
	for _, value := range []string{"06/01/25", "6/1/25", "29/02/24", "31/12/00"} {
		_, err := p.Parse(value)
		assert.NoError(t, err, value)
	}
}

func TestFirstTimestamp(t *testing.T) {
	path := writeLog(t, "header without date\n[3/1/25, 10:00:00] A: one\n[1/1/25, 10:00:00] B: two\n")

	first, err := FirstTimestamp(path, Default())
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 3), first)
}

func TestLastTimestamp_Max(t *testing.T) {
	// maximum rather than the last line
	path := writeLog(t, "[3/1/25, 10:00:00] A\n[9/1/25, 10:00:00] B\n[5/1/25, 10:00:00] C\nno date\n")

	last, err := LastTimestamp(path, Default())
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 9), last)
}

func TestBounds(t *testing.T) {
	path := writeLog(t, "[3/1/25, 10:00:00] A\r\n[9/1/25, 10:00:00] B\r\n[5/1/25, 10:00:00] C\r\n")

	first, last, err := Bounds(path, Default())
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 3), first)
	assert.Equal(t, date(2025, time.January, 9), last)
}

func TestNoTimestampFound(t *testing.T) {
	path := writeLog(t, "nothing here\nor here\n")

	_, err := FirstTimestamp(path, Default())
	assert.ErrorIs(t, err, types.ErrNoTimestampFound)

	_, err = LastTimestamp(path, Default())
	assert.ErrorIs(t, err, types.ErrNoTimestampFound)

	empty := writeLog(t, "")
	_, _, err = Bounds(empty, Default())
	assert.ErrorIs(t, err, types.ErrNoTimestampFound)
}

func TestFileNotFound(t *testing.T) {
	_, err := FirstTimestamp(filepath.Join(t.TempDir(), "missing.txt"), Default())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestParseErrorHasLocation(t *testing.T) {
	path := writeLog(t, "[1/1/25, 10:00:00] ok\n[1/13/25, 10:00:00] bad\n")

	_, _, err := Bounds(path, Default())
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.Path)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "1/13/25", pe.Value)
	assert.Contains(t, pe.Error(), "chat.txt:2")
}

func TestEach_SkipRest(t *testing.T) {
	path := writeLog(t, "[1/1/25, 10:00:00] a\n[2/1/25, 10:00:00] b\n[3/1/25, 10:00:00] c\n")

	var seen []string
	err := Each(path, Default(), func(l Line) error {
		seen = append(seen, l.Text)
		if l.Number == 2 {
			return SkipRest
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"[1/1/25, 10:00:00] a", "[2/1/25, 10:00:00] b"}, seen)
}

func TestEach_CallbackError(t *testing.T) {
	path := writeLog(t, "[1/1/25, 10:00:00] a\n")
	boom := errors.New("boom")

	err := Each(path, Default(), func(Line) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestEach_InvalidEncoding(t *testing.T) {
	path := writeLog(t, "[1/1/25, 10:00:00] a\n\xff\xfe broken\n")

	err := Each(path, Default(), func(Line) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestEach_LongLine(t *testing.T) {
	long := make([]byte, 200*1024)
	for i := range long {
		long[i] = 'x'
	}
	path := writeLog(t, "[1/1/25, 10:00:00] "+string(long)+"\n")

	first, err := FirstTimestamp(path, Default())
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 1), first)
}

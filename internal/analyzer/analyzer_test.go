package analyzer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/chatcontext-mcp/pkg/types"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeChunkSizes(t *testing.T) {
	dir := t.TempDir()
	// " Ana: hola" is 10 characters, plus one for the line end. Day windows
	// include both boundaries, so neighbours share the boundary day.
	a := writeLog(t, dir, "a.txt", "[1/1/25, 09:00:00] Ana: hola\n[2/1/25, 09:00:00] Ana: hola\n[3/1/25, 09:00:00] Ana: adiós\n")
	b := writeLog(t, dir, "b.txt", "[1/2/25, 09:00:00] Luis: ok\n[2/2/25, 09:00:00] Luis: ok\n")

	an := New(Options{Granularity: types.GranularityDay}, nil)
	report, err := an.AnalyzeChunkSizes(context.Background(), []string{a, b})
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, a, report.Files[0].Path)
	assert.Equal(t, []int{22, 23, 12}, report.Files[0].Sizes)
	assert.Equal(t, []int{20, 10}, report.Files[1].Sizes)

	assert.Equal(t, 5, report.Count)
	assert.Equal(t, 10, report.Smallest)
	assert.Equal(t, 23, report.Biggest)
	assert.InDelta(t, 17.4, report.Average, 1e-9)
	assert.False(t, report.Empty())
	assert.Empty(t, report.Failed())
}

func TestAnalyzeChunkSizes_EmptyWindowsCount(t *testing.T) {
	path := writeLog(t, t.TempDir(), "gap.txt", "[1/1/25, 09:00:00] Ana: hola\n[4/1/25, 09:00:00] Ana: hola\n")

	report, err := New(Options{Granularity: types.GranularityDay}, nil).AnalyzeChunkSizes(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, []int{11, 0, 11, 11}, report.Files[0].Sizes)
	assert.Equal(t, 0, report.Smallest)
}

func TestAnalyzeChunkSizes_ContinuesAfterFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeLog(t, dir, "good.txt", "[1/1/25, 09:00:00] Ana: hola\n[2/1/25, 09:00:00] Ana: hola\n")
	plain := writeLog(t, dir, "plain.txt", "nothing here\n")
	missing := filepath.Join(dir, "missing.txt")

	core, logs := observer.New(zap.WarnLevel)
	an := New(Options{Granularity: types.GranularityWeek, Workers: 1}, zap.New(core))

	report, err := an.AnalyzeChunkSizes(context.Background(), []string{missing, plain, good})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Count)
	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.ErrorIs(t, failed[0].Err, os.ErrNotExist)
	assert.ErrorIs(t, failed[1].Err, types.ErrNoTimestampFound)
	assert.Equal(t, 2, logs.FilterMessage("failed to analyze file").Len())
}

func TestAnalyzeChunkSizes_Empty(t *testing.T) {
	report, err := New(Options{}, nil).AnalyzeChunkSizes(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, report.Empty())

	var buf bytes.Buffer
	require.NoError(t, report.Print(&buf))
	assert.Contains(t, buf.String(), "No chunks were analyzed")
}

func TestReport_Print(t *testing.T) {
	report := &Report{
		Files: []FileReport{
			{Path: "a.txt", Sizes: []int{1200, 34567}},
			{Path: "b.txt", Err: types.ErrNoTimestampFound},
		},
		Count:    2,
		Smallest: 1200,
		Biggest:  34567,
		Average:  17883.5,
	}

	var buf bytes.Buffer
	require.NoError(t, report.Print(&buf))
	out := buf.String()

	assert.Contains(t, out, "Analyzing file: a.txt\n  Chunk 1: 1,200 characters\n  Chunk 2: 34,567 characters\n")
	assert.Contains(t, out, "Analyzing file: b.txt\n  Error: could not find timestamps in file\n")
	assert.Contains(t, out, "Smallest chunk: 1,200 characters")
	assert.Contains(t, out, "Biggest chunk: 34,567 characters")
	assert.Contains(t, out, "Average chunk size: 17,884 characters")
	assert.Contains(t, out, "Total chunks: 2")
}

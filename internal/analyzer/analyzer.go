package analyzer

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/chatcontext-mcp/internal/chunker"
	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/normalizer"
	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// Options selects how files are chunked before measuring
type Options struct {
	Pattern     *scanner.Pattern
	Granularity types.Granularity
	OverlapDays int
	Workers     int
}

// FileReport holds the chunk sizes of one file, or the error that stopped it
type FileReport struct {
	Path  string
	Sizes []int
	Err   error
}

// Report summarizes chunk sizes across files. Sizes are in characters after
// timestamps are stripped, counting one per line terminator.
type Report struct {
	Files    []FileReport
	Count    int
	Smallest int
	Biggest  int
	Average  float64
}

// Empty reports whether no chunk was measured
func (r *Report) Empty() bool {
	return r.Count == 0
}

// Failed returns the files that could not be analyzed
func (r *Report) Failed() []FileReport {
	var failed []FileReport
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Analyzer measures chunk sizes
type Analyzer struct {
	chunker    *chunker.Chunker
	normalizer *normalizer.Normalizer
	opts       Options
	logger     *zap.Logger
}

// New creates an Analyzer; zero options select the indexing defaults
func New(opts Options, logger *zap.Logger) *Analyzer {
	if opts.Pattern == nil {
		opts.Pattern = scanner.Default()
	}
	if opts.Granularity == "" {
		opts.Granularity = types.GranularityWeek
	}
	if opts.Workers <= 0 {
		opts.Workers = config.DefaultWorkers
	}
	logger = logging.OrNop(logger)
	return &Analyzer{
		chunker:    chunker.New(logger),
		normalizer: normalizer.Timestamps(opts.Pattern),
		opts:       opts,
		logger:     logger,
	}
}

// AnalyzeChunkSizes chunks every file and measures each chunk. Files are
// processed concurrently; the report keeps the order of files. A failing file
// is logged and reported without stopping the others.
func (a *Analyzer) AnalyzeChunkSizes(ctx context.Context, files []string) (*Report, error) {
	reports := make([]FileReport, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sizes, err := a.fileSizes(path)
			if err != nil {
				a.logger.Warn("failed to analyze file", zap.String("path", path), zap.Error(err))
			}
			reports[i] = FileReport{Path: path, Sizes: sizes, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Files: reports}
	total := 0
	for _, f := range reports {
		for _, size := range f.Sizes {
			if report.Count == 0 || size < report.Smallest {
				report.Smallest = size
			}
			if size > report.Biggest {
				report.Biggest = size
			}
			total += size
			report.Count++
		}
	}
	if report.Count > 0 {
		report.Average = float64(total) / float64(report.Count)
	}
	return report, nil
}

func (a *Analyzer) fileSizes(path string) ([]int, error) {
	sizes := make([]int, 0)
	for chunk, err := range a.chunker.Chunk(path, a.opts.Pattern, a.opts.Granularity, a.opts.OverlapDays) {
		if err != nil {
			return nil, err
		}
		chunk.Lines = a.normalizer.CleanLines(chunk.Lines)
		sizes = append(sizes, chunk.Size())
	}
	return sizes, nil
}

// Print writes a human readable report
func (r *Report) Print(w io.Writer) error {
	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "\nAnalyzing file: %s\n", f.Path); err != nil {
			return err
		}
		if f.Err != nil {
			if _, err := fmt.Fprintf(w, "  Error: %v\n", f.Err); err != nil {
				return err
			}
			continue
		}
		for i, size := range f.Sizes {
			if _, err := fmt.Fprintf(w, "  Chunk %d: %s characters\n", i+1, humanize.Comma(int64(size))); err != nil {
				return err
			}
		}
	}

	if r.Empty() {
		_, err := fmt.Fprintln(w, "\nNo chunks were analyzed")
		return err
	}

	_, err := fmt.Fprintf(w, "\nSummary Statistics:\nSmallest chunk: %s characters\nBiggest chunk: %s characters\nAverage chunk size: %s characters\nTotal chunks: %d\n",
		humanize.Comma(int64(r.Smallest)), humanize.Comma(int64(r.Biggest)), humanize.Comma(int64(r.Average+0.5)), r.Count)
	return err
}

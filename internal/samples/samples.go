package samples

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dshills/chatcontext-mcp/internal/chunker"
	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/generator"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/normalizer"
	"github.com/dshills/chatcontext-mcp/internal/prompt"
	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// AnswerError replaces the answer of a sample whose generation failed
const AnswerError = "Error generating answer"

// ErrNoSamplesKey is returned for a JSON document without a "samples" array
var ErrNoSamplesKey = errors.New(`source file does not contain a "samples" key`)

// Sample is one evaluation record. Query and Answer are filled by later stages.
type Sample struct {
	ID      string `json:"id"`
	Query   string `json:"query,omitempty"`
	Context string `json:"context"`
	Answer  string `json:"answer,omitempty"`
}

// File is the on-disk layout shared by every stage
type File struct {
	Samples []Sample `json:"samples"`
}

// Options configures a Builder
type Options struct {
	Pattern        *scanner.Pattern
	Granularity    types.Granularity
	OverlapDays    int
	AnswerInterval time.Duration // Minimum spacing between answer requests
}

// Builder produces evaluation samples from chat logs
type Builder struct {
	chunker    *chunker.Chunker
	normalizer *normalizer.Normalizer
	generator  generator.Generator
	opts       Options
	logger     *zap.Logger
}

// New creates a Builder. gen is only needed for AddAnswers.
func New(gen generator.Generator, opts Options, logger *zap.Logger) *Builder {
	if opts.Pattern == nil {
		opts.Pattern = scanner.Default()
	}
	if opts.Granularity == "" {
		opts.Granularity = types.GranularityWeek
	}
	if opts.AnswerInterval < 0 {
		opts.AnswerInterval = config.DefaultAnswerInterval
	}
	logger = logging.OrNop(logger)
	return &Builder{
		chunker:    chunker.New(logger),
		normalizer: normalizer.Timestamps(opts.Pattern),
		generator:  gen,
		opts:       opts,
		logger:     logger,
	}
}

// Generate writes one sample per chunk of every file to out, with the
// timestamps stripped from the context. A failing file is logged and skipped.
func (b *Builder) Generate(files []string, out string) (int, error) {
	samples := make([]Sample, 0)
	for _, path := range files {
		fileSamples, err := b.fileSamples(path)
		if err != nil {
			b.logger.Warn("failed to process file", zap.String("path", path), zap.Error(err))
			continue
		}
		samples = append(samples, fileSamples...)
	}

	if err := writeFile(out, File{Samples: samples}); err != nil {
		return 0, err
	}
	b.logger.Info("generated samples", zap.Int("samples", len(samples)), zap.String("path", out))
	return len(samples), nil
}

func (b *Builder) fileSamples(path string) ([]Sample, error) {
	var samples []Sample
	for chunk, err := range b.chunker.Chunk(path, b.opts.Pattern, b.opts.Granularity, b.opts.OverlapDays) {
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{
			ID:      uuid.NewString(),
			Context: b.normalizer.CleanChunk(chunk),
		})
	}
	return samples, nil
}

// AddQuestions writes to dst one sample per source sample and query, with id
// "<source id>-<query index>". Source samples missing an id or context are
// skipped.
func (b *Builder) AddQuestions(queries []string, src, dst string) (int, error) {
	in, err := readFile(src)
	if err != nil {
		return 0, err
	}

	out := make([]Sample, 0, len(in.Samples)*len(queries))
	for _, s := range in.Samples {
		if s.ID == "" || s.Context == "" {
			b.logger.Warn("sample is missing id or context, skipping", zap.String("id", s.ID))
			continue
		}
		for i, q := range queries {
			out = append(out, Sample{
				ID:      fmt.Sprintf("%s-%d", s.ID, i),
				Query:   q,
				Context: s.Context,
			})
		}
	}

	if err := writeFile(dst, File{Samples: out}); err != nil {
		return 0, err
	}
	b.logger.Info("created samples with questions", zap.Int("samples", len(out)), zap.String("path", dst))
	return len(out), nil
}

// AddAnswers asks the generator to answer every sample's query from its
// context and writes the answered samples to dst. Requests are spaced by the
// answer interval. A failed generation is logged and stored as AnswerError.
func (b *Builder) AddAnswers(ctx context.Context, src, dst string) (int, error) {
	if b.generator == nil {
		return 0, errors.New("answers need a generator")
	}

	in, err := readFile(src)
	if err != nil {
		return 0, err
	}

	limit := rate.Inf
	if b.opts.AnswerInterval > 0 {
		limit = rate.Every(b.opts.AnswerInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	out := make([]Sample, 0, len(in.Samples))
	for i, s := range in.Samples {
		if s.ID == "" || s.Query == "" || s.Context == "" {
			b.logger.Warn("sample is missing required fields, skipping", zap.String("id", s.ID))
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return 0, err
		}

		s.Answer = b.answer(ctx, s)
		out = append(out, s)
		b.logger.Info("processed sample", zap.Int("done", i+1), zap.Int("total", len(in.Samples)))
	}

	if err := writeFile(dst, File{Samples: out}); err != nil {
		return 0, err
	}
	b.logger.Info("created samples with answers", zap.Int("samples", len(out)), zap.String("path", dst))
	return len(out), nil
}

func (b *Builder) answer(ctx context.Context, s Sample) string {
	p, err := prompt.Answer(s.Context, s.Query)
	if err == nil {
		var answer string
		answer, err = b.generator.Generate(ctx, p)
		if err == nil {
			return answer
		}
	}
	b.logger.Warn("failed to generate answer", zap.String("id", s.ID), zap.Error(err))
	return AnswerError
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", path, err)
	}
	if _, ok := raw["samples"]; !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSamplesKey)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// writeFile writes f as indented JSON, leaving non-ASCII and HTML characters as is
func writeFile(path string, f File) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

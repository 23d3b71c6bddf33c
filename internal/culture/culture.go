// Package culture summarizes the company culture seen in the first stretch of
// each chat log.
package culture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/chunker"
	"github.com/dshills/chatcontext-mcp/internal/generator"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/prompt"
	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// ErrNoConversations is returned when no file contributed any line
var ErrNoConversations = errors.New("no conversations to summarize")

// Summarizer builds the culture prompt from file previews and asks the generator
type Summarizer struct {
	chunker     *chunker.Chunker
	generator   generator.Generator
	pattern     *scanner.Pattern
	granularity types.Granularity
	logger      *zap.Logger
}

// New creates a Summarizer previewing each file at granularity g
func New(gen generator.Generator, p *scanner.Pattern, g types.Granularity, logger *zap.Logger) *Summarizer {
	if p == nil {
		p = scanner.Default()
	}
	if g == "" {
		g = types.GranularityDay
	}
	logger = logging.OrNop(logger)
	return &Summarizer{
		chunker:     chunker.New(logger),
		generator:   gen,
		pattern:     p,
		granularity: g,
		logger:      logger,
	}
}

// Conversations joins the first chunk of every file with newlines. A file
// that cannot be read is logged and left out.
func (s *Summarizer) Conversations(files []string) (string, error) {
	var lines []string
	for _, path := range files {
		first, err := s.chunker.FirstChunk(path, s.pattern, s.granularity)
		if err != nil {
			s.logger.Warn("skipping file in culture preview", zap.String("path", path), zap.Error(err))
			continue
		}
		lines = append(lines, first...)
	}
	if len(lines) == 0 {
		return "", ErrNoConversations
	}
	return strings.Join(lines, "\n"), nil
}

// Summarize returns the generator's one sentence summary of the culture in files
func (s *Summarizer) Summarize(ctx context.Context, files []string) (string, error) {
	conversations, err := s.Conversations(files)
	if err != nil {
		return "", err
	}

	p, err := prompt.Culture(conversations)
	if err != nil {
		return "", fmt.Errorf("failed to render culture prompt: %w", err)
	}

	s.logger.Debug("summarizing culture", zap.Int("files", len(files)), zap.Int("prompt_chars", len(p)))

	summary, err := s.generator.Generate(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to summarize culture: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

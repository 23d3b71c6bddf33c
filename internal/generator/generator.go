package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/config"
)

var (
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrEmptyResponse = errors.New("model returned no content")
)

// Generator turns a prompt into text
type Generator interface {
	// Generate returns the complete response for prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Stream calls fn with each piece of the response as it arrives. An error
	// from fn stops the stream and is returned.
	Stream(ctx context.Context, prompt string, fn func(delta string) error) error

	// Model returns the model name
	Model() string
}

// New builds the generator selected by cfg. temperature overrides the
// configured one so callers can pick between the summary and answer settings.
func New(cfg config.GenerationConfig, temperature float32, logger *zap.Logger) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderMock, "":
		return NewMockClient(CultureResponse), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIOptions{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

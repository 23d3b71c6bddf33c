package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/logging"
)

// OpenAIOptions configures an OpenAIClient
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string // Optional: OpenAI-compatible endpoint
	Model        string
	Temperature  float32
	Timeout      time.Duration // Per request
	SystemPrompt string        // Optional
}

// OpenAIClient generates text with the chat completions API. Calls go
// through a circuit breaker so a failing endpoint is not hammered.
type OpenAIClient struct {
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	opts    OpenAIOptions
	logger  *zap.Logger
}

// NewOpenAIClient creates a chat completions client
func NewOpenAIClient(opts OpenAIOptions, logger *zap.Logger) (*OpenAIClient, error) {
	if opts.Model == "" {
		opts.Model = config.DefaultGenerationModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultRequestTimeout
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	c := &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		opts:   opts,
		logger: logging.OrNop(logger),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-chat",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c, nil
}

func (c *OpenAIClient) Model() string {
	return c.opts.Model
}

// State reports the circuit breaker state
func (c *OpenAIClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *OpenAIClient) request(prompt string, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.opts.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		Stream:      stream,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	c.logger.Debug("generating text", zap.String("model", c.opts.Model), zap.Int("prompt_chars", len(prompt)))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, false))
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return nil, ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	return result.(string), nil
}

func (c *OpenAIClient) Stream(ctx context.Context, prompt string, fn func(delta string) error) error {
	if err := validatePrompt(prompt); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.CreateChatCompletionStream(ctx, c.request(prompt, true))
	})
	if err != nil {
		return fmt.Errorf("chat completion stream failed: %w", err)
	}
	stream := result.(*openai.ChatCompletionStream)
	defer func() { _ = stream.Close() }()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if err := fn(resp.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

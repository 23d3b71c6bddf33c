package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/chatcontext-mcp/internal/config"
)

// chatServer answers like the chat completions endpoint, echoing the prompt
// back in upper case. Streaming requests get the answer word by word.
func chatServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32, *openai.ChatCompletionRequest) {
	t.Helper()
	calls := &atomic.Int32{}
	last := &openai.ChatCompletionRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			return
		}

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*last = req
		answer := strings.ToUpper(req.Messages[len(req.Messages)-1].Content)

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   req.Model,
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": answer},
					"finish_reason": "stop",
				}},
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range strings.SplitAfter(answer, " ") {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   req.Model,
				"choices": []map[string]any{{
					"index": 0,
					"delta": map[string]string{"content": word},
				}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv, calls, last
}

func newTestClient(t *testing.T, srv *httptest.Server) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(OpenAIOptions{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		Model:       "gpt-test",
		Temperature: 0.3,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv, calls, last := chatServer(t, http.StatusOK)
	c := newTestClient(t, srv)

	out, err := c.Generate(context.Background(), "hola equipo")
	require.NoError(t, err)
	assert.Equal(t, "HOLA EQUIPO", out)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "gpt-test", last.Model)
	assert.InDelta(t, 0.3, last.Temperature, 1e-6)
	require.Len(t, last.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, last.Messages[0].Role)
}

func TestOpenAIClient_SystemPrompt(t *testing.T) {
	srv, _, last := chatServer(t, http.StatusOK)
	c, err := NewOpenAIClient(OpenAIOptions{
		BaseURL:      srv.URL + "/v1",
		SystemPrompt: "be brief",
	}, nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, last.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, last.Messages[0].Role)
	assert.Equal(t, config.DefaultGenerationModel, c.Model())
}

func TestOpenAIClient_Stream(t *testing.T) {
	srv, _, last := chatServer(t, http.StatusOK)
	c := newTestClient(t, srv)

	var deltas []string
	err := c.Stream(context.Background(), "uno dos tres", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, last.Stream)
	assert.Equal(t, []string{"UNO ", "DOS ", "TRES"}, deltas)
}

func TestOpenAIClient_StreamCallbackError(t *testing.T) {
	srv, _, _ := chatServer(t, http.StatusOK)
	c := newTestClient(t, srv)
	stop := errors.New("stop")

	n := 0
	err := c.Stream(context.Background(), "uno dos tres", func(string) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv, _, _ := chatServer(t, http.StatusBadRequest)
	c := newTestClient(t, srv)

	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatusCode)
}

func TestOpenAIClient_CircuitBreakerOpens(t *testing.T) {
	srv, calls, _ := chatServer(t, http.StatusInternalServerError)
	c := newTestClient(t, srv)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Generate(ctx, "hi")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.Generate(ctx, "hi")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load())
}

func TestOpenAIClient_EmptyPrompt(t *testing.T) {
	srv, calls, _ := chatServer(t, http.StatusOK)
	c := newTestClient(t, srv)

	_, err := c.Generate(context.Background(), " \n")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	err = c.Stream(context.Background(), "", func(string) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Zero(t, calls.Load())
}

func TestMockClient(t *testing.T) {
	m := NewMockClient(CultureResponse)
	ctx := context.Background()

	out, err := m.Generate(ctx, "resume la cultura")
	require.NoError(t, err)
	assert.Equal(t, CultureResponse, out)

	var streamed strings.Builder
	require.NoError(t, m.Stream(ctx, "otra vez", func(delta string) error {
		streamed.WriteString(delta)
		return nil
	}))
	assert.Equal(t, CultureResponse, streamed.String())

	assert.Equal(t, []string{"resume la cultura", "otra vez"}, m.Prompts())
	assert.Equal(t, MockModel, m.Model())

	_, err = m.Generate(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestMockClient_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockClient("x").Generate(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	cfg := config.Default().Generation

	g, err := New(cfg, cfg.Temperature, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, g)

	cfg.Provider = config.ProviderOpenAI
	cfg.APIKey = "k"
	g, err = New(cfg, cfg.AnswerTemperature, nil)
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, g)
	assert.Equal(t, config.DefaultGenerationModel, g.Model())
	assert.InDelta(t, config.DefaultAnswerTemperature, g.(*OpenAIClient).opts.Temperature, 1e-6)

	cfg.Provider = "bogus"
	_, err = New(cfg, 0, nil)
	assert.Error(t, err)
}

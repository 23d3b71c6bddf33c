package generator

import (
	"context"
	"sync"
)

// CultureResponse is the canned summary returned in development
const CultureResponse = "La empresa muestra una cultura agradable, amistosa, positiva y colaborativa, " +
	"con un fuerte énfasis en el trabajo en equipo y el apoyo mutuo entre los miembros del equipo."

// MockModel is the model name reported by MockClient
const MockModel = "mock-chat-model"

// MockClient answers every prompt with a fixed response and records the prompts
type MockClient struct {
	response string

	mu      sync.Mutex
	prompts []string
}

func NewMockClient(response string) *MockClient {
	return &MockClient{response: response}
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.record(prompt)
	return m.response, nil
}

// Stream delivers the whole response as a single delta
func (m *MockClient) Stream(ctx context.Context, prompt string, fn func(delta string) error) error {
	resp, err := m.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return fn(resp)
}

func (m *MockClient) Model() string {
	return MockModel
}

// Prompts returns the prompts received so far
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockClient) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}

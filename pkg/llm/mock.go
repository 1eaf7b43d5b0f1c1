package llm

import (
	"context"
)

// MockCompletionClient is a configurable mock for testing completion
// functionality. Set the function fields to control behavior in tests.
type MockCompletionClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts) (string, error)

	// CompleteStreamFunc is called when CompleteStream is invoked.
	// If nil, returns nil without sending deltas.
	CompleteStreamFunc func(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts, deltas chan<- string) error

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	CompleteCalls       int
	CompleteStreamCalls int
	Prompts             []string
}

// NewMockCompletionClient creates a new mock with sensible defaults.
func NewMockCompletionClient() *MockCompletionClient {
	return &MockCompletionClient{
		Model: "mock-model",
	}
}

// Complete implements CompletionClient.
func (m *MockCompletionClient) Complete(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts) (string, error) {
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemPrompt, opts)
	}
	return "", nil
}

// CompleteStream implements CompletionClient.
func (m *MockCompletionClient) CompleteStream(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts, deltas chan<- string) error {
	m.CompleteStreamCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteStreamFunc != nil {
		return m.CompleteStreamFunc(ctx, prompt, systemPrompt, opts, deltas)
	}
	return nil
}

// GetModel implements CompletionClient.
func (m *MockCompletionClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking counters.
func (m *MockCompletionClient) Reset() {
	m.CompleteCalls = 0
	m.CompleteStreamCalls = 0
	m.Prompts = nil
}

// Ensure MockCompletionClient implements CompletionClient at compile time.
var _ CompletionClient = (*MockCompletionClient)(nil)

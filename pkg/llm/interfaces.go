// Package llm provides text-completion provider clients.
package llm

import (
	"context"
)

// CompletionOpts carries per-call provider options.
type CompletionOpts struct {
	Temperature float64
	MaxTokens   int
}

// CompletionClient defines the interface for text-completion operations.
// Use this interface for dependency injection to enable mocking in tests.
type CompletionClient interface {
	// Complete generates a completion for the prompt and returns the full text.
	Complete(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts) (string, error)

	// CompleteStream generates a completion and sends text deltas on the
	// channel in arrival order. The channel is not closed by the client.
	// A delta is only sent after the previous send was accepted, so the
	// consumer paces the stream. Returns once the provider stream ends.
	CompleteStream(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts, deltas chan<- string) error

	// GetModel returns the configured model name.
	GetModel() string
}

// Config holds configuration for creating a completion client.
type Config struct {
	Endpoint string // Base URL, e.g. "https://api.openai.com/v1"
	Model    string // Model name
	APIKey   string // Optional for local endpoints
}

// Ensure implementations satisfy CompletionClient at compile time.
var (
	_ CompletionClient = (*Client)(nil)
	_ CompletionClient = (*AnthropicClient)(nil)
)

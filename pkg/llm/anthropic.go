package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient provides access to the Anthropic Messages API behind the
// same CompletionClient interface as the OpenAI-compatible client.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates a new Anthropic completion client.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger.Named("anthropic"),
	}, nil
}

func (c *AnthropicClient) messagesRequest(prompt, systemPrompt string, opts CompletionOpts) anthropic.MessagesRequest {
	temperature := float32(opts.Temperature)
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	return anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemPrompt,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	}
}

// Complete generates a completion and returns the full text.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, c.messagesRequest(prompt, systemPrompt, opts))
	if err != nil {
		c.logger.Error("completion request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	content := extractText(resp.Content)
	if content == "" {
		return "", NewError(ErrorTypeEmpty, "no text content in response", false, nil)
	}

	c.logger.Info("completion request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return content, nil
}

// CompleteStream generates a completion and relays text deltas to the channel.
func (c *AnthropicClient) CompleteStream(ctx context.Context, prompt string, systemPrompt string, opts CompletionOpts, deltas chan<- string) error {
	start := time.Now()
	received := 0

	_, err := c.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
		MessagesRequest: c.messagesRequest(prompt, systemPrompt, opts),
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text == nil || *data.Delta.Text == "" {
				return
			}
			select {
			case deltas <- *data.Delta.Text:
				received++
			case <-ctx.Done():
			}
		},
	})
	if err != nil {
		c.logger.Error("stream request failed", zap.Error(err))
		return ClassifyError(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("completion stream finished",
		zap.Int("deltas", received),
		zap.Duration("elapsed", time.Since(start)))

	if received == 0 {
		return NewError(ErrorTypeEmpty, "stream produced no content", false, nil)
	}
	return nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

func extractText(blocks []anthropic.MessageContent) string {
	for _, block := range blocks {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

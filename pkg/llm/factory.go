package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/config"
)

// NewCompletionClient creates the configured provider client.
// "openai" covers any OpenAI-compatible endpoint; "anthropic" uses the
// Anthropic Messages API.
func NewCompletionClient(cfg *config.AIConfig, logger *zap.Logger) (CompletionClient, error) {
	clientCfg := &Config{
		Endpoint: cfg.BaseURL,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case "openai":
		return NewClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for draftforge-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (database
// password, AI API key) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Completion provider configuration
	AI AIConfig `yaml:"ai"`

	// Generation pipeline tuning
	Generation GenerationConfig `yaml:"generation"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"draftforge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"draftforge_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// AIConfig holds the text-completion provider settings. Provider selects the
// SDK: "openai" speaks to any OpenAI-compatible endpoint, "anthropic" uses
// the Anthropic Messages API.
type AIConfig struct {
	Provider    string  `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	BaseURL     string  `yaml:"base_url" env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string  `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.7"`
	MaxTokens   int     `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"2048"`
}

// GenerationConfig tunes the section generation pipeline.
type GenerationConfig struct {
	// SectionDelayMs is the fixed pause between consecutive section calls,
	// keeping request rate below provider limits.
	SectionDelayMs int `yaml:"section_delay_ms" env:"GENERATION_SECTION_DELAY_MS" env-default:"300"`
	// PointsPerSection is the cost deducted per requested section before a
	// full run starts.
	PointsPerSection int `yaml:"points_per_section" env:"GENERATION_POINTS_PER_SECTION" env-default:"10"`
}

// SectionDelay returns the inter-section pause as a duration.
func (g *GenerationConfig) SectionDelay() time.Duration {
	return time.Duration(g.SectionDelayMs) * time.Millisecond
}

// Load reads configuration from config.yaml with environment variable
// overrides. If the YAML file is absent, environment variables and defaults
// alone are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// No config file is fine for env-only deployments.
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai model is required")
	}
	if c.Generation.SectionDelayMs < 0 {
		return fmt.Errorf("section_delay_ms must be non-negative")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

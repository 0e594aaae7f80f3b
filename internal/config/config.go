// Package config loads the agentscope CLI configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Memory backends
const (
	MemoryInMemory = "memory"
	MemoryRedis    = "redis"
	MemoryPostgres = "postgres"
)

// SQL drivers for the postgres memory
const (
	DriverPgx         = "pgx"
	DriverDatabaseSQL = "database-sql"
)

// Session stores for the in-process memory
const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"
)

// Tokenizers
const (
	TokenizerChar      = "char"
	TokenizerTiktoken  = "tiktoken"
	TokenizerAnthropic = "anthropic"
)

type Config struct {
	APIKey           string `env:"ANTHROPIC_API_KEY"`
	Model            string `env:"AGENTSCOPE_MODEL" envDefault:"claude-sonnet-4-5"`
	CompressionModel string `env:"AGENTSCOPE_COMPRESSION_MODEL"`

	Memory      string `env:"AGENTSCOPE_MEMORY" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLDriver   string `env:"AGENTSCOPE_SQL_DRIVER" envDefault:"pgx"`

	// Compression
	TriggerThreshold int    `env:"AGENTSCOPE_TRIGGER_THRESHOLD" envDefault:"0"`
	KeepRecent       int    `env:"AGENTSCOPE_KEEP_RECENT" envDefault:"3"`
	Tokenizer        string `env:"AGENTSCOPE_TOKENIZER" envDefault:"char"`

	SessionStore string `env:"AGENTSCOPE_SESSION_STORE" envDefault:"file"`
	SessionDir   string `env:"AGENTSCOPE_SESSION_DIR" envDefault:".agentscope/sessions"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads envFiles (missing files are ignored) and parses the
// environment. Variables already set take precedence over the files.
func Load(envFiles ...string) (*Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains([]string{MemoryInMemory, MemoryRedis, MemoryPostgres}, c.Memory) {
		return fmt.Errorf("AGENTSCOPE_MEMORY: unknown backend %q", c.Memory)
	}
	if c.Memory == MemoryPostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the postgres memory")
	}
	if !slices.Contains([]string{DriverPgx, DriverDatabaseSQL}, c.SQLDriver) {
		return fmt.Errorf("AGENTSCOPE_SQL_DRIVER: unknown driver %q", c.SQLDriver)
	}
	if !slices.Contains([]string{SessionStoreFile, SessionStoreRedis}, c.SessionStore) {
		return fmt.Errorf("AGENTSCOPE_SESSION_STORE: unknown store %q", c.SessionStore)
	}
	if !slices.Contains([]string{TokenizerChar, TokenizerTiktoken, TokenizerAnthropic}, c.Tokenizer) {
		return fmt.Errorf("AGENTSCOPE_TOKENIZER: unknown tokenizer %q", c.Tokenizer)
	}
	if c.TriggerThreshold < 0 {
		return errors.New("AGENTSCOPE_TRIGGER_THRESHOLD must not be negative")
	}
	if c.KeepRecent < 0 {
		return errors.New("AGENTSCOPE_KEEP_RECENT must not be negative")
	}
	return nil
}

// CompressionEnabled reports whether a trigger threshold is set
func (c *Config) CompressionEnabled() bool {
	return c.TriggerThreshold > 0
}

// SummaryModel returns the compression model, defaulting to the chat model
func (c *Config) SummaryModel() string {
	if c.CompressionModel != "" {
		return c.CompressionModel
	}
	return c.Model
}

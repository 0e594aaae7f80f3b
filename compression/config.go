package compression

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/token"
)

// DefaultKeepRecent is the number of most recent messages DefaultConfig
// exempts from compression
const DefaultKeepRecent = 3

// Config holds compression configuration.
type Config struct {
	// Enabled turns compression on. A disabled Compressor never compresses.
	Enabled bool

	// Counter measures uncompressed messages against TriggerThreshold.
	// Default: token.NewCharCounter()
	Counter token.Counter

	// TriggerThreshold is the token count above which compression fires.
	TriggerThreshold int

	// KeepRecent is the number of most recent uncompressed messages that are
	// never compressed. Zero keeps none.
	KeepRecent int

	// Model produces the summary. It may be smaller and cheaper than the
	// agent's model.
	Model model.ChatModel

	// SummarySchema is the structured output requested from Model.
	// Default: SummarySchema()
	SummarySchema *jsonschema.Schema

	// SummaryTemplate renders the structured output. Every {placeholder}
	// must be a property of SummarySchema.
	// Default: DefaultSummaryTemplate
	SummaryTemplate string

	// CompressionPrompt is the final user turn of the summarization request.
	// Default: DefaultCompressionPrompt
	CompressionPrompt string

	// SystemPrompt opens the summarization request.
	// Default: DefaultSystemPrompt
	SystemPrompt string

	// MaxTokens bounds the summary response; zero uses the model's default.
	MaxTokens int
}

// DefaultConfig returns an enabled Config with the default window and
// prompts. Model and TriggerThreshold must still be set.
func DefaultConfig() Config {
	cfg := Config{
		Enabled:    true,
		KeepRecent: DefaultKeepRecent,
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Counter == nil {
		c.Counter = token.NewCharCounter()
	}
	if c.SummarySchema == nil {
		// Summary has only string fields, so deriving its schema cannot fail.
		c.SummarySchema, _ = SummarySchema()
	}
	if c.SummaryTemplate == "" {
		c.SummaryTemplate = DefaultSummaryTemplate
	}
	if c.CompressionPrompt == "" {
		c.CompressionPrompt = DefaultCompressionPrompt
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
}

// Validate validates the configuration and returns an error if invalid.
// A disabled configuration is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TriggerThreshold <= 0 {
		return fmt.Errorf("%w: trigger_threshold must be positive, got %d", ErrInvalidConfig, c.TriggerThreshold)
	}
	if c.KeepRecent < 0 {
		return fmt.Errorf("%w: keep_recent must be non-negative, got %d", ErrInvalidConfig, c.KeepRecent)
	}
	if c.Model == nil {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if c.Counter == nil {
		return fmt.Errorf("%w: token counter is required", ErrInvalidConfig)
	}
	if c.SummarySchema == nil {
		return fmt.Errorf("%w: summary schema is required", ErrInvalidConfig)
	}
	if c.SummarySchema.Type != "" && c.SummarySchema.Type != "object" {
		return fmt.Errorf("%w: summary schema must describe an object, got %q", ErrInvalidConfig, c.SummarySchema.Type)
	}
	for _, name := range Placeholders(c.SummaryTemplate) {
		if _, ok := c.SummarySchema.Properties[name]; !ok {
			return fmt.Errorf("%w: summary template field %q is missing from the summary schema", ErrInvalidConfig, name)
		}
	}
	for _, name := range c.SummarySchema.Required {
		if _, ok := c.SummarySchema.Properties[name]; !ok {
			return fmt.Errorf("%w: required field %q is not a schema property", ErrInvalidConfig, name)
		}
	}
	return nil
}

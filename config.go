package agentscope

import (
	"fmt"
	"time"

	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/hooks"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/tool"
)

const (
	// DefaultMaxIters bounds the reasoning/acting iterations of one reply
	DefaultMaxIters = 10

	// DefaultToolTimeout bounds a single tool call
	DefaultToolTimeout = 5 * time.Minute
)

// summarizingHint is appended to the prompt when a reply runs out of
// iterations
const summarizingHint = "You have failed to generate a response within the maximum iterations. " +
	"Now respond directly by summarizing the current situation."

// Config holds the required configuration for an agent.
//
// Example:
//
//	agent, _ := agentscope.New(agentscope.Config{
//	    Name:         "Friday",
//	    SystemPrompt: "You are a helpful assistant",
//	    Model:        chat,
//	})
type Config struct {
	// Name is the agent's name, used as the sender of its messages (required)
	Name string

	// SystemPrompt is the system prompt for the agent (required)
	SystemPrompt string

	// Model answers each reasoning step (required)
	Model model.ChatModel

	// Memory stores the conversation. Default: memory.NewInMemory()
	Memory memory.Memory
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: Name is required", ErrInvalidConfig)
	}
	if c.SystemPrompt == "" {
		return fmt.Errorf("%w: SystemPrompt is required", ErrInvalidConfig)
	}
	if c.Model == nil {
		return fmt.Errorf("%w: Model is required", ErrInvalidConfig)
	}
	return nil
}

// internalConfig holds the full agent configuration including optional parameters
type internalConfig struct {
	maxIters      int
	maxTokens     int
	parallelTools bool
	toolTimeout   time.Duration
	variables     map[string]any

	tools   []tool.Tool
	toolkit *tool.Registry

	compression *compression.Config
	compressor  *compression.Compressor

	hooks         *hooks.Registry
	logger        logging.Logger
	streamHandler func(*model.Chunk)
}

func newInternalConfig() *internalConfig {
	return &internalConfig{
		maxIters:    DefaultMaxIters,
		toolTimeout: DefaultToolTimeout,
		hooks:       hooks.NewRegistry(),
		logger:      logging.Noop(),
	}
}

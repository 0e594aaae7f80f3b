package agentscope

import (
	"time"

	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/hooks"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/tool"
)

// Option is a functional option for configuring an Agent
type Option func(*internalConfig) error

// WithMaxIters sets the maximum reasoning/acting iterations per reply (default 10)
func WithMaxIters(n int) Option {
	return func(c *internalConfig) error {
		if n <= 0 {
			return NewAgentError("WithMaxIters", ErrInvalidConfig).
				WithContext("n", n).
				WithContext("reason", "must be positive")
		}
		c.maxIters = n
		return nil
	}
}

// WithMaxTokens sets the maximum number of tokens to generate per step
func WithMaxTokens(n int) Option {
	return func(c *internalConfig) error {
		c.maxTokens = n
		return nil
	}
}

// WithTools registers tools with the agent
func WithTools(tools ...tool.Tool) Option {
	return func(c *internalConfig) error {
		for _, t := range tools {
			if t == nil {
				return NewAgentError("WithTools", ErrInvalidConfig).
					WithContext("reason", "nil tool")
			}
			c.tools = append(c.tools, t)
		}
		return nil
	}
}

// WithToolkit uses an existing registry. Tools from WithTools are added to it.
func WithToolkit(registry *tool.Registry) Option {
	return func(c *internalConfig) error {
		c.toolkit = registry
		return nil
	}
}

// WithParallelToolCalls runs the tool calls of one step concurrently
func WithParallelToolCalls(parallel bool) Option {
	return func(c *internalConfig) error {
		c.parallelTools = parallel
		return nil
	}
}

// WithToolTimeout sets the timeout for individual tool executions (default 5m)
func WithToolTimeout(timeout time.Duration) Option {
	return func(c *internalConfig) error {
		if timeout <= 0 {
			return NewAgentError("WithToolTimeout", ErrInvalidConfig).
				WithContext("timeout", timeout).
				WithContext("reason", "timeout must be positive")
		}
		c.toolTimeout = timeout
		return nil
	}
}

// WithVariables passes values to tools through tool.GetVariable
func WithVariables(vars map[string]any) Option {
	return func(c *internalConfig) error {
		c.variables = vars
		return nil
	}
}

// WithCompression enables memory compression. The configuration is
// validated by New.
func WithCompression(cfg compression.Config) Option {
	return func(c *internalConfig) error {
		c.compression = &cfg
		return nil
	}
}

// WithCompressor shares an existing compressor
func WithCompressor(compressor *compression.Compressor) Option {
	return func(c *internalConfig) error {
		c.compressor = compressor
		return nil
	}
}

// WithHooks uses an existing hook registry
func WithHooks(registry *hooks.Registry) Option {
	return func(c *internalConfig) error {
		if registry != nil {
			c.hooks = registry
		}
		return nil
	}
}

// WithLogger sets the agent logger
func WithLogger(logger logging.Logger) Option {
	return func(c *internalConfig) error {
		c.logger = logging.OrNoop(logger)
		return nil
	}
}

// WithStreamHandler streams reasoning steps through handler when the model
// implements model.StreamingModel
func WithStreamHandler(handler func(*model.Chunk)) Option {
	return func(c *internalConfig) error {
		c.streamHandler = handler
		return nil
	}
}

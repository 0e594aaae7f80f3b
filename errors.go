package agentscope

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the agent configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotStateful is returned by StateDict and LoadStateDict when the
	// agent's memory cannot be serialized
	ErrNotStateful = errors.New("memory does not support state dicts")

	// ErrReplyInterrupted is returned when a tool interrupted the reply
	ErrReplyInterrupted = errors.New("reply interrupted")
)

// AgentError represents an error with additional context
type AgentError struct {
	Op      string         // Operation that failed
	Agent   string         // Agent name
	Err     error          // Underlying error
	Context map[string]any // Additional context
}

// Error implements the error interface
func (e *AgentError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("%s (agent=%s): %v", e.Op, e.Agent, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *AgentError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *AgentError) WithContext(key string, value any) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewAgentError creates a new AgentError
func NewAgentError(op string, err error) *AgentError {
	return &AgentError{
		Op:  op,
		Err: err,
	}
}

func (a *Agent) wrapErr(op string, err error) *AgentError {
	return &AgentError{Op: op, Agent: a.name, Err: err}
}

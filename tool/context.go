package tool

import (
	"context"
)

type contextKey struct{}

// CallContext describes the agent reply a tool call belongs to
type CallContext struct {
	// AgentName is the name of the calling agent
	AgentName string

	// ReplyID is the id of the assistant message that issued the call
	ReplyID string

	// CallID is the id of the tool_use block
	CallID string

	// Variables are caller-supplied values for the current reply, such as a
	// tenant or user id
	Variables map[string]any
}

// WithCallContext attaches cc to ctx. The executor sets CallID per call.
func WithCallContext(ctx context.Context, cc CallContext) context.Context {
	return context.WithValue(ctx, contextKey{}, cc)
}

// GetCallContext returns the call context, false when ctx carries none
func GetCallContext(ctx context.Context) (CallContext, bool) {
	cc, ok := ctx.Value(contextKey{}).(CallContext)
	return cc, ok
}

// GetVariable extracts a typed variable from the call context.
// Returns the zero value and false if the variable is not found or has the
// wrong type.
//
// Example:
//
//	tenant, ok := tool.GetVariable[string](ctx, "tenant_id")
func GetVariable[T any](ctx context.Context, key string) (T, bool) {
	var zero T
	cc, ok := GetCallContext(ctx)
	if !ok || cc.Variables == nil {
		return zero, false
	}
	typed, ok := cc.Variables[key].(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// GetVariableOr extracts a variable or returns defaultValue
func GetVariableOr[T any](ctx context.Context, key string, defaultValue T) T {
	if v, ok := GetVariable[T](ctx, key); ok {
		return v
	}
	return defaultValue
}

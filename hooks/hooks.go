// Package hooks lets callers observe and veto the steps of an agent reply.
package hooks

import (
	"context"
	"sync"

	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/tool"
)

// BeforeReasoningHook is called with the request before each model call.
// Returning an error aborts the reply.
type BeforeReasoningHook func(ctx context.Context, req *model.Request) error

// AfterReasoningHook is called with each model response
type AfterReasoningHook func(ctx context.Context, resp *model.Response) error

// ToolCallHook is called after each tool call
type ToolCallHook func(ctx context.Context, result *tool.Result) error

// BeforeCompressionHook is called when memory is about to be compressed,
// with the uncompressed token count
type BeforeCompressionHook func(ctx context.Context, tokens int) error

// AfterCompressionHook is called after a compression check. Result is nil
// when the run failed, in which case err is set.
type AfterCompressionHook func(ctx context.Context, result *compression.Result, err error) error

// Registry holds all registered hooks
type Registry struct {
	mu                sync.RWMutex
	beforeReasoning   []BeforeReasoningHook
	afterReasoning    []AfterReasoningHook
	toolCall          []ToolCallHook
	beforeCompression []BeforeCompressionHook
	afterCompression  []AfterCompressionHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{}
}

// OnBeforeReasoning registers a hook to be called before each model call
func (r *Registry) OnBeforeReasoning(hook BeforeReasoningHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeReasoning = append(r.beforeReasoning, hook)
}

// OnAfterReasoning registers a hook to be called after each model call
func (r *Registry) OnAfterReasoning(hook AfterReasoningHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterReasoning = append(r.afterReasoning, hook)
}

// OnToolCall registers a hook to be called after each tool call
func (r *Registry) OnToolCall(hook ToolCallHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolCall = append(r.toolCall, hook)
}

// OnBeforeCompression registers a hook to be called before compression
func (r *Registry) OnBeforeCompression(hook BeforeCompressionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeCompression = append(r.beforeCompression, hook)
}

// OnAfterCompression registers a hook to be called after compression
func (r *Registry) OnAfterCompression(hook AfterCompressionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterCompression = append(r.afterCompression, hook)
}

// snapshot copies a hook list under the read lock so hooks run unlocked
func snapshot[H any](r *Registry, list func() []H) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]H(nil), list()...)
}

// run calls each hook in registration order and stops at the first error
func run[H any](hooks []H, call func(H) error) error {
	for _, hook := range hooks {
		if err := call(hook); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeReasoning calls all registered before-reasoning hooks
func (r *Registry) TriggerBeforeReasoning(ctx context.Context, req *model.Request) error {
	return run(snapshot(r, func() []BeforeReasoningHook { return r.beforeReasoning }), func(h BeforeReasoningHook) error { return h(ctx, req) })
}

// TriggerAfterReasoning calls all registered after-reasoning hooks
func (r *Registry) TriggerAfterReasoning(ctx context.Context, resp *model.Response) error {
	return run(snapshot(r, func() []AfterReasoningHook { return r.afterReasoning }), func(h AfterReasoningHook) error { return h(ctx, resp) })
}

// TriggerToolCall calls all registered tool-call hooks
func (r *Registry) TriggerToolCall(ctx context.Context, result *tool.Result) error {
	return run(snapshot(r, func() []ToolCallHook { return r.toolCall }), func(h ToolCallHook) error { return h(ctx, result) })
}

// TriggerBeforeCompression calls all registered before-compression hooks
func (r *Registry) TriggerBeforeCompression(ctx context.Context, tokens int) error {
	return run(snapshot(r, func() []BeforeCompressionHook { return r.beforeCompression }), func(h BeforeCompressionHook) error { return h(ctx, tokens) })
}

// TriggerAfterCompression calls all registered after-compression hooks
func (r *Registry) TriggerAfterCompression(ctx context.Context, result *compression.Result, err error) error {
	return run(snapshot(r, func() []AfterCompressionHook { return r.afterCompression }), func(h AfterCompressionHook) error { return h(ctx, result, err) })
}

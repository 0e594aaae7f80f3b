package agentscope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/hooks"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/tool"
	"github.com/youssefsiam38/agentscope/types"
)

// toolResultName is the sender of the messages carrying tool results
const toolResultName = "system"

// Agent is a ReAct agent: each reply alternates reasoning steps and tool
// calls until the model answers without calling a tool. Replies on one
// Agent are serialized.
type Agent struct {
	name         string
	systemPrompt string
	model        model.ChatModel
	memory       memory.Memory

	config     *internalConfig
	toolkit    *tool.Registry
	executor   *tool.Executor
	compressor *compression.Compressor
	hooks      *hooks.Registry
	logger     logging.Logger

	mu    sync.Mutex
	usage model.Usage
}

// New creates a new Agent with the given configuration and options
func New(cfg Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	internal := newInternalConfig()
	for _, opt := range opts {
		if err := opt(internal); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	mem := cfg.Memory
	if mem == nil {
		mem = memory.NewInMemory()
	}

	toolkit := internal.toolkit
	if toolkit == nil {
		toolkit = tool.NewRegistry()
	}
	if err := toolkit.RegisterAll(internal.tools...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	executor := tool.NewExecutor(toolkit,
		tool.WithTimeout(internal.toolTimeout),
		tool.WithLogger(internal.logger))

	compressor := internal.compressor
	if compressor == nil && internal.compression != nil {
		var err error
		compressor, err = compression.New(*internal.compression, compression.WithLogger(internal.logger))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return &Agent{
		name:         cfg.Name,
		systemPrompt: cfg.SystemPrompt,
		model:        cfg.Model,
		memory:       mem,
		config:       internal,
		toolkit:      toolkit,
		executor:     executor,
		compressor:   compressor,
		hooks:        internal.hooks,
		logger:       internal.logger,
	}, nil
}

// Name returns the agent's name
func (a *Agent) Name() string {
	return a.name
}

// SystemPrompt returns the system prompt
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// Memory returns the agent's conversation store
func (a *Agent) Memory() memory.Memory {
	return a.memory
}

// Toolkit returns the agent's tool registry
func (a *Agent) Toolkit() *tool.Registry {
	return a.toolkit
}

// Compressor returns the agent's compressor, nil when compression is off
func (a *Agent) Compressor() *compression.Compressor {
	return a.compressor
}

// Hooks returns the agent's hook registry
func (a *Agent) Hooks() *hooks.Registry {
	return a.hooks
}

// Usage returns the tokens consumed by the agent's reasoning steps
func (a *Agent) Usage() model.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// Observe adds messages to memory without replying
func (a *Agent) Observe(ctx context.Context, msgs ...*types.Msg) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.memory.Add(ctx, msgs); err != nil {
		return a.wrapErr("Observe", err)
	}
	return nil
}

// Hint adds a transient user message marked memory.MarkHint. Hints are seen
// by the next reasoning step only and are then deleted.
func (a *Agent) Hint(ctx context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	hint := types.NewUserMsg("user", text)
	if err := a.memory.Add(ctx, []*types.Msg{hint}, memory.MarkHint); err != nil {
		return a.wrapErr("Hint", err)
	}
	return nil
}

// Reply adds msgs to memory and runs the reasoning/acting loop. It returns
// the final assistant message. When the loop exhausts its iterations the
// model is asked once more, without tools, to summarize the situation.
//
// When a tool interrupts the reply, Reply returns the last assistant
// message together with an error wrapping ErrReplyInterrupted.
func (a *Agent) Reply(ctx context.Context, msgs ...*types.Msg) (*types.Msg, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.memory.Add(ctx, msgs); err != nil {
		return nil, a.wrapErr("Reply", err)
	}

	invocationID := uuid.New().String()
	for iter := 0; iter < a.config.maxIters; iter++ {
		reply, err := a.reasoning(ctx, invocationID, true)
		if err != nil {
			return nil, err
		}

		calls := reply.GetContentBlocks(types.BlockToolUse)
		if len(calls) == 0 {
			return reply, nil
		}

		if err := a.acting(ctx, reply, calls); err != nil {
			return reply, err
		}
	}

	a.logger.Warn("reply reached max iterations", "agent", a.name, "max_iters", a.config.maxIters)
	return a.summarizing(ctx, invocationID)
}

// reasoning runs one model call over the compressed view of memory and
// stores the assistant message
func (a *Agent) reasoning(ctx context.Context, invocationID string, withTools bool, extra ...*types.Msg) (*types.Msg, error) {
	a.compressMemory(ctx)

	view, err := a.memory.GetMemory(ctx, memory.WithExcludeMark(memory.MarkCompressed))
	if err != nil {
		return nil, a.wrapErr("Reasoning", err)
	}
	req := &model.Request{
		System:    a.systemPrompt,
		Messages:  append(view, extra...),
		MaxTokens: a.config.maxTokens,
	}
	if withTools {
		req.Tools = a.toolkit.Specs()
	}

	if err := a.hooks.TriggerBeforeReasoning(ctx, req); err != nil {
		return nil, a.wrapErr("Reasoning", err)
	}

	resp, err := a.generate(ctx, req)
	if err != nil {
		return nil, a.wrapErr("Reasoning", err).WithContext("model", a.model.Name())
	}
	a.usage = a.usage.Add(resp.Usage)

	// Hints are consumed by the step that saw them.
	if _, err := a.memory.DeleteByMark(ctx, memory.MarkHint); err != nil {
		a.logger.Warn("failed to delete hints", "agent", a.name, "error", err)
	}

	if err := a.hooks.TriggerAfterReasoning(ctx, resp); err != nil {
		return nil, a.wrapErr("Reasoning", err)
	}

	reply := types.NewAssistantMsg(a.name, resp.Content...)
	reply.InvocationID = invocationID
	if err := a.memory.Add(ctx, []*types.Msg{reply}); err != nil {
		return nil, a.wrapErr("Reasoning", err)
	}
	return reply, nil
}

// generate calls the model, streaming when a handler is configured and the
// model supports it
func (a *Agent) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	streamer, ok := a.model.(model.StreamingModel)
	if a.config.streamHandler == nil || !ok {
		return a.model.Generate(ctx, req)
	}

	var last *model.Chunk
	for chunk, err := range streamer.Stream(ctx, req) {
		if err != nil {
			return nil, err
		}
		a.config.streamHandler(chunk)
		last = chunk
	}
	if last == nil {
		return nil, errors.New("model stream ended without a chunk")
	}

	resp := &model.Response{Content: last.Content, Usage: last.Usage}
	if len(resp.ToolCalls()) > 0 {
		resp.StopReason = "tool_use"
	}
	return resp, nil
}

// acting executes the tool calls of reply and stores their results as one
// message
func (a *Agent) acting(ctx context.Context, reply *types.Msg, calls []types.Block) error {
	callCtx := tool.WithCallContext(ctx, tool.CallContext{
		AgentName: a.name,
		ReplyID:   reply.ID,
		Variables: a.config.variables,
	})

	results, execErr := a.executor.ExecuteAll(callCtx, calls, a.config.parallelTools)

	blocks := make([]types.Block, 0, len(results))
	for _, result := range results {
		if err := a.hooks.TriggerToolCall(ctx, result); err != nil {
			a.logger.Warn("tool call hook failed", "agent", a.name, "tool", result.ToolName, "error", err)
		}
		blocks = append(blocks, result.Block())
	}

	// Results are stored even on interruption so every tool_use has its
	// tool_result.
	resultMsg := types.NewMsg(toolResultName, types.RoleSystem, types.Blocks(blocks...))
	resultMsg.InvocationID = reply.InvocationID
	if err := a.memory.Add(ctx, []*types.Msg{resultMsg}); err != nil {
		return a.wrapErr("Acting", err)
	}

	if execErr != nil {
		return a.wrapErr("Acting", fmt.Errorf("%w: %w", ErrReplyInterrupted, execErr))
	}
	return nil
}

// summarizing asks the model, without tools, to answer from what it has
func (a *Agent) summarizing(ctx context.Context, invocationID string) (*types.Msg, error) {
	hint := types.NewUserMsg("user", summarizingHint)
	reply, err := a.reasoning(ctx, invocationID, false, hint)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// compressMemory runs the compression check. Failures are logged and
// reported to hooks; they never fail the reply.
func (a *Agent) compressMemory(ctx context.Context) {
	if a.compressor == nil {
		return
	}

	result, err := a.compressor.CompressIfEligible(ctx, a.memory, a.hooks.TriggerBeforeCompression)
	if errors.Is(err, compression.ErrCompressionVetoed) {
		a.logger.Info("compression skipped by hook", "agent", a.name, "error", err)
		return
	}
	if err == nil && !result.Compressed {
		return
	}
	a.reportCompression(ctx, result, err)
}

func (a *Agent) reportCompression(ctx context.Context, result *compression.Result, err error) {
	if err != nil {
		a.logger.Warn("memory compression failed; continuing uncompressed", "agent", a.name, "error", err)
	}
	if hookErr := a.hooks.TriggerAfterCompression(ctx, result, err); hookErr != nil {
		a.logger.Warn("after compression hook failed", "agent", a.name, "error", hookErr)
	}
}

// StateDict returns the agent's memory state under the "memory" key
func (a *Agent) StateDict(ctx context.Context) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stateful, ok := a.memory.(memory.Stateful)
	if !ok {
		return nil, a.wrapErr("StateDict", ErrNotStateful)
	}
	mem, err := stateful.StateDict(ctx)
	if err != nil {
		return nil, a.wrapErr("StateDict", err)
	}
	return map[string]any{"memory": mem}, nil
}

// LoadStateDict restores memory from a StateDict result
func (a *Agent) LoadStateDict(ctx context.Context, state map[string]any, strict bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stateful, ok := a.memory.(memory.Stateful)
	if !ok {
		return a.wrapErr("LoadStateDict", ErrNotStateful)
	}
	if strict {
		for key := range state {
			if key != "memory" {
				return &memory.LookupError{Key: key, Err: memory.ErrUnknownStateKey}
			}
		}
	}
	raw, ok := state["memory"]
	if !ok {
		if strict {
			return &memory.LookupError{Key: "memory", Err: memory.ErrMissingStateKey}
		}
		return nil
	}
	mem, ok := raw.(map[string]any)
	if !ok {
		return &memory.LookupError{Key: "memory", Err: fmt.Errorf("%w: expected object, got %T", memory.ErrInvalidState, raw)}
	}
	if err := stateful.LoadStateDict(ctx, mem, strict); err != nil {
		return a.wrapErr("LoadStateDict", err)
	}
	return nil
}

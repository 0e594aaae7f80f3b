package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/types"
)

const (
	// DefaultTimeout bounds a single tool call
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSnoozes bounds how often one call may be snoozed
	DefaultMaxSnoozes = 3
)

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithMaxSnoozes sets how many snoozes a call may use
func WithMaxSnoozes(n int) ExecutorOption {
	return func(e *Executor) { e.maxSnoozes = n }
}

// WithParallelism limits concurrent calls in ExecuteAll; zero is unlimited
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) { e.parallelism = n }
}

// WithLogger sets the executor logger
func WithLogger(l logging.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logging.OrNoop(l) }
}

// Executor runs tool_use blocks against a Registry with input validation,
// timeouts and snooze retries
type Executor struct {
	registry    *Registry
	validator   *Validator
	timeout     time.Duration
	maxSnoozes  int
	parallelism int
	logger      logging.Logger
}

// NewExecutor creates a new tool executor
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:   registry,
		validator:  NewValidator(),
		timeout:    DefaultTimeout,
		maxSnoozes: DefaultMaxSnoozes,
		logger:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor runs tools from
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Result is the outcome of one tool call
type Result struct {
	CallID   string
	ToolName string
	Input    json.RawMessage
	Output   string
	Err      error
	Duration time.Duration
	Snoozes  int
}

// Block converts the result into the tool_result block answering the call.
// Errors are reported to the model as text.
func (r *Result) Block() types.Block {
	output := r.Output
	if r.Err != nil {
		output = "Error: " + r.Err.Error()
	}
	return types.NewToolResultBlock(r.CallID, r.ToolName, types.Text(output))
}

// Execute runs a single tool_use block
func (e *Executor) Execute(ctx context.Context, call types.Block) *Result {
	start := time.Now()
	result := &Result{
		CallID:   call.ID,
		ToolName: call.Name,
		Input:    call.Input,
	}
	defer func() { result.Duration = time.Since(start) }()

	if call.Type != types.BlockToolUse {
		result.Err = fmt.Errorf("%w: block type %q is not a tool call", ErrInvalidInput, call.Type)
		return result
	}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
		return result
	}
	if err := e.validator.ValidateInput(tool.InputSchema(), call.Input); err != nil {
		result.Err = err
		return result
	}

	cc, _ := GetCallContext(ctx)
	cc.CallID = call.ID
	ctx = WithCallContext(ctx, cc)

	for {
		output, err := e.run(ctx, tool, call.Input)
		if d, snoozed := SnoozeDuration(err); snoozed && result.Snoozes < e.maxSnoozes {
			result.Snoozes++
			e.logger.Debug("tool snoozed", "tool", call.Name, "call_id", call.ID, "duration", d)
			select {
			case <-time.After(d):
				continue
			case <-ctx.Done():
				result.Err = ctx.Err()
				return result
			}
		}
		result.Output = output
		result.Err = err
		break
	}

	if result.Err != nil {
		e.logger.Warn("tool call failed", "tool", call.Name, "call_id", call.ID, "error", result.Err)
	}
	return result
}

func (e *Executor) run(ctx context.Context, tool Tool, input json.RawMessage) (string, error) {
	execCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	output, err := tool.Execute(execCtx, input)

	if ctxErr := execCtx.Err(); ctxErr != nil && ctx.Err() == nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return output, fmt.Errorf("tool execution timeout after %v", e.timeout)
	}
	return output, err
}

// ExecuteAll runs calls sequentially or in parallel and returns results in
// call order. It returns an error wrapping ErrToolInterrupted when any call
// was interrupted; the results are complete either way.
func (e *Executor) ExecuteAll(ctx context.Context, calls []types.Block, parallel bool) ([]*Result, error) {
	results := make([]*Result, len(calls))

	if parallel && len(calls) > 1 {
		var g errgroup.Group
		if e.parallelism > 0 {
			g.SetLimit(e.parallelism)
		}
		for i, call := range calls {
			g.Go(func() error {
				results[i] = e.Execute(ctx, call)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, call := range calls {
			results[i] = e.Execute(ctx, call)
		}
	}

	for _, r := range results {
		if IsInterrupt(r.Err) {
			return results, fmt.Errorf("tool %s: %w", r.ToolName, r.Err)
		}
	}
	return results, nil
}

// Package modeltest provides a scripted model.ChatModel for tests.
package modeltest

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync"

	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

// ErrScriptExhausted is returned when the model is called more often than scripted
var ErrScriptExhausted = errors.New("modeltest: no scripted response left")

// Step is one scripted reply
type Step struct {
	Response *model.Response
	Err      error

	// Wait blocks the call until the channel is closed or the context ends
	Wait <-chan struct{}
}

// Model replays scripted steps in order and records every request
type Model struct {
	mu       sync.Mutex
	steps    []Step
	requests []*model.Request
}

// New creates a model that replays steps
func New(steps ...Step) *Model {
	return &Model{steps: steps}
}

// Text is a step answering with a text block
func Text(text string) Step {
	return Step{Response: &model.Response{Content: []types.Block{types.NewTextBlock(text)}, StopReason: "end_turn"}}
}

// ToolCall is a step answering with a tool_use block
func ToolCall(id, name string, input any) Step {
	data, _ := json.Marshal(input)
	return Step{Response: &model.Response{
		Content:    []types.Block{types.NewToolUseBlock(id, name, data)},
		StopReason: "tool_use",
	}}
}

// Structured is a step answering with a structured object
func Structured(v any) Step {
	data, _ := json.Marshal(v)
	return Step{Response: &model.Response{Structured: data, StopReason: "tool_use"}}
}

// Fail is a step returning err
func Fail(err error) Step {
	return Step{Err: err}
}

func (m *Model) Name() string { return "modeltest" }

// Push appends steps to the script
func (m *Model) Push(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

func (m *Model) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.steps) == 0 {
		m.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	m.mu.Unlock()

	if step.Wait != nil {
		select {
		case <-step.Wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return step.Response, nil
}

// Requests returns the requests received so far
func (m *Model) Requests() []*model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Request(nil), m.requests...)
}

// Remaining returns the number of unused steps
func (m *Model) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

var _ model.ChatModel = (*Model)(nil)

// Stream replays the next step as one chunk per content block, the last
// chunk marked Done
func (m *Model) Stream(ctx context.Context, req *model.Request) iter.Seq2[*model.Chunk, error] {
	return func(yield func(*model.Chunk, error) bool) {
		resp, err := m.Generate(ctx, req)
		if err != nil {
			yield(nil, err)
			return
		}
		for i := range resp.Content {
			chunk := &model.Chunk{
				Content: resp.Content[:i+1],
				Done:    i == len(resp.Content)-1,
			}
			if chunk.Done {
				chunk.Usage = resp.Usage
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if len(resp.Content) == 0 {
			yield(&model.Chunk{Usage: resp.Usage, Done: true}, nil)
		}
	}
}

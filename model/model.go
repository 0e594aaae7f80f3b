// Package model defines the chat model capability used by agents and by the
// compression executor.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"iter"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/youssefsiam38/agentscope/types"
)

// ErrNoStructuredOutput is returned when a structured request produced no
// structured result
var ErrNoStructuredOutput = errors.New("model returned no structured output")

// ToolSpec describes a tool the model may call
type ToolSpec struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Request is one model call
type Request struct {
	// System is the system prompt. System-role messages in Messages are
	// appended to it by adapters that need a separate system field.
	System   string
	Messages []*types.Msg
	Tools    []ToolSpec

	// Structured, when set, asks the model for a JSON object matching the
	// schema. The object is returned in Response.Structured.
	Structured *jsonschema.Schema

	MaxTokens int
}

// Usage reports tokens consumed by a call
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add returns the sum of u and other
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Total returns input plus output tokens
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response is the result of a non-streaming call
type Response struct {
	Content    []types.Block
	Structured json.RawMessage
	Usage      Usage
	StopReason string
}

// ToolCalls returns the tool_use blocks of the response
func (r *Response) ToolCalls() []types.Block {
	var calls []types.Block
	for _, b := range r.Content {
		if b.Type == types.BlockToolUse {
			calls = append(calls, b)
		}
	}
	return calls
}

// Chunk is an incremental streaming result. Content holds everything
// received so far; Done marks the last chunk.
type Chunk struct {
	Content []types.Block
	Usage   Usage
	Done    bool
}

// ChatModel is a language model that answers a request with one response
type ChatModel interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// StreamingModel is a ChatModel that can also stream incremental chunks
type StreamingModel interface {
	ChatModel
	Stream(ctx context.Context, req *Request) iter.Seq2[*Chunk, error]
}

// DecodeStructured unmarshals resp.Structured into dst
func DecodeStructured(resp *Response, dst any) error {
	if resp == nil || len(resp.Structured) == 0 {
		return ErrNoStructuredOutput
	}
	return json.Unmarshal(resp.Structured, dst)
}

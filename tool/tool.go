// Package tool defines the tools an agent can call and executes the tool_use
// blocks a model produces.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the tool name the model calls it by
	Name() string

	// Description returns a human-readable description of what the tool does
	Description() string

	// InputSchema returns the JSON Schema of the tool's input object
	InputSchema() *jsonschema.Schema

	// Execute runs the tool with the provided input and returns the result
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// funcTool is a Tool backed by a function
type funcTool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	fn          func(context.Context, json.RawMessage) (string, error)
}

func (t *funcTool) Name() string                    { return t.name }
func (t *funcTool) Description() string             { return t.description }
func (t *funcTool) InputSchema() *jsonschema.Schema { return t.schema }

func (t *funcTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	return t.fn(ctx, input)
}

// NewFuncTool creates a Tool from a function that receives raw JSON input
func NewFuncTool(
	name string,
	description string,
	schema *jsonschema.Schema,
	fn func(context.Context, json.RawMessage) (string, error),
) Tool {
	return &funcTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

// NewTypedTool creates a Tool whose input schema is inferred from In and
// whose input is decoded into In before fn runs.
//
// Example:
//
//	type weatherInput struct {
//	    City string `json:"city" jsonschema:"the city to look up"`
//	}
//
//	weather, err := tool.NewTypedTool("get_weather", "Current weather for a city",
//	    func(ctx context.Context, in weatherInput) (string, error) {
//	        return lookup(ctx, in.City)
//	    })
func NewTypedTool[In any](
	name string,
	description string,
	fn func(context.Context, In) (string, error),
) (Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("tool %s: infer input schema: %w", name, err)
	}
	return &funcTool{
		name:        name,
		description: description,
		schema:      schema,
		fn: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var in In
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &in); err != nil {
					return "", Discard(fmt.Errorf("decode input: %w", err))
				}
			}
			return fn(ctx, in)
		},
	}, nil
}

// ObjectSchema builds an object schema from property schemas. Every name in
// required must be a key of props.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

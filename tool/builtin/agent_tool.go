// Package builtin provides tools built from other agentscope components.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/youssefsiam38/agentscope/tool"
	"github.com/youssefsiam38/agentscope/types"
)

// Replier is the part of an agent an AgentTool needs
type Replier interface {
	Name() string
	Reply(ctx context.Context, msgs ...*types.Msg) (*types.Msg, error)
}

// AgentTool lets one agent delegate tasks to another. The nested agent keeps
// its own memory across calls.
type AgentTool struct {
	agent       Replier
	name        string
	description string
	caller      string
}

// NewAgentTool wraps agent as a tool named name. The caller name is the
// sender of the task messages the nested agent receives.
func NewAgentTool(agent Replier, name, description, caller string) (*AgentTool, error) {
	if agent == nil {
		return nil, fmt.Errorf("agent cannot be nil")
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if description == "" {
		description = fmt.Sprintf("Delegate a task to the %s agent", agent.Name())
	}
	if caller == "" {
		caller = "user"
	}
	return &AgentTool{
		agent:       agent,
		name:        name,
		description: description,
		caller:      caller,
	}, nil
}

func (a *AgentTool) Name() string        { return a.name }
func (a *AgentTool) Description() string { return a.description }

func (a *AgentTool) InputSchema() *jsonschema.Schema {
	return tool.ObjectSchema(map[string]*jsonschema.Schema{
		"task": {
			Type:        "string",
			Description: "The task or question to delegate to this agent",
		},
		"context": {
			Type:        "string",
			Description: "Additional context for the task (optional)",
		},
	}, "task")
}

// Execute sends the task to the nested agent and returns its reply text
func (a *AgentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var params struct {
		Task    string `json:"task"`
		Context string `json:"context"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return "", tool.Discard(fmt.Errorf("invalid input: %w", err))
	}
	if params.Task == "" {
		return "", tool.Discard(fmt.Errorf("task is required"))
	}

	prompt := params.Task
	if params.Context != "" {
		prompt = fmt.Sprintf("Context: %s\n\nTask: %s", params.Context, params.Task)
	}

	reply, err := a.agent.Reply(ctx, types.NewUserMsg(a.caller, prompt))
	if err != nil {
		return "", fmt.Errorf("nested agent %s failed: %w", a.agent.Name(), err)
	}
	return reply.GetTextContent(), nil
}

package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/youssefsiam38/agentscope/tool"
	"github.com/youssefsiam38/agentscope/types"
)

type echoAgent struct {
	received []*types.Msg
	err      error
}

func (e *echoAgent) Name() string { return "echo" }

func (e *echoAgent) Reply(ctx context.Context, msgs ...*types.Msg) (*types.Msg, error) {
	e.received = append(e.received, msgs...)
	if e.err != nil {
		return nil, e.err
	}
	return types.NewAssistantMsg("echo", types.NewTextBlock("done: "+msgs[0].GetTextContent())), nil
}

func TestAgentTool(t *testing.T) {
	agent := &echoAgent{}
	at, err := NewAgentTool(agent, "delegate", "", "orchestrator")
	if err != nil {
		t.Fatalf("NewAgentTool: %v", err)
	}
	if !strings.Contains(at.Description(), "echo") {
		t.Errorf("default description should name the agent, got %q", at.Description())
	}

	registry := tool.NewRegistry()
	if err := registry.Register(at); err != nil {
		t.Fatalf("Register: %v", err)
	}

	input, _ := json.Marshal(map[string]string{"task": "sum it", "context": "numbers 1 2"})
	result := tool.NewExecutor(registry).Execute(context.Background(), types.NewToolUseBlock("c1", "delegate", input))
	if result.Err != nil {
		t.Fatalf("Execute: %v", result.Err)
	}
	if result.Output != "done: Context: numbers 1 2\n\nTask: sum it" {
		t.Errorf("unexpected output %q", result.Output)
	}
	if len(agent.received) != 1 || agent.received[0].Name != "orchestrator" {
		t.Errorf("unexpected messages %+v", agent.received)
	}
}

func TestAgentToolValidation(t *testing.T) {
	if _, err := NewAgentTool(nil, "x", "", ""); err == nil {
		t.Error("expected error for nil agent")
	}
	if _, err := NewAgentTool(&echoAgent{}, "", "", ""); err == nil {
		t.Error("expected error for empty name")
	}

	registry := tool.NewRegistry()
	at, _ := NewAgentTool(&echoAgent{}, "delegate", "Delegate", "")
	registry.Register(at)

	result := tool.NewExecutor(registry).Execute(context.Background(), types.NewToolUseBlock("c1", "delegate", json.RawMessage(`{}`)))
	if !errors.Is(result.Err, tool.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", result.Err)
	}
}

func TestAgentToolPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	at, _ := NewAgentTool(&echoAgent{err: boom}, "delegate", "Delegate", "")

	_, err := at.Execute(context.Background(), json.RawMessage(`{"task":"x"}`))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped failure, got %v", err)
	}
}

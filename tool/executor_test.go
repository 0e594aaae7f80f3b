package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/youssefsiam38/agentscope/types"
)

func emptySchema() *jsonschema.Schema {
	return ObjectSchema(nil)
}

func call(id, name, input string) types.Block {
	return types.NewToolUseBlock(id, name, json.RawMessage(input))
}

func TestExecuteAll_ParallelNoRaceCondition(t *testing.T) {
	registry := NewRegistry()

	var counter int32
	counterTool := NewFuncTool(
		"counter",
		"Increments counter",
		emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			n := atomic.AddInt32(&counter, 1)
			time.Sleep(time.Millisecond * time.Duration(1+n%5))
			return "done", nil
		},
	)
	if err := registry.Register(counterTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}

	executor := NewExecutor(registry, WithParallelism(8))

	numCalls := 50
	calls := make([]types.Block, numCalls)
	for i := range calls {
		calls[i] = call(fmt.Sprintf("call-%d", i), "counter", `{}`)
	}

	results, err := executor.ExecuteAll(context.Background(), calls, true)
	if err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	if len(results) != numCalls {
		t.Errorf("Expected %d results, got %d", numCalls, len(results))
	}
	for i, r := range results {
		if r == nil {
			t.Errorf("Result %d is nil", i)
			continue
		}
		if r.Err != nil {
			t.Errorf("Result %d has error: %v", i, r.Err)
		}
		if r.CallID != fmt.Sprintf("call-%d", i) {
			t.Errorf("Result %d has call id %s", i, r.CallID)
		}
	}

	if atomic.LoadInt32(&counter) != int32(numCalls) {
		t.Errorf("Expected counter %d, got %d", numCalls, counter)
	}
}

func TestExecuteAll_Empty(t *testing.T) {
	executor := NewExecutor(NewRegistry())

	results, err := executor.ExecuteAll(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}
}

func TestExecute_Timeout(t *testing.T) {
	registry := NewRegistry()

	slowTool := NewFuncTool(
		"slow",
		"A slow tool",
		emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second * 5):
				return "done", nil
			}
		},
	)
	if err := registry.Register(slowTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}

	executor := NewExecutor(registry, WithTimeout(50*time.Millisecond))
	result := executor.Execute(context.Background(), call("1", "slow", `{}`))

	if result.Err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if !strings.Contains(result.Err.Error(), "timeout") {
		t.Errorf("Expected timeout error, got %v", result.Err)
	}
}

func TestExecute_ToolNotFound(t *testing.T) {
	executor := NewExecutor(NewRegistry())

	result := executor.Execute(context.Background(), call("1", "nonexistent", `{}`))

	if !errors.Is(result.Err, ErrToolNotFound) {
		t.Errorf("Expected ErrToolNotFound, got %v", result.Err)
	}
	block := result.Block()
	if block.Type != types.BlockToolResult || block.ID != "1" {
		t.Errorf("Unexpected result block %+v", block)
	}
	if !strings.HasPrefix(block.Output.JoinedText(), "Error: ") {
		t.Errorf("Expected error text, got %q", block.Output.JoinedText())
	}
}

func TestExecute_InvalidInput(t *testing.T) {
	registry := NewRegistry()
	schema := ObjectSchema(map[string]*jsonschema.Schema{
		"city": {Type: "string"},
	}, "city")

	var called bool
	registry.Register(NewFuncTool("weather", "Weather", schema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			called = true
			return "sunny", nil
		}))

	executor := NewExecutor(registry)
	result := executor.Execute(context.Background(), call("1", "weather", `{}`))

	if !errors.Is(result.Err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", result.Err)
	}
	if called {
		t.Error("Tool should not run on invalid input")
	}
}

func TestExecute_Snooze(t *testing.T) {
	registry := NewRegistry()

	var attempts int32
	registry.Register(NewFuncTool("flaky", "Flaky", emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return "", Snooze(time.Millisecond, errors.New("rate limited"))
			}
			return "ok", nil
		}))

	executor := NewExecutor(registry)
	result := executor.Execute(context.Background(), call("1", "flaky", `{}`))

	if result.Err != nil {
		t.Fatalf("Expected success, got %v", result.Err)
	}
	if result.Output != "ok" || result.Snoozes != 2 {
		t.Errorf("Expected ok after 2 snoozes, got %q after %d", result.Output, result.Snoozes)
	}
}

func TestExecute_SnoozeLimit(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewFuncTool("busy", "Always busy", emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "", Snooze(time.Millisecond, nil)
		}))

	executor := NewExecutor(registry, WithMaxSnoozes(2))
	result := executor.Execute(context.Background(), call("1", "busy", `{}`))

	if !errors.Is(result.Err, ErrToolSnoozed) {
		t.Errorf("Expected ErrToolSnoozed, got %v", result.Err)
	}
	if result.Snoozes != 2 {
		t.Errorf("Expected 2 snoozes, got %d", result.Snoozes)
	}
}

func TestExecuteAll_Interrupt(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewFuncTool("stop", "Stops", emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "", Interrupt(errors.New("user cancelled"))
		}))
	registry.Register(NewFuncTool("echo", "Echo", emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "echo", nil
		}))

	executor := NewExecutor(registry)
	results, err := executor.ExecuteAll(context.Background(),
		[]types.Block{call("1", "echo", `{}`), call("2", "stop", `{}`)}, false)

	if !errors.Is(err, ErrToolInterrupted) {
		t.Fatalf("Expected ErrToolInterrupted, got %v", err)
	}
	if len(results) != 2 || results[0].Output != "echo" {
		t.Errorf("Expected both results, got %+v", results)
	}
}

func TestExecuteAll_Sequential(t *testing.T) {
	registry := NewRegistry()

	var order []int
	orderTool := NewFuncTool(
		"order",
		"Records execution order",
		ObjectSchema(map[string]*jsonschema.Schema{"id": {Type: "integer"}}),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var params struct{ ID int }
			json.Unmarshal(input, &params)
			order = append(order, params.ID)
			return "ok", nil
		},
	)
	registry.Register(orderTool)

	executor := NewExecutor(registry)

	calls := []types.Block{
		call("1", "order", `{"id": 1}`),
		call("2", "order", `{"id": 2}`),
		call("3", "order", `{"id": 3}`),
	}

	results, err := executor.ExecuteAll(context.Background(), calls, false)
	if err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, id := range []int{1, 2, 3} {
		if order[i] != id {
			t.Errorf("Expected order[%d] = %d, got %d", i, id, order[i])
		}
	}
}

func TestExecute_CallContext(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewFuncTool("whoami", "Reports context", emptySchema(),
		func(ctx context.Context, input json.RawMessage) (string, error) {
			cc, ok := GetCallContext(ctx)
			if !ok {
				return "", errors.New("no call context")
			}
			tenant := GetVariableOr(ctx, "tenant", "none")
			return cc.AgentName + "/" + cc.CallID + "/" + tenant, nil
		}))

	ctx := WithCallContext(context.Background(), CallContext{
		AgentName: "friday",
		Variables: map[string]any{"tenant": "acme"},
	})
	result := NewExecutor(registry).Execute(ctx, call("c1", "whoami", `{}`))

	if result.Output != "friday/c1/acme" {
		t.Errorf("Unexpected output %q (err %v)", result.Output, result.Err)
	}
}

func TestNewTypedTool(t *testing.T) {
	type input struct {
		City  string `json:"city"`
		Units string `json:"units,omitempty"`
	}
	weather, err := NewTypedTool("weather", "Weather for a city",
		func(ctx context.Context, in input) (string, error) {
			return in.City + ":" + in.Units, nil
		})
	if err != nil {
		t.Fatalf("NewTypedTool: %v", err)
	}

	schema := weather.InputSchema()
	if schema.Type != "object" {
		t.Errorf("Expected object schema, got %q", schema.Type)
	}
	if _, ok := schema.Properties["city"]; !ok {
		t.Error("Expected city property")
	}

	registry := NewRegistry()
	if err := registry.Register(weather); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result := NewExecutor(registry).Execute(context.Background(), call("1", "weather", `{"city":"Oslo","units":"C"}`))
	if result.Output != "Oslo:C" {
		t.Errorf("Unexpected output %q (err %v)", result.Output, result.Err)
	}
}

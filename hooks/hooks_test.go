package hooks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/tool"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if err := r.TriggerBeforeReasoning(context.Background(), &model.Request{}); err != nil {
		t.Errorf("empty registry returned error: %v", err)
	}
}

func TestOnBeforeReasoning(t *testing.T) {
	r := NewRegistry()
	var captured *model.Request

	r.OnBeforeReasoning(func(ctx context.Context, req *model.Request) error {
		captured = req
		return nil
	})

	req := &model.Request{System: "be brief"}
	if err := r.TriggerBeforeReasoning(context.Background(), req); err != nil {
		t.Errorf("TriggerBeforeReasoning returned error: %v", err)
	}
	if captured != req {
		t.Error("request was not passed to hook")
	}
}

func TestOnAfterReasoning(t *testing.T) {
	r := NewRegistry()
	called := false

	r.OnAfterReasoning(func(ctx context.Context, resp *model.Response) error {
		called = true
		return nil
	})

	if err := r.TriggerAfterReasoning(context.Background(), &model.Response{}); err != nil {
		t.Errorf("TriggerAfterReasoning returned error: %v", err)
	}
	if !called {
		t.Error("hook was not called")
	}
}

func TestOnToolCall(t *testing.T) {
	r := NewRegistry()
	var capturedName, capturedOutput string

	r.OnToolCall(func(ctx context.Context, result *tool.Result) error {
		capturedName = result.ToolName
		capturedOutput = result.Output
		return nil
	})

	err := r.TriggerToolCall(context.Background(), &tool.Result{ToolName: "test_tool", Output: "test output"})
	if err != nil {
		t.Errorf("TriggerToolCall returned error: %v", err)
	}
	if capturedName != "test_tool" {
		t.Errorf("expected name 'test_tool', got '%s'", capturedName)
	}
	if capturedOutput != "test output" {
		t.Errorf("expected output 'test output', got '%s'", capturedOutput)
	}
}

func TestOnCompression(t *testing.T) {
	r := NewRegistry()
	var tokens int
	var captured *compression.Result
	var capturedErr error

	r.OnBeforeCompression(func(ctx context.Context, n int) error {
		tokens = n
		return nil
	})
	r.OnAfterCompression(func(ctx context.Context, result *compression.Result, err error) error {
		captured = result
		capturedErr = err
		return nil
	})

	result := &compression.Result{Compressed: true, TokensBefore: 1000, TokensAfter: 400}
	if err := r.TriggerBeforeCompression(context.Background(), 1000); err != nil {
		t.Errorf("TriggerBeforeCompression returned error: %v", err)
	}
	if err := r.TriggerAfterCompression(context.Background(), result, nil); err != nil {
		t.Errorf("TriggerAfterCompression returned error: %v", err)
	}
	if tokens != 1000 {
		t.Errorf("expected 1000 tokens, got %d", tokens)
	}
	if captured != result || capturedErr != nil {
		t.Error("result was not passed to hook")
	}

	failure := errors.New("model down")
	if err := r.TriggerAfterCompression(context.Background(), nil, failure); err != nil {
		t.Errorf("TriggerAfterCompression returned error: %v", err)
	}
	if captured != nil || !errors.Is(capturedErr, failure) {
		t.Error("failure was not passed to hook")
	}
}

func TestHookError(t *testing.T) {
	r := NewRegistry()
	expectedErr := errors.New("hook error")

	r.OnBeforeReasoning(func(ctx context.Context, req *model.Request) error {
		return expectedErr
	})

	err := r.TriggerBeforeReasoning(context.Background(), nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestHooksRunInOrderAndStopOnError(t *testing.T) {
	r := NewRegistry()
	var called []int
	expectedErr := errors.New("stop here")

	for i := 1; i <= 3; i++ {
		r.OnBeforeReasoning(func(ctx context.Context, req *model.Request) error {
			called = append(called, i)
			if i == 2 {
				return expectedErr
			}
			return nil
		})
	}

	err := r.TriggerBeforeReasoning(context.Background(), nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if len(called) != 2 || called[0] != 1 || called[1] != 2 {
		t.Errorf("expected hooks 1 and 2 to run, got %v", called)
	}
}

func TestConcurrentRegistrationAndTrigger(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var calls int

	wg.Add(200)
	for i := 0; i < 100; i++ {
		go func() {
			defer wg.Done()
			r.OnToolCall(func(ctx context.Context, result *tool.Result) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			r.TriggerToolCall(context.Background(), &tool.Result{})
		}()
	}
	wg.Wait()

	calls = 0
	if err := r.TriggerToolCall(context.Background(), &tool.Result{}); err != nil {
		t.Fatalf("TriggerToolCall returned error: %v", err)
	}
	if calls != 100 {
		t.Errorf("expected 100 calls, got %d", calls)
	}
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewZerolog(zerolog.New(&buf))

	r := NewRegistry()
	NewLoggingHooks(logger).Attach(r)

	ctx := context.Background()
	r.TriggerToolCall(ctx, &tool.Result{ToolName: "search", CallID: "c1", Output: strings.Repeat("x", 150), Duration: time.Millisecond})
	r.TriggerToolCall(ctx, &tool.Result{ToolName: "search", CallID: "c2", Err: errors.New("boom")})
	r.TriggerAfterCompression(ctx, &compression.Result{Compressed: true, IDs: []string{"a", "b"}, TokensBefore: 100, TokensAfter: 25}, nil)

	out := buf.String()
	for _, want := range []string{
		`"message":"tool succeeded"`,
		strings.Repeat("x", previewLen) + `..."`,
		`"message":"tool failed"`,
		`"error":"boom"`,
		`"message":"memory compressed"`,
		`"reduction_pct":75`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestMetricsHooks(t *testing.T) {
	metrics := map[string]float64{}
	r := NewRegistry()
	NewMetricsHooks(func(name string, value float64, tags map[string]string) {
		metrics[name] += value
	}).Attach(r)

	ctx := context.Background()
	r.TriggerAfterReasoning(ctx, &model.Response{Usage: model.Usage{InputTokens: 10, OutputTokens: 5}})
	r.TriggerToolCall(ctx, &tool.Result{ToolName: "search"})
	r.TriggerToolCall(ctx, &tool.Result{ToolName: "search", Err: errors.New("boom")})
	r.TriggerAfterCompression(ctx, &compression.Result{Compressed: true, IDs: []string{"a"}, TokensBefore: 200, TokensAfter: 50}, nil)
	r.TriggerAfterCompression(ctx, nil, errors.New("failed"))

	want := map[string]float64{
		"agent.tokens.input":              10,
		"agent.tokens.output":             5,
		"agent.tool.success":              1,
		"agent.tool.error":                1,
		"agent.compression.messages":      1,
		"agent.compression.reduction_pct": 75,
		"agent.compression.error":         1,
		"agent.compression.tokens_before": 200,
	}
	for name, value := range want {
		if metrics[name] != value {
			t.Errorf("%s = %v, want %v", name, metrics[name], value)
		}
	}
}

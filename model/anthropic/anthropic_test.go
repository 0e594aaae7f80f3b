package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

func newTestModel(t *testing.T, reply string, captured *map[string]any) *Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	return New(Config{APIKey: "test", Model: "claude-test"},
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func TestGenerate_Text(t *testing.T) {
	reply := `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
		"content": [{"type": "text", "text": "hello there"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 3}
	}`
	var sent map[string]any
	m := newTestModel(t, reply, &sent)

	resp, err := m.Generate(context.Background(), &model.Request{
		System:   "sys",
		Messages: []*types.Msg{types.NewUserMsg("user", "hi")},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "hello there" {
		t.Errorf("Content = %+v", resp.Content)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 3 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if sent["model"] != "claude-test" {
		t.Errorf("sent model = %v", sent["model"])
	}
	if _, ok := sent["tool_choice"]; ok {
		t.Errorf("unstructured request should not force a tool")
	}
}

func TestGenerate_Structured(t *testing.T) {
	reply := `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-test",
		"content": [{"type": "tool_use", "id": "tu_1", "name": "generate_structured_output", "input": {"answer": "42"}}],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 5, "output_tokens": 5}
	}`
	var sent map[string]any
	m := newTestModel(t, reply, &sent)

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"answer": {Type: "string"}},
		Required:   []string{"answer"},
	}
	resp, err := m.Generate(context.Background(), &model.Request{
		Messages:   []*types.Msg{types.NewUserMsg("user", "what is it?")},
		Structured: schema,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var out struct {
		Answer string `json:"answer"`
	}
	if err := model.DecodeStructured(resp, &out); err != nil {
		t.Fatalf("DecodeStructured() error = %v", err)
	}
	if out.Answer != "42" {
		t.Errorf("Answer = %q", out.Answer)
	}
	if len(resp.Content) != 0 {
		t.Errorf("structured tool call leaked into content: %+v", resp.Content)
	}

	choice, _ := sent["tool_choice"].(map[string]any)
	if choice["type"] != "tool" || choice["name"] != StructuredOutputTool {
		t.Errorf("tool_choice = %v", sent["tool_choice"])
	}
}

func TestGenerate_StructuredMissing(t *testing.T) {
	reply := `{
		"id": "msg_3", "type": "message", "role": "assistant", "model": "claude-test",
		"content": [{"type": "text", "text": "I refuse"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`
	m := newTestModel(t, reply, nil)

	_, err := m.Generate(context.Background(), &model.Request{
		Messages:   []*types.Msg{types.NewUserMsg("user", "x")},
		Structured: &jsonschema.Schema{Type: "object"},
	})
	if err != model.ErrNoStructuredOutput {
		t.Fatalf("Generate() error = %v, want ErrNoStructuredOutput", err)
	}
}

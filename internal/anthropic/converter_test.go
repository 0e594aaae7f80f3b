package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

func TestConvertMessages(t *testing.T) {
	summary := types.NewSystemMsg("system", "summary so far")
	call := types.NewAssistantMsg("assistant",
		types.NewThinkingBlock("hmm"),
		types.NewToolUseBlock("t1", "search", json.RawMessage(`{"q":"x"}`)),
	)
	result := types.NewMsg("system", types.RoleSystem, types.Blocks(
		types.NewToolResultBlock("t1", "search", types.Text("found")),
	))
	hint := types.NewSystemMsg("system", "hurry up")

	system, params := ConvertMessages("be helpful", []*types.Msg{summary, call, result, hint})

	if len(system) != 1 || system[0].Text != "be helpful\n\nsummary so far" {
		t.Fatalf("system = %+v", system)
	}

	// The first kept message is the assistant's, so a user turn is prepended.
	// The tool result and the later system hint merge into one user turn.
	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	if len(params) != len(wantRoles) {
		t.Fatalf("got %d params, want %d", len(params), len(wantRoles))
	}
	for i, role := range wantRoles {
		if params[i].Role != role {
			t.Errorf("params[%d].Role = %s, want %s", i, params[i].Role, role)
		}
	}

	if n := len(params[1].Content); n != 1 || params[1].Content[0].OfToolUse == nil {
		t.Errorf("assistant turn should hold only the tool_use block, got %d blocks", n)
	}
	last := params[2].Content
	if len(last) != 2 || last[0].OfToolResult == nil || last[1].OfText == nil {
		t.Errorf("unexpected final user turn: %+v", last)
	}
}

func TestConvertTools(t *testing.T) {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"city": {Type: "string", Description: "city name"},
		},
		Required: []string{"city"},
	}
	tools, err := ConvertTools([]model.ToolSpec{{Name: "weather", Description: "get weather", InputSchema: schema}})
	if err != nil {
		t.Fatalf("ConvertTools() error = %v", err)
	}
	if len(tools) != 1 || tools[0].OfTool == nil {
		t.Fatalf("tools = %+v", tools)
	}
	tool := tools[0].OfTool
	if tool.Name != "weather" {
		t.Errorf("Name = %s", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "city" {
		t.Errorf("Required = %v", tool.InputSchema.Required)
	}
	props, ok := tool.InputSchema.Properties.(map[string]any)
	if !ok || props["city"] == nil {
		t.Errorf("Properties = %#v", tool.InputSchema.Properties)
	}
}

func TestConvertResponse(t *testing.T) {
	content := []anthropic.ContentBlockUnion{
		{Type: "text", Text: "hi"},
		{Type: "tool_use", ID: "t1", Name: "f", Input: json.RawMessage(`{"a":1}`)},
	}
	blocks := ConvertResponse(content)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	if blocks[0].Type != types.BlockText || blocks[0].Text != "hi" {
		t.Errorf("blocks[0] = %+v", blocks[0])
	}
	if blocks[1].Type != types.BlockToolUse || blocks[1].ID != "t1" || string(blocks[1].Input) != `{"a":1}` {
		t.Errorf("blocks[1] = %+v", blocks[1])
	}
}

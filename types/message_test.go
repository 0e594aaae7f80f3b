package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDictRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *Msg
	}{
		{
			name: "string content",
			msg:  NewUserMsg("user", "hello"),
		},
		{
			name: "tool use and thinking",
			msg: NewAssistantMsg("assistant",
				NewThinkingBlock("consider the weather"),
				NewTextBlock("checking"),
				NewToolUseBlock("call_1", "get_weather", json.RawMessage(`{"city":"Paris"}`)),
			),
		},
		{
			name: "tool result with nested blocks",
			msg: NewMsg("system", RoleSystem, Blocks(
				NewToolResultBlock("call_1", "get_weather", Blocks(NewTextBlock("sunny"))),
			)),
		},
		{
			name: "media",
			msg: NewMsg("user", RoleUser, Blocks(
				NewMediaBlock(BlockImage, Source{Type: SourceURL, URL: "https://example.com/a.png"}),
				NewMediaBlock(BlockAudio, Source{Type: SourceBase64, MediaType: "audio/wav", Data: "AAAA"}),
			)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.Metadata = map[string]any{"k": "v"}
			tt.msg.InvocationID = "inv-1"

			dict, err := tt.msg.ToDict()
			if err != nil {
				t.Fatalf("ToDict() error = %v", err)
			}
			got, err := FromDict(dict)
			if err != nil {
				t.Fatalf("FromDict() error = %v", err)
			}

			if got.ID != tt.msg.ID || got.Timestamp != tt.msg.Timestamp {
				t.Errorf("identity changed: got (%s, %s), want (%s, %s)",
					got.ID, got.Timestamp, tt.msg.ID, tt.msg.Timestamp)
			}
			want, _ := json.Marshal(tt.msg)
			have, _ := json.Marshal(got)
			if string(want) != string(have) {
				t.Errorf("round trip mismatch:\n got %s\nwant %s", have, want)
			}
		})
	}
}

func TestFromDictRejectsUnknownBlock(t *testing.T) {
	dict := map[string]any{
		"id":        "x",
		"name":      "user",
		"role":      "user",
		"timestamp": "2024-01-01 00:00:00.000",
		"content":   []any{map[string]any{"type": "hologram"}},
	}
	_, err := FromDict(dict)
	if !errors.Is(err, ErrUnsupportedContent) {
		t.Fatalf("FromDict() error = %v, want ErrUnsupportedContent", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Msg
		wantErr error
	}{
		{"valid", NewUserMsg("u", "hi"), nil},
		{"bad role", NewMsg("u", Role("tool"), Text("hi")), ErrInvalidRole},
		{"tool use without id", NewAssistantMsg("a", Block{Type: BlockToolUse, Name: "f"}), ErrUnsupportedContent},
		{"image without source", NewMsg("u", RoleUser, Blocks(Block{Type: BlockImage})), ErrUnsupportedContent},
		{"unknown block", NewMsg("u", RoleUser, Blocks(Block{Type: "file"})), ErrUnsupportedContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewAssistantMsg("a",
		NewTextBlock("x"),
		NewToolUseBlock("id1", "f", json.RawMessage(`{"a":1}`)),
	)
	c := orig.Clone()
	c.Content.Blocks()[0].Text = "changed"
	c.Content.Blocks()[1].Input[2] = 'b'

	if orig.Content.Blocks()[0].Text != "x" {
		t.Errorf("clone shares text block with original")
	}
	if string(orig.Content.Blocks()[1].Input) != `{"a":1}` {
		t.Errorf("clone shares tool input with original: %s", orig.Content.Blocks()[1].Input)
	}
}

func TestContentHelpers(t *testing.T) {
	m := NewAssistantMsg("a",
		NewTextBlock("one"),
		NewToolUseBlock("id1", "f", nil),
		NewTextBlock("two"),
	)
	if got := m.GetTextContent(); got != "one\ntwo" {
		t.Errorf("GetTextContent() = %q", got)
	}
	if got := len(m.GetContentBlocks(BlockToolUse)); got != 1 {
		t.Errorf("GetContentBlocks(tool_use) len = %d, want 1", got)
	}
	if !m.HasContentBlocks(BlockToolUse) || m.HasContentBlocks(BlockToolResult) {
		t.Errorf("HasContentBlocks mismatch")
	}
	if ids := m.ToolUseIDs(); len(ids) != 1 || ids[0] != "id1" {
		t.Errorf("ToolUseIDs() = %v", ids)
	}

	plain := NewUserMsg("u", "hi")
	if blocks := plain.GetContentBlocks(); len(blocks) != 1 || blocks[0].Type != BlockText {
		t.Errorf("string content should read as one text block, got %v", blocks)
	}
}

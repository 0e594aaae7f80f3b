package compression

import (
	"slices"
	"strings"
	"testing"

	"github.com/youssefsiam38/agentscope/types"
)

func textMsg(id string, role types.Role) *types.Msg {
	m := types.NewMsg("user", role, types.Text("message "+id))
	m.ID = id
	return m
}

func toolUseMsg(id, callID string) *types.Msg {
	m := types.NewAssistantMsg("assistant",
		types.NewTextBlock("calling a tool"),
		types.NewToolUseBlock(callID, "search", []byte(`{"q":"go"}`)))
	m.ID = id
	return m
}

func toolResultMsg(id, callID string) *types.Msg {
	m := types.NewMsg("system", types.RoleSystem,
		types.Blocks(types.NewToolResultBlock(callID, "search", types.Text("found"))))
	m.ID = id
	return m
}

func ids(msgs []*types.Msg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestSelectRange(t *testing.T) {
	tests := []struct {
		name         string
		msgs         []*types.Msg
		keepRecent   int
		wantCompress []string
		wantKept     []string
	}{
		{
			name:         "plain messages",
			msgs:         []*types.Msg{textMsg("0", types.RoleUser), textMsg("1", types.RoleAssistant), textMsg("2", types.RoleUser)},
			keepRecent:   1,
			wantCompress: []string{"0", "1"},
			wantKept:     []string{"2"},
		},
		{
			name:         "keep zero compresses all",
			msgs:         []*types.Msg{textMsg("0", types.RoleUser), textMsg("1", types.RoleAssistant)},
			keepRecent:   0,
			wantCompress: []string{"0", "1"},
			wantKept:     []string{},
		},
		{
			name:       "keep covers everything",
			msgs:       []*types.Msg{textMsg("0", types.RoleUser), textMsg("1", types.RoleAssistant)},
			keepRecent: 2,
			wantKept:   []string{"0", "1"},
		},
		{
			name:       "keep exceeds length",
			msgs:       []*types.Msg{textMsg("0", types.RoleUser)},
			keepRecent: 5,
			wantKept:   []string{"0"},
		},
		{
			name: "tool pair pulls boundary back",
			msgs: []*types.Msg{
				textMsg("0", types.RoleUser), textMsg("1", types.RoleAssistant), textMsg("2", types.RoleUser),
				toolUseMsg("3", "id1"), toolResultMsg("4", "id1"),
			},
			keepRecent:   1,
			wantCompress: []string{"0", "1", "2"},
			wantKept:     []string{"3", "4"},
		},
		{
			name: "pair fully inside range",
			msgs: []*types.Msg{
				toolUseMsg("0", "id1"), toolResultMsg("1", "id1"), textMsg("2", types.RoleUser),
			},
			keepRecent:   1,
			wantCompress: []string{"0", "1"},
			wantKept:     []string{"2"},
		},
		{
			name: "chained pairs",
			msgs: []*types.Msg{
				textMsg("0", types.RoleUser),
				toolUseMsg("1", "a"), toolResultMsg("2", "a"),
				toolUseMsg("3", "b"), toolResultMsg("4", "b"),
			},
			keepRecent:   1,
			wantCompress: []string{"0", "1", "2"},
			wantKept:     []string{"3", "4"},
		},
		{
			name: "pair at start leaves nothing",
			msgs: []*types.Msg{
				toolUseMsg("0", "id1"), toolResultMsg("1", "id1"),
			},
			keepRecent: 1,
			wantKept:   []string{"0", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toCompress, kept := SelectRange(tt.msgs, tt.keepRecent)
			if tt.wantCompress == nil {
				if toCompress != nil {
					t.Errorf("toCompress = %v, want nil", ids(toCompress))
				}
			} else if got := ids(toCompress); !slices.Equal(got, tt.wantCompress) {
				t.Errorf("toCompress = %v, want %v", got, tt.wantCompress)
			}
			if got := ids(kept); !slices.Equal(got, tt.wantKept) {
				t.Errorf("kept = %v, want %v", got, tt.wantKept)
			}
		})
	}
}

func TestSelectRangeNeverSplitsPairs(t *testing.T) {
	msgs := []*types.Msg{
		textMsg("0", types.RoleUser),
		toolUseMsg("1", "a"), toolResultMsg("2", "a"),
		textMsg("3", types.RoleAssistant),
		toolUseMsg("4", "b"), toolResultMsg("5", "b"),
		textMsg("6", types.RoleAssistant),
	}
	for keep := 0; keep <= len(msgs); keep++ {
		toCompress, kept := SelectRange(msgs, keep)
		if len(kept) != len(msgs)-len(toCompress) {
			t.Fatalf("keep=%d: kept %d + compressed %d != %d", keep, len(kept), len(toCompress), len(msgs))
		}
		if len(kept) < keep {
			t.Errorf("keep=%d: only %d kept", keep, len(kept))
		}

		inRange := make(map[string]bool)
		for _, m := range toCompress {
			for _, id := range m.ToolUseIDs() {
				inRange[id] = true
			}
		}
		for _, m := range kept {
			for _, id := range m.ToolResultIDs() {
				if inRange[id] {
					t.Errorf("keep=%d split pair %s", keep, id)
				}
			}
		}
	}
}

func TestPrepareForSummary(t *testing.T) {
	dangling := toolUseMsg("0", "lost")
	msgs := []*types.Msg{dangling, toolUseMsg("1", "ok"), toolResultMsg("2", "ok")}

	out := prepareForSummary(msgs)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}

	if got := out[0].ToolUseIDs(); len(got) != 0 {
		t.Errorf("dangling call kept tool use ids %v", got)
	}
	if !strings.Contains(out[0].GetTextContent(), "[tool call search(") {
		t.Errorf("dangling call text = %q", out[0].GetTextContent())
	}
	if got := out[1].ToolUseIDs(); !slices.Equal(got, []string{"ok"}) {
		t.Errorf("paired call ids = %v, want [ok]", got)
	}
	if got := out[2].ToolResultIDs(); !slices.Equal(got, []string{"ok"}) {
		t.Errorf("paired result ids = %v, want [ok]", got)
	}

	// The stored message is untouched.
	if got := dangling.ToolUseIDs(); !slices.Equal(got, []string{"lost"}) {
		t.Errorf("original ids = %v, want [lost]", got)
	}
}

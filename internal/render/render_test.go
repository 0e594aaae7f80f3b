package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/agentscope/types"
)

func TestMarkdownSanitizes(t *testing.T) {
	html, err := Markdown("**bold** <script>alert(1)</script> [link](javascript:alert(1))")
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
}

func TestWriteTranscript(t *testing.T) {
	user := types.NewUserMsg("alice", "What is `2+2`?")
	call := types.NewAssistantMsg("Friday",
		types.NewThinkingBlock("use the calculator"),
		types.NewToolUseBlock("c1", "calc", []byte(`{"expr":"2+2"}`)))
	result := types.NewMsg("system", types.RoleSystem,
		types.Blocks(types.NewToolResultBlock("c1", "calc", types.Text("4"))))
	answer := types.NewAssistantMsg("Friday", types.NewTextBlock("It is **4**."))

	var buf bytes.Buffer
	err := Write(&buf, Transcript{
		Title:   "Math <session>",
		Summary: "Earlier the user asked about *addition*.",
		Msgs:    []*types.Msg{user, call, result, answer},
		Marks:   map[string][]string{user.ID: {"important"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Math &lt;session&gt;")
	assert.Contains(t, out, "<em>addition</em>")
	assert.Contains(t, out, "<code>2+2</code>")
	assert.Contains(t, out, "[important]")
	assert.Contains(t, out, "call calc")
	assert.Contains(t, out, "result calc")
	assert.Contains(t, out, "<strong>4</strong>")
	assert.Contains(t, out, `class="thinking"`)
	assert.Equal(t, 4, strings.Count(out, `<article class="msg`))
}

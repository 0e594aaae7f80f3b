package compression

import (
	"fmt"

	"github.com/youssefsiam38/agentscope/types"
)

// SelectRange splits uncompressed messages into the range to summarize and
// the kept tail. The last keepRecent messages are kept, and the boundary
// moves earlier while a kept message holds a tool_result whose tool_use
// would be summarized. When nothing is left to summarize toCompress is nil.
func SelectRange(msgs []*types.Msg, keepRecent int) (toCompress, kept []*types.Msg) {
	keepRecent = max(keepRecent, 0)
	if keepRecent >= len(msgs) {
		return nil, msgs
	}

	useAt := make(map[string]int)
	for i, msg := range msgs {
		for _, id := range msg.ToolUseIDs() {
			if _, ok := useAt[id]; !ok {
				useAt[id] = i
			}
		}
	}

	split := len(msgs) - keepRecent
	for changed := true; changed && split > 0; {
		changed = false
		for _, msg := range msgs[split:] {
			for _, id := range msg.ToolResultIDs() {
				if i, ok := useAt[id]; ok && i < split {
					split = i
					changed = true
				}
			}
		}
	}

	if split == 0 {
		return nil, msgs
	}
	return msgs[:split], msgs[split:]
}

// prepareForSummary clones msgs and rewrites tool blocks whose partner is
// not in msgs as text, so the summarization request carries no dangling
// tool calls.
func prepareForSummary(msgs []*types.Msg) []*types.Msg {
	uses := make(map[string]bool)
	results := make(map[string]bool)
	for _, msg := range msgs {
		for _, id := range msg.ToolUseIDs() {
			uses[id] = true
		}
		for _, id := range msg.ToolResultIDs() {
			results[id] = true
		}
	}

	out := make([]*types.Msg, 0, len(msgs))
	for _, msg := range msgs {
		clone := msg.Clone()
		if clone.Content.IsBlocks() {
			blocks := clone.Content.Blocks()
			for i, b := range blocks {
				switch {
				case b.Type == types.BlockToolUse && !results[b.ID]:
					blocks[i] = types.NewTextBlock(fmt.Sprintf("[tool call %s(%s)]", b.Name, string(b.Input)))
				case b.Type == types.BlockToolResult && !uses[b.ID]:
					var output string
					if b.Output != nil {
						output = b.Output.JoinedText()
					}
					blocks[i] = types.NewTextBlock(fmt.Sprintf("[tool result %s: %s]", b.Name, output))
				}
			}
			clone.Content = types.Blocks(blocks...)
		}
		out = append(out, clone)
	}
	return out
}

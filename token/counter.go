// Package token estimates the size of message lists for compression
// thresholds.
//
// Counts are heuristics. What every Counter guarantees is monotonicity:
// adding messages or content never lowers the count.
package token

import (
	"context"
	"strings"

	"github.com/youssefsiam38/agentscope/types"
)

const (
	// DefaultMessageOverhead is added per message for role and framing
	DefaultMessageOverhead = 4

	// DefaultBlockOverhead is added per non-text block (tool calls, tool
	// results, media)
	DefaultBlockOverhead = 10
)

// Counter counts tokens in a message list. Implementations have no side
// effects.
type Counter interface {
	Count(ctx context.Context, msgs []*types.Msg) (int, error)
}

// CounterFunc adapts a function to Counter
type CounterFunc func(ctx context.Context, msgs []*types.Msg) (int, error)

func (f CounterFunc) Count(ctx context.Context, msgs []*types.Msg) (int, error) {
	return f(ctx, msgs)
}

// Flatten concatenates every text field of msgs (text, thinking, tool names,
// tool input JSON, tool output) separated by newlines, and counts the
// non-text blocks.
func Flatten(msgs []*types.Msg) (text string, nonText int) {
	var b strings.Builder
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		nonText += flattenContent(&b, msg.Content)
	}
	return b.String(), nonText
}

func flattenContent(b *strings.Builder, c types.Content) int {
	if !c.IsBlocks() {
		write(b, c.String())
		return 0
	}
	nonText := 0
	for _, block := range c.Blocks() {
		switch block.Type {
		case types.BlockText:
			write(b, block.Text)
		case types.BlockThinking:
			write(b, block.Thinking)
		case types.BlockToolUse:
			write(b, block.Name)
			write(b, string(block.Input))
			nonText++
		case types.BlockToolResult:
			write(b, block.Name)
			if block.Output != nil {
				nonText += flattenContent(b, *block.Output)
			}
			nonText++
		case types.BlockImage, types.BlockAudio, types.BlockVideo:
			nonText++
		}
	}
	return nonText
}

func write(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(s)
}

package token

import (
	"context"
	"unicode/utf8"

	"github.com/youssefsiam38/agentscope/types"
)

// CharCounter approximates tokens from character counts
type CharCounter struct {
	// CharsPerToken defaults to 4
	CharsPerToken   int
	BlockOverhead   int
	MessageOverhead int
}

// NewCharCounter returns a CharCounter with default overheads
func NewCharCounter() *CharCounter {
	return &CharCounter{
		CharsPerToken:   4,
		BlockOverhead:   DefaultBlockOverhead,
		MessageOverhead: DefaultMessageOverhead,
	}
}

func (c *CharCounter) Count(_ context.Context, msgs []*types.Msg) (int, error) {
	text, nonText := Flatten(msgs)
	return ApproximateTokens(text, c.CharsPerToken) + nonText*c.BlockOverhead + len(msgs)*c.MessageOverhead, nil
}

// ApproximateTokens estimates tokens as characters divided by charsPerToken,
// rounding up. Non-empty text is at least one token.
func ApproximateTokens(text string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

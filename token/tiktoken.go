package token

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/youssefsiam38/agentscope/types"
)

// DefaultEncoding is used for models without a known encoding
const DefaultEncoding = "cl100k_base"

var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4.1":       "o200k_base",
	"o1":            "o200k_base",
	"o3":            "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// EncodingForModel returns the encoding of model, matching by prefix and
// falling back to DefaultEncoding
func EncodingForModel(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return modelEncodings[best]
	}
	return DefaultEncoding
}

// TiktokenCounter counts tokens with a BPE encoding. The encoding is loaded
// on first use, which may download its ranks.
type TiktokenCounter struct {
	encoding        string
	BlockOverhead   int
	MessageOverhead int

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenCounter creates a counter for the encoding of model
func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{
		encoding:        EncodingForModel(model),
		BlockOverhead:   DefaultBlockOverhead,
		MessageOverhead: DefaultMessageOverhead,
	}
}

// Encoding returns the encoding name
func (c *TiktokenCounter) Encoding() string {
	return c.encoding
}

func (c *TiktokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = fmt.Errorf("init tiktoken encoding %s: %w", c.encoding, err)
			return
		}
		c.enc = enc
	})
	return c.initErr
}

func (c *TiktokenCounter) Count(_ context.Context, msgs []*types.Msg) (int, error) {
	if err := c.init(); err != nil {
		return 0, err
	}
	text, nonText := Flatten(msgs)
	n := 0
	if text != "" {
		n = len(c.enc.Encode(text, nil, nil))
	}
	return n + nonText*c.BlockOverhead + len(msgs)*c.MessageOverhead, nil
}

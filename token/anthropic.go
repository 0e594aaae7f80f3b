package token

import (
	"context"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	conv "github.com/youssefsiam38/agentscope/internal/anthropic"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/types"
)

// AnthropicCounter counts tokens with the Messages count_tokens endpoint and
// falls back to another counter when the call fails. The first fallback is
// logged as a warning.
type AnthropicCounter struct {
	client   *anthropic.Client
	model    string
	fallback Counter
	logger   logging.Logger
	warned   sync.Once
}

// AnthropicOption configures an AnthropicCounter
type AnthropicOption func(*AnthropicCounter)

// WithLogger sets the logger used to report falling back
func WithLogger(l logging.Logger) AnthropicOption {
	return func(c *AnthropicCounter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewAnthropicCounter creates a counter for model. A nil fallback uses a
// CharCounter.
func NewAnthropicCounter(client *anthropic.Client, model string, fallback Counter, opts ...AnthropicOption) *AnthropicCounter {
	if fallback == nil {
		fallback = NewCharCounter()
	}
	c := &AnthropicCounter{client: client, model: model, fallback: fallback, logger: logging.Noop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AnthropicCounter) Count(ctx context.Context, msgs []*types.Msg) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	system, params := conv.ConvertMessages("", msgs)
	if len(params) == 0 {
		return c.fallback.Count(ctx, msgs)
	}

	req := anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(c.model),
		Messages: params,
	}
	if len(system) > 0 {
		req.System = anthropic.MessageCountTokensParamsSystemUnion{OfTextBlockArray: system}
	}

	resp, err := c.client.Messages.CountTokens(ctx, req)
	if err != nil {
		c.warned.Do(func() {
			c.logger.Warn("token counting failed; using fallback counter", "model", c.model, "error", err)
		})
		return c.fallback.Count(ctx, msgs)
	}
	return int(resp.InputTokens), nil
}

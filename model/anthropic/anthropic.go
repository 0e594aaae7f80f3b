// Package anthropic implements model.ChatModel on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	conv "github.com/youssefsiam38/agentscope/internal/anthropic"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

const (
	// DefaultModel is used when Config.Model is empty
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxTokens is used when neither the request nor the config set a limit
	DefaultMaxTokens = 4096

	// StructuredOutputTool is the forced tool that carries structured output
	StructuredOutputTool = "generate_structured_output"
)

// Config configures a Model
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int

	// MaxRetries bounds retries of rate-limited and server errors
	MaxRetries int

	// RetryBackoff is the delay before the first retry, doubled on each one
	RetryBackoff time.Duration
}

// Model calls the Anthropic Messages API
type Model struct {
	client *anthropic.Client
	cfg    Config
}

// New creates a model. An empty APIKey falls back to ANTHROPIC_API_KEY.
func New(cfg Config, opts ...option.RequestOption) *Model {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.APIKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	}
	client := anthropic.NewClient(opts...)
	return &Model{client: &client, cfg: cfg}
}

// Client returns the underlying SDK client
func (m *Model) Client() *anthropic.Client {
	return m.client
}

func (m *Model) Name() string {
	return m.cfg.Model
}

var (
	_ model.ChatModel      = (*Model)(nil)
	_ model.StreamingModel = (*Model)(nil)
)

// Generate performs one non-streaming call
func (m *Model) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := m.buildParams(req)
	if err != nil {
		return nil, err
	}

	var msg *anthropic.Message
	backoff := m.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		msg, err = m.client.Messages.New(ctx, params)
		if err == nil {
			break
		}
		if attempt >= m.cfg.MaxRetries || !conv.IsRetryableError(err) {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return toResponse(msg, req.Structured != nil)
}

// Stream performs a streaming call, yielding the accumulated content after
// each event
func (m *Model) Stream(ctx context.Context, req *model.Request) iter.Seq2[*model.Chunk, error] {
	return func(yield func(*model.Chunk, error) bool) {
		params, err := m.buildParams(req)
		if err != nil {
			yield(nil, err)
			return
		}

		stream := m.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		message := anthropic.Message{}
		for stream.Next() {
			if err := message.Accumulate(stream.Current()); err != nil {
				yield(nil, fmt.Errorf("anthropic: accumulate stream: %w", err))
				return
			}
			chunk := &model.Chunk{
				Content: conv.ConvertResponse(message.Content),
				Usage:   usage(message.Usage),
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(nil, fmt.Errorf("anthropic: %w", err))
			return
		}
		yield(&model.Chunk{
			Content: conv.ConvertResponse(message.Content),
			Usage:   usage(message.Usage),
			Done:    true,
		}, nil)
	}
}

func (m *Model) buildParams(req *model.Request) (anthropic.MessageNewParams, error) {
	system, messages := conv.ConvertMessages(req.System, req.Messages)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = m.cfg.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
		System:    system,
	}

	specs := req.Tools
	if req.Structured != nil {
		specs = append(specs[:len(specs):len(specs)], model.ToolSpec{
			Name:        StructuredOutputTool,
			Description: "Respond with a JSON object matching the input schema.",
			InputSchema: req.Structured,
		})
	}
	if len(specs) > 0 {
		tools, err := conv.ConvertTools(specs)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}
	if req.Structured != nil {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: StructuredOutputTool},
		}
	}
	return params, nil
}

func toResponse(msg *anthropic.Message, structured bool) (*model.Response, error) {
	resp := &model.Response{
		Usage:      usage(msg.Usage),
		StopReason: string(msg.StopReason),
	}
	for _, block := range conv.ConvertResponse(msg.Content) {
		if structured && block.Type == types.BlockToolUse && block.Name == StructuredOutputTool {
			resp.Structured = json.RawMessage(block.Input)
			continue
		}
		resp.Content = append(resp.Content, block)
	}
	if structured && len(resp.Structured) == 0 {
		return nil, model.ErrNoStructuredOutput
	}
	return resp, nil
}

func usage(u anthropic.Usage) model.Usage {
	return model.Usage{
		InputTokens:  int(u.InputTokens),
		OutputTokens: int(u.OutputTokens),
	}
}

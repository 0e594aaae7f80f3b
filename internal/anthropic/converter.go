// Package anthropic converts between agentscope messages and the Anthropic
// Messages API.
package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

// continuePrompt opens a conversation whose first kept message is from the
// assistant, since the API requires the first message to be from the user.
const continuePrompt = "<system-info>Continue the conversation.</system-info>"

// ConvertMessages converts messages into the system prompt and message
// parameters. Leading system messages join the system prompt; later system
// messages are sent as user turns. Messages carrying tool results are always
// user turns. Consecutive turns of the same role are merged.
func ConvertMessages(system string, msgs []*types.Msg) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var systemParts []string
	if system != "" {
		systemParts = append(systemParts, system)
	}

	params := make([]anthropic.MessageParam, 0, len(msgs))
	leading := true
	for _, msg := range msgs {
		if leading && msg.Role == types.RoleSystem && !msg.HasContentBlocks(types.BlockToolResult) {
			if text := msg.GetTextContent(); text != "" {
				systemParts = append(systemParts, text)
			}
			continue
		}
		leading = false

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content.Blocks()))
		for _, block := range msg.Content.Blocks() {
			if b, ok := convertContentBlock(block); ok {
				blocks = append(blocks, b)
			}
		}
		if len(blocks) == 0 {
			continue
		}

		role := anthropic.MessageParamRoleUser
		if msg.Role == types.RoleAssistant && !msg.HasContentBlocks(types.BlockToolResult) {
			role = anthropic.MessageParamRoleAssistant
		}

		if n := len(params); n > 0 && params[n-1].Role == role {
			params[n-1].Content = append(params[n-1].Content, blocks...)
			continue
		}
		params = append(params, anthropic.MessageParam{Role: role, Content: blocks})
	}

	if len(params) > 0 && params[0].Role == anthropic.MessageParamRoleAssistant {
		params = append([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(continuePrompt)),
		}, params...)
	}

	var systemBlocks []anthropic.TextBlockParam
	if len(systemParts) > 0 {
		systemBlocks = []anthropic.TextBlockParam{{Text: strings.Join(systemParts, "\n\n")}}
	}
	return systemBlocks, params
}

// convertContentBlock converts a single content block. Thinking blocks are
// dropped because the API only accepts them back with their signature.
func convertContentBlock(block types.Block) (anthropic.ContentBlockParamUnion, bool) {
	switch block.Type {
	case types.BlockText:
		if block.Text == "" {
			return anthropic.ContentBlockParamUnion{}, false
		}
		return anthropic.NewTextBlock(block.Text), true

	case types.BlockThinking:
		return anthropic.ContentBlockParamUnion{}, false

	case types.BlockToolUse:
		var input any
		if len(block.Input) > 0 {
			_ = json.Unmarshal(block.Input, &input)
		}
		// The API requires an object, not null
		if input == nil {
			input = map[string]any{}
		}
		return anthropic.NewToolUseBlock(block.ID, input, block.Name), true

	case types.BlockToolResult:
		output := ""
		if block.Output != nil {
			output = block.Output.JoinedText()
		}
		return anthropic.NewToolResultBlock(block.ID, output, false), true

	case types.BlockImage:
		if block.Source == nil {
			return anthropic.ContentBlockParamUnion{}, false
		}
		if block.Source.Type == types.SourceBase64 {
			return anthropic.NewImageBlockBase64(block.Source.MediaType, block.Source.Data), true
		}
		return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: block.Source.URL}), true

	case types.BlockAudio, types.BlockVideo:
		// Not accepted by the API; keep a reference so the turn is not lost.
		ref := ""
		if block.Source != nil {
			ref = block.Source.URL
			if ref == "" {
				ref = block.Source.MediaType
			}
		}
		return anthropic.NewTextBlock(fmt.Sprintf("[%s: %s]", block.Type, ref)), true
	}
	return anthropic.ContentBlockParamUnion{}, false
}

// ConvertTools converts tool specs to tool parameters
func ConvertTools(specs []model.ToolSpec) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		param, err := convertTool(spec)
		if err != nil {
			return nil, err
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &param})
	}
	return tools, nil
}

func convertTool(spec model.ToolSpec) (anthropic.ToolParam, error) {
	inputSchema := anthropic.ToolInputSchemaParam{
		Type:       constant.Object("object"),
		Properties: map[string]any{},
	}
	if spec.InputSchema != nil {
		data, err := json.Marshal(spec.InputSchema)
		if err != nil {
			return anthropic.ToolParam{}, fmt.Errorf("marshal schema of tool %s: %w", spec.Name, err)
		}
		var raw struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return anthropic.ToolParam{}, fmt.Errorf("decode schema of tool %s: %w", spec.Name, err)
		}
		if raw.Properties != nil {
			inputSchema.Properties = raw.Properties
		}
		inputSchema.Required = raw.Required
	}

	param := anthropic.ToolParam{
		Name:        spec.Name,
		InputSchema: inputSchema,
	}
	if spec.Description != "" {
		param.Description = anthropic.String(spec.Description)
	}
	return param, nil
}

// ConvertResponse converts response content into blocks
func ConvertResponse(content []anthropic.ContentBlockUnion) []types.Block {
	blocks := make([]types.Block, 0, len(content))
	for _, block := range content {
		switch block.Type {
		case "text":
			blocks = append(blocks, types.NewTextBlock(block.Text))
		case "thinking":
			blocks = append(blocks, types.NewThinkingBlock(block.Thinking))
		case "tool_use":
			blocks = append(blocks, types.NewToolUseBlock(block.ID, block.Name, block.Input))
		}
	}
	return blocks
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	// Retry on rate limits, overload and server errors
	return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
}

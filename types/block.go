package types

import (
	"encoding/json"
	"fmt"
)

// BlockType is the discriminator of a content block
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockImage      BlockType = "image"
	BlockAudio      BlockType = "audio"
	BlockVideo      BlockType = "video"
)

// Block is one piece of message content. Type selects which of the
// remaining fields are meaningful:
//
//	text         Text
//	thinking     Thinking
//	tool_use     ID, Name, Input
//	tool_result  ID, Name, Output
//	image/audio/video  Source
type Block struct {
	Type BlockType `json:"type"`

	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output *Content        `json:"output,omitempty"`

	Source *Source `json:"source,omitempty"`
}

// SourceType is how a media block carries its payload
type SourceType string

const (
	SourceURL    SourceType = "url"
	SourceBase64 SourceType = "base64"
)

// Source locates the payload of an image, audio or video block
type Source struct {
	Type      SourceType `json:"type"`
	URL       string     `json:"url,omitempty"`
	MediaType string     `json:"media_type,omitempty"`
	Data      string     `json:"data,omitempty"`
}

// NewTextBlock creates a text block
func NewTextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// NewThinkingBlock creates a thinking block
func NewThinkingBlock(thinking string) Block {
	return Block{Type: BlockThinking, Thinking: thinking}
}

// NewToolUseBlock creates a tool_use block. A nil input is stored as an
// empty JSON object.
func NewToolUseBlock(id, name string, input json.RawMessage) Block {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	return Block{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// NewToolResultBlock creates a tool_result block answering the tool_use
// block with the same id.
func NewToolResultBlock(id, name string, output Content) Block {
	return Block{Type: BlockToolResult, ID: id, Name: name, Output: &output}
}

// NewMediaBlock creates an image, audio or video block
func NewMediaBlock(t BlockType, src Source) Block {
	return Block{Type: t, Source: &src}
}

// Validate reports whether the block is a known variant carrying the
// fields that variant requires.
func (b Block) Validate() error {
	switch b.Type {
	case BlockText, BlockThinking:
		return nil
	case BlockToolUse:
		if b.ID == "" || b.Name == "" {
			return fmt.Errorf("%w: tool_use block requires id and name", ErrUnsupportedContent)
		}
		if len(b.Input) > 0 && !json.Valid(b.Input) {
			return fmt.Errorf("%w: tool_use input is not valid JSON", ErrUnsupportedContent)
		}
		return nil
	case BlockToolResult:
		if b.ID == "" {
			return fmt.Errorf("%w: tool_result block requires id", ErrUnsupportedContent)
		}
		if b.Output != nil {
			return b.Output.Validate()
		}
		return nil
	case BlockImage, BlockAudio, BlockVideo:
		if b.Source == nil {
			return fmt.Errorf("%w: %s block requires a source", ErrUnsupportedContent, b.Type)
		}
		switch b.Source.Type {
		case SourceURL:
			if b.Source.URL == "" {
				return fmt.Errorf("%w: %s url source is empty", ErrUnsupportedContent, b.Type)
			}
		case SourceBase64:
			if b.Source.Data == "" {
				return fmt.Errorf("%w: %s base64 source is empty", ErrUnsupportedContent, b.Type)
			}
		default:
			return fmt.Errorf("%w: unknown source type %q", ErrUnsupportedContent, b.Source.Type)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown block type %q", ErrUnsupportedContent, b.Type)
	}
}

// UnmarshalJSON rejects blocks whose type is not a known variant
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	blk := Block(p)
	if err := blk.Validate(); err != nil {
		return err
	}
	*b = blk
	return nil
}

func (b Block) clone() Block {
	out := b
	if b.Input != nil {
		out.Input = append(json.RawMessage(nil), b.Input...)
	}
	if b.Output != nil {
		o := b.Output.Clone()
		out.Output = &o
	}
	if b.Source != nil {
		s := *b.Source
		out.Source = &s
	}
	return out
}

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Content is either a plain string or an ordered list of blocks.
// The zero value is the empty string.
type Content struct {
	text     string
	blocks   []Block
	isBlocks bool
}

// Text creates string content
func Text(s string) Content {
	return Content{text: s}
}

// Blocks creates block content
func Blocks(blocks ...Block) Content {
	return Content{blocks: blocks, isBlocks: true}
}

// IsBlocks reports whether the content is a block list
func (c Content) IsBlocks() bool { return c.isBlocks }

// String returns the plain string content, or "" for block content
func (c Content) String() string { return c.text }

// Blocks returns the content as blocks. Plain string content is returned as a
// single text block, empty content as no blocks.
func (c Content) Blocks() []Block {
	if c.isBlocks {
		return c.blocks
	}
	if c.text == "" {
		return nil
	}
	return []Block{NewTextBlock(c.text)}
}

// JoinedText concatenates the text of all text blocks with newlines
func (c Content) JoinedText() string {
	if !c.isBlocks {
		return c.text
	}
	var parts []string
	for _, b := range c.blocks {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (c Content) Validate() error {
	for _, b := range c.blocks {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy
func (c Content) Clone() Content {
	if !c.isBlocks {
		return c
	}
	blocks := make([]Block, len(c.blocks))
	for i, b := range c.blocks {
		blocks[i] = b.clone()
	}
	return Content{blocks: blocks, isBlocks: true}
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.isBlocks {
		if c.blocks == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.blocks)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var blocks []Block
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return err
		}
		*c = Blocks(blocks...)
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("%w: content must be a string or a list of blocks", ErrUnsupportedContent)
	}
	*c = Text(s)
	return nil
}

// Package types defines the message value type shared by memory stores,
// models and agents.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Role represents the message role
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TimestampLayout is the format of Msg.Timestamp
const TimestampLayout = "2006-01-02 15:04:05.000"

var (
	// ErrUnsupportedContent is returned for content blocks of unknown type or
	// blocks missing the fields their type requires
	ErrUnsupportedContent = errors.New("unsupported content")

	// ErrInvalidRole is returned for roles other than user, assistant and system
	ErrInvalidRole = errors.New("invalid role")
)

// Msg is one conversational turn. Messages are treated as values once stored:
// memory stores never mutate their content, and compression works on clones.
type Msg struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Role         Role           `json:"role"`
	Content      Content        `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    string         `json:"timestamp"`
	InvocationID string         `json:"invocation_id,omitempty"`
}

// NewMsg creates a message with a fresh id and the current timestamp
func NewMsg(name string, role Role, content Content) *Msg {
	return &Msg{
		ID:        uuid.New().String(),
		Name:      name,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(TimestampLayout),
	}
}

// NewUserMsg creates a user message with text content
func NewUserMsg(name, text string) *Msg {
	return NewMsg(name, RoleUser, Text(text))
}

// NewAssistantMsg creates an assistant message with block content
func NewAssistantMsg(name string, blocks ...Block) *Msg {
	return NewMsg(name, RoleAssistant, Blocks(blocks...))
}

// NewSystemMsg creates a system message with text content
func NewSystemMsg(name, text string) *Msg {
	return NewMsg(name, RoleSystem, Text(text))
}

// Validate checks the role and every content block
func (m *Msg) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
	if err := m.Content.Validate(); err != nil {
		return fmt.Errorf("message %s: %w", m.ID, err)
	}
	return nil
}

// GetTextContent returns the plain string content, or the text blocks joined
// by newlines.
func (m *Msg) GetTextContent() string {
	return m.Content.JoinedText()
}

// GetContentBlocks returns the blocks of the given types, or all blocks when
// no type is given.
func (m *Msg) GetContentBlocks(kinds ...BlockType) []Block {
	blocks := m.Content.Blocks()
	if len(kinds) == 0 {
		return blocks
	}
	var out []Block
	for _, b := range blocks {
		for _, t := range kinds {
			if b.Type == t {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// HasContentBlocks reports whether the message has at least one block of type t
func (m *Msg) HasContentBlocks(t BlockType) bool {
	for _, b := range m.Content.Blocks() {
		if b.Type == t {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the message. Metadata values are copied
// shallowly.
func (m *Msg) Clone() *Msg {
	out := *m
	out.Content = m.Content.Clone()
	if m.Metadata != nil {
		out.Metadata = maps.Clone(m.Metadata)
	}
	return &out
}

// ToDict converts the message into a JSON-compatible map
func (m *Msg) ToDict() (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message %s: %w", m.ID, err)
	}
	var dict map[string]any
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", m.ID, err)
	}
	return dict, nil
}

// FromDict rebuilds a message produced by ToDict, keeping its id and timestamp
func FromDict(dict map[string]any) (*Msg, error) {
	data, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshal message dict: %w", err)
	}
	var m Msg
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message dict: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("%w: message dict has no id", ErrUnsupportedContent)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ToolUseIDs returns the ids of the tool_use blocks in the message
func (m *Msg) ToolUseIDs() []string {
	return m.blockIDs(BlockToolUse)
}

// ToolResultIDs returns the ids of the tool_result blocks in the message
func (m *Msg) ToolResultIDs() []string {
	return m.blockIDs(BlockToolResult)
}

func (m *Msg) blockIDs(t BlockType) []string {
	var ids []string
	for _, b := range m.Content.Blocks() {
		if b.Type == t {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

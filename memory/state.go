package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/youssefsiam38/agentscope/types"
)

// State dict keys
const (
	StateKeyMessages = "messages"
	StateKeyMarks    = "marks"
	StateKeySummary  = "compressed_summary"
)

var stateKeys = []string{StateKeyMessages, StateKeyMarks, StateKeySummary}

// StateDict serializes messages, marks and summary into a JSON-compatible map
func (m *InMemory) StateDict(context.Context) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := make([]any, 0, len(m.msgs))
	marks := make(map[string]any, len(m.marks))
	for _, msg := range m.msgs {
		dict, err := msg.ToDict()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, dict)
		if ms := m.marks[msg.ID]; len(ms) > 0 {
			list := make([]any, len(ms))
			for i, mark := range ms {
				list[i] = mark
			}
			marks[msg.ID] = list
		}
	}

	return map[string]any{
		StateKeyMessages: msgs,
		StateKeyMarks:    marks,
		StateKeySummary:  m.summary,
	}, nil
}

// LoadStateDict replaces the store's content with state. In strict mode
// unknown and missing keys fail with a *LookupError; otherwise unknown keys
// are ignored and missing keys load as empty. Marks of ids absent from the
// messages are dropped.
func (m *InMemory) LoadStateDict(_ context.Context, state map[string]any, strict bool) error {
	if strict {
		for key := range state {
			if !isStateKey(key) {
				return &LookupError{Key: key, Err: ErrUnknownStateKey}
			}
		}
		for _, key := range stateKeys {
			if _, ok := state[key]; !ok {
				return &LookupError{Key: key, Err: ErrMissingStateKey}
			}
		}
	}

	var (
		raw     []json.RawMessage
		marks   map[string][]string
		summary string
	)
	if err := decodeStateValue(state, StateKeyMessages, &raw); err != nil {
		return err
	}
	if err := decodeStateValue(state, StateKeyMarks, &marks); err != nil {
		return err
	}
	if err := decodeStateValue(state, StateKeySummary, &summary); err != nil {
		return err
	}

	msgs := make([]*types.Msg, 0, len(raw))
	for i, r := range raw {
		var msg types.Msg
		if err := json.Unmarshal(r, &msg); err != nil {
			return &LookupError{Key: fmt.Sprintf("%s[%d]", StateKeyMessages, i), Err: fmt.Errorf("%w: %v", ErrInvalidState, err)}
		}
		if err := msg.Validate(); err != nil {
			return &LookupError{Key: fmt.Sprintf("%s[%d]", StateKeyMessages, i), Err: fmt.Errorf("%w: %v", ErrInvalidState, err)}
		}
		msgs = append(msgs, &msg)
	}

	index := make(MarkIndex, len(marks))
	for _, msg := range msgs {
		index.Add(msg.ID, marks[msg.ID]...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = msgs
	m.marks = index
	m.summary = summary
	return nil
}

func isStateKey(key string) bool {
	return slices.Contains(stateKeys, key)
}

// decodeStateValue converts state[key] into dst through JSON, so both freshly
// built state dicts and ones decoded from JSON are accepted.
func decodeStateValue(state map[string]any, key string, dst any) error {
	v, ok := state[key]
	if !ok || v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return &LookupError{Key: key, Err: fmt.Errorf("%w: %v", ErrInvalidState, err)}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &LookupError{Key: key, Err: fmt.Errorf("%w: %v", ErrInvalidState, err)}
	}
	return nil
}

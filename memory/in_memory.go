package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/youssefsiam38/agentscope/types"
)

// InMemory keeps messages in a slice and marks in a MarkIndex. Stored messages
// are returned as is; callers must not mutate them.
type InMemory struct {
	mu              sync.RWMutex
	msgs            []*types.Msg
	marks           MarkIndex
	summary         string
	allowDuplicates bool
}

// InMemoryOption configures an InMemory store
type InMemoryOption func(*InMemory)

// WithAllowDuplicates lets Add store a message whose id is already present
func WithAllowDuplicates(allow bool) InMemoryOption {
	return func(m *InMemory) { m.allowDuplicates = allow }
}

// NewInMemory creates an empty store
func NewInMemory(opts ...InMemoryOption) *InMemory {
	m := &InMemory{marks: make(MarkIndex)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	_ Memory               = (*InMemory)(nil)
	_ CompressionCommitter = (*InMemory)(nil)
	_ Stateful             = (*InMemory)(nil)
)

func (m *InMemory) Add(_ context.Context, msgs []*types.Msg, marks ...string) error {
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if err := msg.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if !m.allowDuplicates && m.indexOf(msg.ID) >= 0 {
			continue
		}
		m.msgs = append(m.msgs, msg.Clone())
		m.marks.Add(msg.ID, marks...)
	}
	return nil
}

func (m *InMemory) Delete(_ context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.msgs)
	m.msgs = slices.DeleteFunc(m.msgs, func(msg *types.Msg) bool {
		return slices.Contains(ids, msg.ID)
	})
	for _, id := range ids {
		if m.indexOf(id) < 0 {
			m.marks.Drop(id)
		}
	}
	return before - len(m.msgs), nil
}

func (m *InMemory) DeleteByMark(_ context.Context, marks ...string) (int, error) {
	if len(marks) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	m.msgs = slices.DeleteFunc(m.msgs, func(msg *types.Msg) bool {
		if m.marks.HasAny(msg.ID, marks) {
			removed = append(removed, msg.ID)
			return true
		}
		return false
	})
	for _, id := range removed {
		m.marks.Drop(id)
	}
	return len(removed), nil
}

func (m *InMemory) GetMemory(_ context.Context, opts ...GetOption) ([]*types.Msg, error) {
	o := NewGetOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, len(m.msgs))
	for i, msg := range m.msgs {
		entries[i] = Entry{Msg: msg, Marks: m.marks[msg.ID]}
	}
	return Select(entries, m.summary, o), nil
}

func (m *InMemory) UpdateMessagesMark(_ context.Context, newMark, oldMark *string, msgIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateMarks(newMark, oldMark, msgIDs), nil
}

func (m *InMemory) updateMarks(newMark, oldMark *string, msgIDs []string) int {
	count := 0
	seen := make(map[string]bool, len(m.msgs))
	for _, msg := range m.msgs {
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		if msgIDs != nil && !slices.Contains(msgIDs, msg.ID) {
			continue
		}
		updated, changed := Retarget(m.marks[msg.ID], newMark, oldMark)
		if !changed {
			continue
		}
		if len(updated) == 0 {
			m.marks.Drop(msg.ID)
		} else {
			m.marks[msg.ID] = updated
		}
		count++
	}
	return count
}

func (m *InMemory) UpdateCompressedSummary(_ context.Context, summary string) error {
	m.mu.Lock()
	m.summary = summary
	m.mu.Unlock()
	return nil
}

// CommitCompression stores summary and marks ids compressed under one lock
func (m *InMemory) CommitCompression(_ context.Context, summary string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = summary
	mark := MarkCompressed
	return m.updateMarks(&mark, nil, ids), nil
}

func (m *InMemory) CompressedSummary(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary, nil
}

func (m *InMemory) Size(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.msgs), nil
}

func (m *InMemory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = nil
	m.marks = make(MarkIndex)
	m.summary = ""
	return nil
}

// Marks returns a copy of the marks of id
func (m *InMemory) Marks(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.marks.Get(id)
}

func (m *InMemory) indexOf(id string) int {
	return slices.IndexFunc(m.msgs, func(msg *types.Msg) bool { return msg.ID == id })
}

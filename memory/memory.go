// Package memory provides conversation stores with a mark index and a single
// compressed-summary slot.
//
// A store keeps messages in insertion order. Each message id maps to zero or
// more marks, free-form string tags used to select or exclude messages at
// retrieval time. The reserved mark MarkCompressed identifies messages that
// have been folded into the store's summary; agents read memory with
//
//	mem.GetMemory(ctx, memory.WithExcludeMark(memory.MarkCompressed))
//
// which yields the summary as a system message followed by the messages that
// were never compressed.
package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/youssefsiam38/agentscope/types"
)

const (
	// MarkCompressed is reserved for messages folded into the summary
	MarkCompressed = "compressed"

	// MarkHint tags transient guidance messages injected by an agent
	MarkHint = "hint"
)

// SummaryName is the sender name of the synthesized summary message
const SummaryName = "system"

var (
	// ErrUnknownStateKey is returned by a strict LoadStateDict for keys the store does not know
	ErrUnknownStateKey = errors.New("unknown state key")

	// ErrMissingStateKey is returned by a strict LoadStateDict when a required key is absent
	ErrMissingStateKey = errors.New("missing state key")

	// ErrInvalidState is returned when a state value has the wrong shape
	ErrInvalidState = errors.New("invalid state value")
)

// LookupError reports a problem with a key of a state dict
type LookupError struct {
	Key string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("memory state %q: %v", e.Key, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Memory is an ordered message store with a mark index and a summary slot.
// Implementations are not required to support concurrent mutation; callers
// serialize writes per store.
type Memory interface {
	// Add appends messages in order and attaches marks to each of them.
	// Nil messages are skipped. Invalid content fails the whole call.
	Add(ctx context.Context, msgs []*types.Msg, marks ...string) error

	// Delete removes the messages with the given ids and returns how many
	// were removed. Unknown ids are ignored.
	Delete(ctx context.Context, ids ...string) (int, error)

	// DeleteByMark removes every message carrying at least one of marks.
	// The compressed summary is left untouched.
	DeleteByMark(ctx context.Context, marks ...string) (int, error)

	// GetMemory returns messages in insertion order filtered by opts.
	GetMemory(ctx context.Context, opts ...GetOption) ([]*types.Msg, error)

	// UpdateMessagesMark narrows the store to msgIDs (when non-nil) and to
	// messages carrying oldMark (when non-nil), then removes oldMark and adds
	// newMark on each of them. A nil newMark only removes. It returns the
	// number of messages whose marks changed.
	UpdateMessagesMark(ctx context.Context, newMark, oldMark *string, msgIDs []string) (int, error)

	// UpdateCompressedSummary overwrites the summary
	UpdateCompressedSummary(ctx context.Context, summary string) error

	// CompressedSummary returns the current summary, "" when none
	CompressedSummary(ctx context.Context) (string, error)

	Size(ctx context.Context) (int, error)

	// Clear removes all messages, marks and the summary
	Clear(ctx context.Context) error
}

// CompressionCommitter is implemented by stores that can store a summary and
// mark the summarized messages in one atomic step.
type CompressionCommitter interface {
	CommitCompression(ctx context.Context, summary string, ids []string) (int, error)
}

// Stateful is implemented by stores that serialize to a JSON-compatible map
type Stateful interface {
	StateDict(ctx context.Context) (map[string]any, error)
	LoadStateDict(ctx context.Context, state map[string]any, strict bool) error
}

// Mark returns a pointer to mark, for UpdateMessagesMark arguments
func Mark(mark string) *string {
	return &mark
}

// SummaryMsg builds the system message that stands in for compressed history
func SummaryMsg(summary string) *types.Msg {
	return types.NewSystemMsg(SummaryName, summary)
}

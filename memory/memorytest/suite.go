// Package memorytest holds a behavioural test suite shared by every
// memory.Memory implementation.
package memorytest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/types"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) memory.Memory

// Run exercises the memory.Memory contract against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("SizeCountsAdds", func(t *testing.T) { testSizeCountsAdds(t, newStore(t)) })
	t.Run("MarkFilterAndComplement", func(t *testing.T) { testMarkFilter(t, newStore(t)) })
	t.Run("PrependSummary", func(t *testing.T) { testPrependSummary(t, newStore(t)) })
	t.Run("DeleteUnknownID", func(t *testing.T) { testDeleteUnknown(t, newStore(t)) })
	t.Run("DeleteRemovesMarks", func(t *testing.T) { testDeleteRemovesMarks(t, newStore(t)) })
	t.Run("DeleteByMarkIdempotent", func(t *testing.T) { testDeleteByMark(t, newStore(t)) })
	t.Run("RetargetMark", func(t *testing.T) { testRetarget(t, newStore(t)) })
	t.Run("UnmarkAndMarkIDs", func(t *testing.T) { testUnmark(t, newStore(t)) })
	t.Run("RejectsInvalidContent", func(t *testing.T) { testRejectsInvalid(t, newStore(t)) })
	t.Run("Clear", func(t *testing.T) { testClear(t, newStore(t)) })
	t.Run("PreservesContent", func(t *testing.T) { testPreservesContent(t, newStore(t)) })
}

// Msg creates a user text message with a fixed id
func Msg(id, text string) *types.Msg {
	m := types.NewUserMsg("user", text)
	m.ID = id
	return m
}

// IDs returns the ids of msgs in order
func IDs(msgs []*types.Msg) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func add(t *testing.T, mem memory.Memory, msgs []*types.Msg, marks ...string) {
	t.Helper()
	must(t, mem.Add(context.Background(), msgs, marks...))
}

func expectIDs(t *testing.T, mem memory.Memory, want []string, opts ...memory.GetOption) {
	t.Helper()
	got, err := mem.GetMemory(context.Background(), opts...)
	must(t, err)
	if ids := IDs(got); !slices.Equal(ids, want) {
		t.Errorf("GetMemory() ids = %v, want %v", ids, want)
	}
}

func expectSize(t *testing.T, mem memory.Memory, want int) {
	t.Helper()
	n, err := mem.Size(context.Background())
	must(t, err)
	if n != want {
		t.Errorf("Size() = %d, want %d", n, want)
	}
}

func expectCount(t *testing.T, what string, n int, err error, want int) {
	t.Helper()
	must(t, err)
	if n != want {
		t.Errorf("%s = %d, want %d", what, n, want)
	}
}

func expectSummary(t *testing.T, mem memory.Memory, want string) {
	t.Helper()
	got, err := mem.CompressedSummary(context.Background())
	must(t, err)
	if got != want {
		t.Errorf("CompressedSummary() = %q, want %q", got, want)
	}
}

func testSizeCountsAdds(t *testing.T, mem memory.Memory) {
	add(t, mem, []*types.Msg{Msg("a", "1"), Msg("b", "2")})
	add(t, mem, []*types.Msg{Msg("c", "3")}, "hint")
	add(t, mem, []*types.Msg{nil})

	expectSize(t, mem, 3)
}

func testMarkFilter(t *testing.T, mem memory.Memory) {
	add(t, mem, []*types.Msg{Msg("a", "1")})
	add(t, mem, []*types.Msg{Msg("b", "2")}, "m")
	add(t, mem, []*types.Msg{Msg("c", "3")})
	add(t, mem, []*types.Msg{Msg("d", "4")}, "m", "other")

	expectIDs(t, mem, []string{"b", "d"}, memory.WithMark("m"))
	expectIDs(t, mem, []string{"a", "c"}, memory.WithExcludeMark("m"))
	expectIDs(t, mem, []string{"b"}, memory.WithMark("m"), memory.WithExcludeMark("other"))
	expectIDs(t, mem, []string{"a", "b", "c", "d"})
}

func testPrependSummary(t *testing.T, mem memory.Memory) {
	ctx := context.Background()
	add(t, mem, []*types.Msg{Msg("a", "1")}, memory.MarkCompressed)
	add(t, mem, []*types.Msg{Msg("b", "2")})

	// No summary, nothing prepended.
	expectIDs(t, mem, []string{"b"}, memory.WithExcludeMark(memory.MarkCompressed))

	must(t, mem.UpdateCompressedSummary(ctx, "the summary"))

	got, err := mem.GetMemory(ctx, memory.WithExcludeMark(memory.MarkCompressed))
	must(t, err)
	if len(got) != 2 {
		t.Fatalf("GetMemory() = %d messages, want 2", len(got))
	}
	if got[0].Role != types.RoleSystem || got[0].GetTextContent() != "the summary" {
		t.Errorf("first message = %s %q, want the summary as a system message", got[0].Role, got[0].GetTextContent())
	}
	if got[1].ID != "b" {
		t.Errorf("second message id = %q, want b", got[1].ID)
	}

	expectIDs(t, mem, []string{"b"}, memory.WithExcludeMark(memory.MarkCompressed), memory.WithPrependSummary(false))
	// The summary only follows an exclusion.
	expectIDs(t, mem, []string{"a", "b"})
	expectSummary(t, mem, "the summary")
}

func testDeleteUnknown(t *testing.T, mem memory.Memory) {
	add(t, mem, []*types.Msg{Msg("a", "1")})

	n, err := mem.Delete(context.Background(), "nonexistent-id")
	expectCount(t, "Delete()", n, err, 0)
	expectSize(t, mem, 1)
}

func testDeleteRemovesMarks(t *testing.T, mem memory.Memory) {
	add(t, mem, []*types.Msg{Msg("a", "1"), Msg("b", "2")}, "m")

	n, err := mem.Delete(context.Background(), "a", "zzz")
	expectCount(t, "Delete()", n, err, 1)
	expectIDs(t, mem, []string{"b"}, memory.WithMark("m"))

	// Re-adding a deleted id must not resurrect its old marks.
	add(t, mem, []*types.Msg{Msg("a", "1")})
	expectIDs(t, mem, []string{"b"}, memory.WithMark("m"))
}

func testDeleteByMark(t *testing.T, mem memory.Memory) {
	ctx := context.Background()
	add(t, mem, []*types.Msg{Msg("a", "1"), Msg("b", "2")}, memory.MarkCompressed)
	add(t, mem, []*types.Msg{Msg("c", "3")}, "x")
	add(t, mem, []*types.Msg{Msg("d", "4")})
	must(t, mem.UpdateCompressedSummary(ctx, "kept"))

	n, err := mem.DeleteByMark(ctx, memory.MarkCompressed, "x")
	expectCount(t, "DeleteByMark()", n, err, 3)
	n, err = mem.DeleteByMark(ctx, memory.MarkCompressed, "x")
	expectCount(t, "second DeleteByMark()", n, err, 0)

	// Deleting compressed messages leaves the summary.
	expectSummary(t, mem, "kept")
	expectIDs(t, mem, []string{"d"})
}

func testRetarget(t *testing.T, mem memory.Memory) {
	add(t, mem, []*types.Msg{Msg("a", "1"), Msg("b", "2")}, memory.MarkHint)
	add(t, mem, []*types.Msg{Msg("c", "3")})

	n, err := mem.UpdateMessagesMark(context.Background(), memory.Mark("archived"), memory.Mark(memory.MarkHint), nil)
	expectCount(t, "UpdateMessagesMark()", n, err, 2)
	expectIDs(t, mem, []string{"a", "b"}, memory.WithMark("archived"))
	expectIDs(t, mem, []string{}, memory.WithMark(memory.MarkHint))
}

func testUnmark(t *testing.T, mem memory.Memory) {
	ctx := context.Background()
	add(t, mem, []*types.Msg{Msg("a", "1"), Msg("b", "2"), Msg("c", "3")}, "m")

	n, err := mem.UpdateMessagesMark(ctx, nil, memory.Mark("m"), []string{"a", "missing"})
	expectCount(t, "unmark", n, err, 1)
	expectIDs(t, mem, []string{"b", "c"}, memory.WithMark("m"))

	n, err = mem.UpdateMessagesMark(ctx, memory.Mark("n"), nil, []string{"a", "c"})
	expectCount(t, "mark", n, err, 2)
	n, err = mem.UpdateMessagesMark(ctx, memory.Mark("n"), nil, []string{"a", "c"})
	expectCount(t, "mark already marked", n, err, 0)

	expectIDs(t, mem, []string{"a"}, memory.WithMark("n"), memory.WithExcludeMark("m"))
}

func testRejectsInvalid(t *testing.T, mem memory.Memory) {
	bad := types.NewMsg("u", types.RoleUser, types.Blocks(types.Block{Type: "hologram"}))

	err := mem.Add(context.Background(), []*types.Msg{Msg("a", "1"), bad})
	if !errors.Is(err, types.ErrUnsupportedContent) {
		t.Fatalf("Add() error = %v, want ErrUnsupportedContent", err)
	}
	// A failed add stores nothing.
	expectSize(t, mem, 0)
}

func testClear(t *testing.T, mem memory.Memory) {
	ctx := context.Background()
	add(t, mem, []*types.Msg{Msg("a", "1")}, "m")
	must(t, mem.UpdateCompressedSummary(ctx, "s"))
	must(t, mem.Clear(ctx))

	expectSize(t, mem, 0)
	expectSummary(t, mem, "")
}

func testPreservesContent(t *testing.T, mem memory.Memory) {
	call := types.NewAssistantMsg("assistant",
		types.NewTextBlock("let me check"),
		types.NewToolUseBlock("call_1", "search", json.RawMessage(`{"q":"go"}`)),
	)
	result := types.NewMsg("system", types.RoleSystem, types.Blocks(
		types.NewToolResultBlock("call_1", "search", types.Text("found")),
	))
	add(t, mem, []*types.Msg{call, result})

	got, err := mem.GetMemory(context.Background())
	must(t, err)
	if len(got) != 2 {
		t.Fatalf("GetMemory() = %d messages, want 2", len(got))
	}

	for i, want := range []*types.Msg{call, result} {
		if a, b := jsonValue(t, want), jsonValue(t, got[i]); !reflect.DeepEqual(a, b) {
			t.Errorf("message %d round-tripped as %v, want %v", i, b, a)
		}
	}
}

func jsonValue(t *testing.T, m *types.Msg) any {
	t.Helper()
	data, err := json.Marshal(m)
	must(t, err)
	var v any
	must(t, json.Unmarshal(data, &v))
	return v
}

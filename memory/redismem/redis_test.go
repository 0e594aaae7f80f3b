package redismem_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/youssefsiam38/agentscope/internal/testutil"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/memory/memorytest"
	"github.com/youssefsiam38/agentscope/memory/redismem"
	"github.com/youssefsiam38/agentscope/types"
)

func TestRedisMemoryContract(t *testing.T) {
	memorytest.Run(t, func(t *testing.T) memory.Memory {
		_, client := testutil.NewRedis(t)
		return redismem.New(client)
	})
}

func TestRedisMemory_KeyLayout(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	ctx := context.Background()
	mem := redismem.New(client, redismem.WithUserID("alice"), redismem.WithSessionID("s1"))

	if err := mem.Add(ctx, []*types.Msg{memorytest.Msg("m1", "hi")}, memory.MarkHint); err != nil {
		t.Fatal(err)
	}
	if err := mem.UpdateCompressedSummary(ctx, "sum"); err != nil {
		t.Fatal(err)
	}

	base := "agentscope:user_id:alice:session:s1"
	for _, key := range []string{":messages", ":msg:m1", ":mark:hint", ":summary"} {
		if !mr.Exists(base + key) {
			t.Errorf("key %s%s does not exist", base, key)
		}
	}

	ids, err := mr.List(base + ":messages")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"m1"}) {
		t.Errorf("message list = %v, want [m1]", ids)
	}
}

func TestRedisMemory_SessionsAreIsolated(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()

	a := redismem.New(client, redismem.WithSessionID("a"))
	b := redismem.New(client, redismem.WithSessionID("b"))

	if err := a.Add(ctx, []*types.Msg{memorytest.Msg("1", "x")}); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(ctx, []*types.Msg{memorytest.Msg("2", "y"), memorytest.Msg("3", "z")}); err != nil {
		t.Fatal(err)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	n, err := b.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Size() of other session = %d, want 2", n)
	}
}

func TestRedisMemory_CommitCompression(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	mem := redismem.New(client)

	if err := mem.Add(ctx, []*types.Msg{
		memorytest.Msg("0", "a"), memorytest.Msg("1", "b"), memorytest.Msg("2", "c"),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := mem.CommitCompression(ctx, "summary", []string{"0", "1"})
	if err != nil {
		t.Fatalf("CommitCompression() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CommitCompression() = %d, want 2", n)
	}

	got, err := mem.GetMemory(ctx, memory.WithExcludeMark(memory.MarkCompressed))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("GetMemory() = %d messages, want 2", len(got))
	}
	if got[0].GetTextContent() != "summary" {
		t.Errorf("first message = %q, want the summary", got[0].GetTextContent())
	}
	if got[1].ID != "2" {
		t.Errorf("second message id = %q, want 2", got[1].ID)
	}
}

func TestRedisMemory_TTL(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	ctx := context.Background()
	mem := redismem.New(client, redismem.WithTTL(time.Minute))

	if err := mem.Add(ctx, []*types.Msg{memorytest.Msg("1", "x")}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	n, err := mem.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Size() after expiry = %d, want 0", n)
	}
}

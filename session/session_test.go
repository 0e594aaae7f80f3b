package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/youssefsiam38/agentscope/internal/testutil"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/memory/memorytest"
	"github.com/youssefsiam38/agentscope/session"
	"github.com/youssefsiam38/agentscope/types"
)

func savers(t *testing.T) map[string]session.Saver {
	_, client := testutil.NewRedis(t)
	return map[string]session.Saver{
		"json":  session.NewJSONSaver(t.TempDir()),
		"redis": session.NewRedisSaver(client),
	}
}

func TestSaverRoundTrip(t *testing.T) {
	for name, saver := range savers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			state := map[string]any{
				"agent": map[string]any{"name": "friday", "turns": float64(3)},
			}
			for range 2 {
				if err := saver.Save(ctx, "s1", state); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
				got, err := saver.Load(ctx, "s1")
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				if !reflect.DeepEqual(got, state) {
					t.Errorf("Load() = %v, want %v", got, state)
				}
				state["agent"] = map[string]any{"name": "friday", "turns": float64(4)}
			}
		})
	}
}

func TestSaverNotFound(t *testing.T) {
	for name, saver := range savers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := saver.Load(context.Background(), "missing")
			if !errors.Is(err, session.ErrSessionNotFound) {
				t.Errorf("Load() error = %v, want ErrSessionNotFound", err)
			}
		})
	}
}

func TestSaverRejectsInvalidID(t *testing.T) {
	for name, saver := range savers(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "../escape", `a\b`, ".."} {
				err := saver.Save(context.Background(), id, map[string]any{})
				if !errors.Is(err, session.ErrInvalidSessionID) {
					t.Errorf("Save(%q) error = %v, want ErrInvalidSessionID", id, err)
				}
			}
		})
	}
}

func TestJSONSaverWritesFile(t *testing.T) {
	dir := t.TempDir()
	saver := session.NewJSONSaver(dir)
	if err := saver.Save(context.Background(), "s1", map[string]any{"k": "v"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(saver.Path("s1"))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("file is not JSON: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"k": "v"}) {
		t.Errorf("file = %s", data)
	}

	// Temporary files are cleaned up.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want 1", len(entries))
	}
}

func TestRedisSaverTTL(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	saver := session.NewRedisSaver(client, session.WithRedisPrefix("test"), session.WithRedisTTL(time.Minute))

	if err := saver.Save(context.Background(), "s1", map[string]any{"k": "v"}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:s1") {
		t.Error("key test:s1 does not exist")
	}

	mr.FastForward(2 * time.Minute)
	if _, err := saver.Load(context.Background(), "s1"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Load() after expiry error = %v, want ErrSessionNotFound", err)
	}
}

func msgs(ids ...string) []*types.Msg {
	out := make([]*types.Msg, len(ids))
	for i, id := range ids {
		out[i] = memorytest.Msg(id, "message "+id)
	}
	return out
}

func TestModulesRoundTrip(t *testing.T) {
	for name, saver := range savers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mem := memory.NewInMemory()
			if err := mem.Add(ctx, msgs("0", "1", "2")); err != nil {
				t.Fatal(err)
			}
			if _, err := mem.UpdateMessagesMark(ctx, memory.Mark(memory.MarkCompressed), nil, []string{"0"}); err != nil {
				t.Fatal(err)
			}
			if err := mem.UpdateCompressedSummary(ctx, "earlier work"); err != nil {
				t.Fatal(err)
			}

			if err := session.SaveModules(ctx, saver, "s1", map[string]memory.Stateful{"memory": mem}); err != nil {
				t.Fatalf("SaveModules() error = %v", err)
			}

			restored := memory.NewInMemory()
			if err := session.LoadModules(ctx, saver, "s1", map[string]memory.Stateful{"memory": restored}, true, false); err != nil {
				t.Fatalf("LoadModules() error = %v", err)
			}

			view, err := restored.GetMemory(ctx, memory.WithExcludeMark(memory.MarkCompressed))
			if err != nil {
				t.Fatal(err)
			}
			if len(view) != 3 {
				t.Fatalf("view = %d messages, want 3", len(view))
			}
			if got := view[0].GetTextContent(); got != "earlier work" {
				t.Errorf("summary = %q, want %q", got, "earlier work")
			}
			if got := memorytest.IDs(view[1:]); !slices.Equal(got, []string{"1", "2"}) {
				t.Errorf("view ids = %v, want [1 2]", got)
			}
			if got := restored.Marks("0"); !slices.Equal(got, []string{memory.MarkCompressed}) {
				t.Errorf("marks of 0 = %v, want [compressed]", got)
			}
		})
	}
}

func TestLoadModulesMissing(t *testing.T) {
	ctx := context.Background()
	saver := session.NewJSONSaver(t.TempDir())
	mem := memory.NewInMemory()
	modules := map[string]memory.Stateful{"memory": mem}

	if err := session.LoadModules(ctx, saver, "none", modules, false, false); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("LoadModules() error = %v, want ErrSessionNotFound", err)
	}
	if err := session.LoadModules(ctx, saver, "none", modules, false, true); err != nil {
		t.Errorf("LoadModules(allowMissing) error = %v", err)
	}

	if err := saver.Save(ctx, "other", map[string]any{"agent": map[string]any{}}); err != nil {
		t.Fatal(err)
	}
	if err := session.LoadModules(ctx, saver, "other", modules, false, false); err != nil {
		t.Errorf("LoadModules(non-strict) error = %v", err)
	}

	err := session.LoadModules(ctx, saver, "other", modules, true, false)
	var lookup *memory.LookupError
	if !errors.As(err, &lookup) {
		t.Fatalf("LoadModules(strict) error = %v, want a *LookupError", err)
	}
	if lookup.Key != "memory" {
		t.Errorf("LookupError.Key = %q, want memory", lookup.Key)
	}
	if !errors.Is(err, memory.ErrMissingStateKey) {
		t.Errorf("error = %v, want ErrMissingStateKey", err)
	}
}

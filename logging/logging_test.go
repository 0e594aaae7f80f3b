package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(zerolog.New(&buf))

	l.Info("compressed", "messages", 3, "err", errors.New("boom"), "dangling")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got["message"] != "compressed" || got["level"] != "info" {
		t.Errorf("unexpected entry: %v", got)
	}
	if got["messages"] != float64(3) {
		t.Errorf("messages = %v", got["messages"])
	}
	if got["err"] != "boom" {
		t.Errorf("err = %v", got["err"])
	}
	if got["!BADKEY"] != "dangling" {
		t.Errorf("odd argument not reported: %v", got)
	}
}

func TestZerologLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("below-level entries written: %q", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("warn entry not written")
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()).(noopLogger); !ok {
		t.Errorf("expected noop logger without an attached logger")
	}

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	FromContext(ctx).Info("hello")
	if buf.Len() == 0 {
		t.Errorf("logger from context did not write")
	}
}

// Package logging defines the structured logger accepted by agentscope
// packages and its zerolog implementation.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger logs a message with alternating key/value pairs
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Noop returns a Logger that discards everything
func Noop() Logger {
	return noopLogger{}
}

// OrNoop returns l, or a no-op logger when l is nil
func OrNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog adapts a zerolog.Logger
func NewZerolog(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, args ...any) { l.log(l.zl.Debug(), msg, args) }
func (l *zerologLogger) Info(msg string, args ...any)  { l.log(l.zl.Info(), msg, args) }
func (l *zerologLogger) Warn(msg string, args ...any)  { l.log(l.zl.Warn(), msg, args) }
func (l *zerologLogger) Error(msg string, args ...any) { l.log(l.zl.Error(), msg, args) }

func (l *zerologLogger) log(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			e = e.Str("!BADKEY", key)
			break
		}
		if err, ok := args[i+1].(error); ok {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	e.Msg(msg)
}

// NewConsole builds a human-readable zerolog logger writing to w at level
// ("debug", "info", "warn", "error"). Unknown levels mean info.
func NewConsole(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

// FromContext returns a Logger for the zerolog logger attached to ctx, or a
// no-op logger when none is attached
func FromContext(ctx context.Context) Logger {
	zl := zerolog.Ctx(ctx)
	if zl == nil || zl.GetLevel() == zerolog.Disabled {
		return noopLogger{}
	}
	return &zerologLogger{zl: *zl}
}

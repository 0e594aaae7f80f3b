// Package session persists the state of agents and memory stores between
// processes.
//
// A session is a named collection of state dicts, one per module:
//
//	err := session.SaveModules(ctx, saver, "user-42", map[string]memory.Stateful{
//	    "friday": agent,
//	})
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/youssefsiam38/agentscope/memory"
)

var (
	// ErrSessionNotFound is returned by Load for unknown sessions
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID is returned for empty ids or ids containing path
	// separators
	ErrInvalidSessionID = errors.New("invalid session id")
)

// Saver stores one JSON-compatible state map per session id
type Saver interface {
	Save(ctx context.Context, sessionID string, state map[string]any) error
	Load(ctx context.Context, sessionID string) (map[string]any, error)
}

// ValidateID rejects ids that cannot name a file or a key segment
func ValidateID(sessionID string) error {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return nil
}

// SaveModules collects the state dict of every module and saves them under
// sessionID, keyed by module name
func SaveModules(ctx context.Context, saver Saver, sessionID string, modules map[string]memory.Stateful) error {
	state := make(map[string]any, len(modules))
	for name, module := range modules {
		dict, err := module.StateDict(ctx)
		if err != nil {
			return fmt.Errorf("session %s: state of %s: %w", sessionID, name, err)
		}
		state[name] = dict
	}
	return saver.Save(ctx, sessionID, state)
}

// LoadModules loads sessionID and restores every module from its entry.
// Modules without an entry are left untouched unless strict is set, in
// which case they fail with memory.ErrMissingStateKey. With allowMissing a
// missing session is not an error.
func LoadModules(ctx context.Context, saver Saver, sessionID string, modules map[string]memory.Stateful, strict, allowMissing bool) error {
	state, err := saver.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) && allowMissing {
		return nil
	}
	if err != nil {
		return err
	}

	for name, module := range modules {
		raw, ok := state[name]
		if !ok {
			if strict {
				return &memory.LookupError{Key: name, Err: memory.ErrMissingStateKey}
			}
			continue
		}
		dict, ok := raw.(map[string]any)
		if !ok {
			return &memory.LookupError{Key: name, Err: fmt.Errorf("%w: expected object, got %T", memory.ErrInvalidState, raw)}
		}
		if err := module.LoadStateDict(ctx, dict, strict); err != nil {
			return fmt.Errorf("session %s: load %s: %w", sessionID, name, err)
		}
	}
	return nil
}

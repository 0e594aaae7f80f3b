package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// JSONSaver keeps each session in {dir}/{sessionID}.json
type JSONSaver struct {
	dir string
}

// NewJSONSaver creates a saver writing into dir. The directory is created on
// first save.
func NewJSONSaver(dir string) *JSONSaver {
	return &JSONSaver{dir: dir}
}

// Path returns the file a session is stored in
func (s *JSONSaver) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Save writes state to a temporary file and renames it over the session file
func (s *JSONSaver) Save(ctx context.Context, sessionID string, state map[string]any) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("session %s: encode: %w", sessionID, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	tmp, err := os.CreateTemp(s.dir, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session %s: write: %w", sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session %s: write: %w", sessionID, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(sessionID)); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

func (s *JSONSaver) Load(ctx context.Context, sessionID string) (map[string]any, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("session %s: decode: %w", sessionID, err)
	}
	return state, nil
}

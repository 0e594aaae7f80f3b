package sqlmem

import (
	"context"
	"fmt"
	"strings"
)

// DefaultTablePrefix prefixes every table the store creates
const DefaultTablePrefix = "agentscope_"

type tables struct {
	sessions string
	messages string
	marks    string
}

func newTables(prefix string) tables {
	return tables{
		sessions: prefix + "sessions",
		messages: prefix + "messages",
		marks:    prefix + "message_marks",
	}
}

func (t tables) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			summary    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.sessions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq        BIGSERIAL,
			session_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			id         TEXT NOT NULL,
			msg        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (session_id, id)
		)`, t.messages, t.sessions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_seq_idx ON %s (session_id, seq)`, t.messages, t.messages),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT NOT NULL,
			msg_id     TEXT NOT NULL,
			mark       TEXT NOT NULL,
			PRIMARY KEY (session_id, msg_id, mark),
			FOREIGN KEY (session_id, msg_id) REFERENCES %s(session_id, id) ON DELETE CASCADE
		)`, t.marks, t.messages),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_mark_idx ON %s (session_id, mark)`, t.marks, t.marks),
	}
}

// Migrate creates the store's tables when they do not exist
func (m *Memory) Migrate(ctx context.Context) error {
	for _, stmt := range m.tables.schema() {
		if _, err := m.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// placeholders returns "$start, $start+1, ..." for n arguments
func placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", start+i)
	}
	return b.String()
}

// withStrings appends values to args as []any
func withStrings(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

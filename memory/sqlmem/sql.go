// Package sqlmem stores conversation memory in PostgreSQL through the
// driver.Executor abstraction, so it runs on pgx/v5 or database/sql.
//
// Messages are stored as JSONB rows ordered by an insertion sequence, marks
// as (session_id, msg_id, mark) rows that cascade with their message, and the
// compressed summary on the session row.
package sqlmem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/youssefsiam38/agentscope/driver"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/types"
)

const (
	DefaultUserID    = "default_user"
	DefaultSessionID = "default_session"
)

// Memory is a memory.Memory backed by SQL tables. Message ids are unique per
// session; adding an id twice keeps the first message.
type Memory struct {
	exec      driver.Executor
	tables    tables
	userID    string
	sessionID string
}

// Option configures a Memory
type Option func(*Memory)

func WithTablePrefix(prefix string) Option {
	return func(m *Memory) { m.tables = newTables(prefix) }
}

func WithUserID(id string) Option {
	return func(m *Memory) { m.userID = id }
}

func WithSessionID(id string) Option {
	return func(m *Memory) { m.sessionID = id }
}

// New creates a SQL memory. Call Migrate once before first use.
func New(exec driver.Executor, opts ...Option) *Memory {
	m := &Memory{
		exec:      exec,
		tables:    newTables(DefaultTablePrefix),
		userID:    DefaultUserID,
		sessionID: DefaultSessionID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	_ memory.Memory               = (*Memory)(nil)
	_ memory.CompressionCommitter = (*Memory)(nil)
)

func (m *Memory) ensureSession(ctx context.Context, q driver.Executor) error {
	_, err := q.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, user_id) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		m.tables.sessions), m.sessionID, m.userID)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

func (m *Memory) Add(ctx context.Context, msgs []*types.Msg, marks ...string) error {
	payloads := make([]string, 0, len(msgs))
	var toAdd []*types.Msg
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if err := msg.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message %s: %w", msg.ID, err)
		}
		payloads = append(payloads, string(data))
		toAdd = append(toAdd, msg)
	}
	if len(toAdd) == 0 {
		return nil
	}

	insertMsg := fmt.Sprintf(
		`INSERT INTO %s (session_id, id, msg) VALUES ($1, $2, $3) ON CONFLICT (session_id, id) DO NOTHING`,
		m.tables.messages)
	insertMark := fmt.Sprintf(
		`INSERT INTO %s (session_id, msg_id, mark) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		m.tables.marks)

	return driver.WithTx(ctx, m.exec, func(tx driver.ExecutorTx) error {
		if err := m.ensureSession(ctx, tx); err != nil {
			return err
		}
		for i, msg := range toAdd {
			n, err := tx.Exec(ctx, insertMsg, m.sessionID, msg.ID, payloads[i])
			if err != nil {
				return fmt.Errorf("insert message %s: %w", msg.ID, err)
			}
			if n == 0 {
				continue
			}
			for _, mark := range marks {
				if mark == "" {
					continue
				}
				if _, err := tx.Exec(ctx, insertMark, m.sessionID, msg.ID, mark); err != nil {
					return fmt.Errorf("insert mark %s: %w", mark, err)
				}
			}
		}
		return nil
	})
}

func (m *Memory) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1 AND id IN (%s)`,
		m.tables.messages, placeholders(2, len(ids)))
	n, err := m.exec.Exec(ctx, query, withStrings([]any{m.sessionID}, ids)...)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return int(n), nil
}

func (m *Memory) DeleteByMark(ctx context.Context, marks ...string) (int, error) {
	if len(marks) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1 AND id IN (
		SELECT msg_id FROM %s WHERE session_id = $1 AND mark IN (%s)
	)`, m.tables.messages, m.tables.marks, placeholders(2, len(marks)))
	n, err := m.exec.Exec(ctx, query, withStrings([]any{m.sessionID}, marks)...)
	if err != nil {
		return 0, fmt.Errorf("delete by mark: %w", err)
	}
	return int(n), nil
}

func (m *Memory) GetMemory(ctx context.Context, opts ...memory.GetOption) ([]*types.Msg, error) {
	o := memory.NewGetOptions(opts...)

	entries, err := m.entries(ctx, m.exec)
	if err != nil {
		return nil, err
	}
	summary, err := m.CompressedSummary(ctx)
	if err != nil {
		return nil, err
	}
	return memory.Select(entries, summary, o), nil
}

func (m *Memory) UpdateMessagesMark(ctx context.Context, newMark, oldMark *string, msgIDs []string) (int, error) {
	var count int
	err := driver.WithTx(ctx, m.exec, func(tx driver.ExecutorTx) error {
		var err error
		count, err = m.retarget(ctx, tx, newMark, oldMark, msgIDs)
		return err
	})
	return count, err
}

// CommitCompression stores the summary and marks ids compressed in one transaction
func (m *Memory) CommitCompression(ctx context.Context, summary string, ids []string) (int, error) {
	var count int
	err := driver.WithTx(ctx, m.exec, func(tx driver.ExecutorTx) error {
		if err := m.setSummary(ctx, tx, summary); err != nil {
			return err
		}
		mark := memory.MarkCompressed
		var err error
		count, err = m.retarget(ctx, tx, &mark, nil, ids)
		return err
	})
	return count, err
}

func (m *Memory) retarget(ctx context.Context, q driver.Executor, newMark, oldMark *string, msgIDs []string) (int, error) {
	entries, err := m.entries(ctx, q)
	if err != nil {
		return 0, err
	}

	var wanted map[string]bool
	if msgIDs != nil {
		wanted = make(map[string]bool, len(msgIDs))
		for _, id := range msgIDs {
			wanted[id] = true
		}
	}

	deleteMark := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1 AND msg_id = $2 AND mark = $3`, m.tables.marks)
	insertMark := fmt.Sprintf(
		`INSERT INTO %s (session_id, msg_id, mark) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, m.tables.marks)

	count := 0
	for _, e := range entries {
		if wanted != nil && !wanted[e.Msg.ID] {
			continue
		}
		after, changed := memory.Retarget(e.Marks, newMark, oldMark)
		if !changed {
			continue
		}
		if oldMark != nil && !slices.Contains(after, *oldMark) {
			if _, err := q.Exec(ctx, deleteMark, m.sessionID, e.Msg.ID, *oldMark); err != nil {
				return 0, fmt.Errorf("remove mark: %w", err)
			}
		}
		if newMark != nil && *newMark != "" && !slices.Contains(e.Marks, *newMark) {
			if _, err := q.Exec(ctx, insertMark, m.sessionID, e.Msg.ID, *newMark); err != nil {
				return 0, fmt.Errorf("add mark: %w", err)
			}
		}
		count++
	}
	return count, nil
}

func (m *Memory) UpdateCompressedSummary(ctx context.Context, summary string) error {
	return m.setSummary(ctx, m.exec, summary)
}

func (m *Memory) setSummary(ctx context.Context, q driver.Executor, summary string) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, summary) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET summary = EXCLUDED.summary, updated_at = NOW()
	`, m.tables.sessions), m.sessionID, m.userID, summary)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

func (m *Memory) CompressedSummary(ctx context.Context) (string, error) {
	var summary string
	err := m.exec.QueryRow(ctx, fmt.Sprintf(`SELECT summary FROM %s WHERE id = $1`, m.tables.sessions),
		m.sessionID).Scan(&summary)
	if errors.Is(err, driver.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

func (m *Memory) Size(ctx context.Context) (int, error) {
	var n int64
	err := m.exec.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE session_id = $1`, m.tables.messages),
		m.sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return int(n), nil
}

func (m *Memory) Clear(ctx context.Context) error {
	return driver.WithTx(ctx, m.exec, func(tx driver.ExecutorTx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, m.tables.messages), m.sessionID); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET summary = '', updated_at = NOW() WHERE id = $1`, m.tables.sessions), m.sessionID); err != nil {
			return fmt.Errorf("clear summary: %w", err)
		}
		return nil
	})
}

// entries loads every message of the session in order with its marks
func (m *Memory) entries(ctx context.Context, q driver.Executor) ([]memory.Entry, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT id, msg::text FROM %s WHERE session_id = $1 ORDER BY seq`, m.tables.messages), m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	index := make(map[string]int)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var msg types.Msg
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", id, err)
		}
		index[id] = len(entries)
		entries = append(entries, memory.Entry{Msg: &msg})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	rows.Close()

	markRows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT msg_id, mark FROM %s WHERE session_id = $1 ORDER BY msg_id, mark`, m.tables.marks), m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("query marks: %w", err)
	}
	defer markRows.Close()

	for markRows.Next() {
		var id, mark string
		if err := markRows.Scan(&id, &mark); err != nil {
			return nil, fmt.Errorf("scan mark: %w", err)
		}
		if i, ok := index[id]; ok {
			entries[i].Marks = append(entries[i].Marks, mark)
		}
	}
	if err := markRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marks: %w", err)
	}
	return entries, nil
}

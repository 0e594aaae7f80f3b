// Package redismem stores conversation memory in Redis.
//
// Keys are scoped by user and session:
//
//	{prefix}:user_id:{user}:session:{session}:messages    LIST of message ids
//	{prefix}:user_id:{user}:session:{session}:msg:{id}    message JSON
//	{prefix}:user_id:{user}:session:{session}:mark:{mark} SET of message ids
//	{prefix}:user_id:{user}:session:{session}:marks       SET of marks in use
//	{prefix}:user_id:{user}:session:{session}:summary     compressed summary
//
// Every write is sent as a MULTI/EXEC pipeline.
package redismem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/types"
)

const (
	DefaultKeyPrefix = "agentscope"
	DefaultUserID    = "default_user"
	DefaultSessionID = "default_session"
)

// Memory is a memory.Memory backed by Redis
type Memory struct {
	client          redis.UniversalClient
	prefix          string
	userID          string
	sessionID       string
	ttl             time.Duration
	allowDuplicates bool
}

// Option configures a Memory
type Option func(*Memory)

func WithKeyPrefix(prefix string) Option {
	return func(m *Memory) { m.prefix = prefix }
}

func WithUserID(id string) Option {
	return func(m *Memory) { m.userID = id }
}

func WithSessionID(id string) Option {
	return func(m *Memory) { m.sessionID = id }
}

// WithTTL expires every key of the session ttl after its last write
func WithTTL(ttl time.Duration) Option {
	return func(m *Memory) { m.ttl = ttl }
}

// WithAllowDuplicates lets Add store a message whose id is already present
func WithAllowDuplicates(allow bool) Option {
	return func(m *Memory) { m.allowDuplicates = allow }
}

// New creates a Redis memory on client
func New(client redis.UniversalClient, opts ...Option) *Memory {
	m := &Memory{
		client:    client,
		prefix:    DefaultKeyPrefix,
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

func (m *Memory) base() string {
	return fmt.Sprintf("%s:user_id:%s:session:%s", m.prefix, m.userID, m.sessionID)
}

func (m *Memory) messagesKey() string { return m.base() + ":messages" }
func (m *Memory) msgKey(id string) string { return m.base() + ":msg:" + id }
func (m *Memory) markKey(mark string) string { return m.base() + ":mark:" + mark }
func (m *Memory) marksKey() string { return m.base() + ":marks" }
func (m *Memory) summaryKey() string { return m.base() + ":summary" }

func (m *Memory) Add(ctx context.Context, msgs []*types.Msg, marks ...string) error {
	payloads := make(map[string][]byte, len(msgs))
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
		payloads[msg.ID] = data
		toAdd = append(toAdd, msg)
	}
	if len(toAdd) == 0 {
		return nil
	}

	if !m.allowDuplicates {
		existing, err := m.ids(ctx)
		if err != nil {
			return err
		}
		toAdd = slices.DeleteFunc(toAdd, func(msg *types.Msg) bool {
			if slices.Contains(existing, msg.ID) {
				return true
			}
			existing = append(existing, msg.ID)
			return false
		})
		if len(toAdd) == 0 {
			return nil
		}
	}

	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, msg := range toAdd {
			pipe.Set(ctx, m.msgKey(msg.ID), payloads[msg.ID], m.ttl)
			pipe.RPush(ctx, m.messagesKey(), msg.ID)
			for _, mark := range marks {
				if mark == "" {
					continue
				}
				pipe.SAdd(ctx, m.markKey(mark), msg.ID)
			}
		}
		for _, mark := range marks {
			if mark == "" {
				continue
			}
			pipe.SAdd(ctx, m.marksKey(), mark)
		}
		m.expire(ctx, pipe, marks...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis add: %w", err)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks, err := m.client.SMembers(ctx, m.marksKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete: %w", err)
	}

	removed := make([]*redis.IntCmd, 0, len(ids))
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			removed = append(removed, pipe.LRem(ctx, m.messagesKey(), 0, id))
			pipe.Del(ctx, m.msgKey(id))
			for _, mark := range marks {
				pipe.SRem(ctx, m.markKey(mark), id)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete: %w", err)
	}

	count := 0
	for _, cmd := range removed {
		count += int(cmd.Val())
	}
	return count, nil
}

func (m *Memory) DeleteByMark(ctx context.Context, marks ...string) (int, error) {
	if len(marks) == 0 {
		return 0, nil
	}
	keys := make([]string, len(marks))
	for i, mark := range marks {
		keys[i] = m.markKey(mark)
	}
	ids, err := m.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete by mark: %w", err)
	}
	return m.Delete(ctx, ids...)
}

func (m *Memory) GetMemory(ctx context.Context, opts ...memory.GetOption) ([]*types.Msg, error) {
	o := memory.NewGetOptions(opts...)

	ids, err := m.ids(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := m.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	relevant := make(map[string][]string)
	for _, mark := range []string{o.Mark, o.ExcludeMark} {
		if mark == "" {
			continue
		}
		members, err := m.client.SMembers(ctx, m.markKey(mark)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis get marks: %w", err)
		}
		for _, id := range members {
			relevant[id] = append(relevant[id], mark)
		}
	}

	entries := make([]memory.Entry, len(msgs))
	for i, msg := range msgs {
		entries[i] = memory.Entry{Msg: msg, Marks: relevant[msg.ID]}
	}

	summary, err := m.CompressedSummary(ctx)
	if err != nil {
		return nil, err
	}
	return memory.Select(entries, summary, o), nil
}

func (m *Memory) UpdateMessagesMark(ctx context.Context, newMark, oldMark *string, msgIDs []string) (int, error) {
	return m.retarget(ctx, newMark, oldMark, msgIDs, nil)
}

// CommitCompression writes the summary and the compressed marks in one transaction
func (m *Memory) CommitCompression(ctx context.Context, summary string, ids []string) (int, error) {
	mark := memory.MarkCompressed
	return m.retarget(ctx, &mark, nil, ids, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, m.summaryKey(), summary, m.ttl)
	})
}

func (m *Memory) retarget(ctx context.Context, newMark, oldMark *string, msgIDs []string, extra func(redis.Pipeliner)) (int, error) {
	ids, err := m.ids(ctx)
	if err != nil {
		return 0, err
	}

	oldSet, err := m.markSet(ctx, oldMark)
	if err != nil {
		return 0, err
	}
	newSet, err := m.markSet(ctx, newMark)
	if err != nil {
		return 0, err
	}

	type change struct {
		id     string
		before []string
		after  []string
	}
	var changes []change
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if msgIDs != nil && !slices.Contains(msgIDs, id) {
			continue
		}
		var current []string
		if oldMark != nil && oldSet[id] {
			current = append(current, *oldMark)
		}
		if newMark != nil && newSet[id] && (oldMark == nil || *newMark != *oldMark) {
			current = append(current, *newMark)
		}
		after, changed := memory.Retarget(current, newMark, oldMark)
		if changed {
			changes = append(changes, change{id: id, before: current, after: after})
		}
	}

	if len(changes) == 0 && extra == nil {
		return 0, nil
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range changes {
			for _, mark := range c.before {
				if !slices.Contains(c.after, mark) {
					pipe.SRem(ctx, m.markKey(mark), c.id)
				}
			}
			for _, mark := range c.after {
				if !slices.Contains(c.before, mark) {
					pipe.SAdd(ctx, m.markKey(mark), c.id)
				}
			}
		}
		if newMark != nil && *newMark != "" && len(changes) > 0 {
			pipe.SAdd(ctx, m.marksKey(), *newMark)
		}
		if extra != nil {
			extra(pipe)
		}
		if newMark != nil {
			m.expire(ctx, pipe, *newMark)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis update marks: %w", err)
	}
	return len(changes), nil
}

func (m *Memory) UpdateCompressedSummary(ctx context.Context, summary string) error {
	if err := m.client.Set(ctx, m.summaryKey(), summary, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}
	return nil
}

func (m *Memory) CompressedSummary(ctx context.Context) (string, error) {
	summary, err := m.client.Get(ctx, m.summaryKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get summary: %w", err)
	}
	return summary, nil
}

func (m *Memory) Size(ctx context.Context) (int, error) {
	n, err := m.client.LLen(ctx, m.messagesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis size: %w", err)
	}
	return int(n), nil
}

func (m *Memory) Clear(ctx context.Context) error {
	ids, err := m.ids(ctx)
	if err != nil {
		return err
	}
	marks, err := m.client.SMembers(ctx, m.marksKey()).Result()
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}

	keys := []string{m.messagesKey(), m.marksKey(), m.summaryKey()}
	for _, id := range ids {
		keys = append(keys, m.msgKey(id))
	}
	for _, mark := range marks {
		keys = append(keys, m.markKey(mark))
	}
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func (m *Memory) ids(ctx context.Context) ([]string, error) {
	ids, err := m.client.LRange(ctx, m.messagesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list messages: %w", err)
	}
	return ids, nil
}

func (m *Memory) load(ctx context.Context, ids []string) ([]*types.Msg, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = m.msgKey(id)
	}
	values, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load messages: %w", err)
	}

	msgs := make([]*types.Msg, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Listed but expired or removed concurrently.
			continue
		}
		var msg types.Msg
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", ids[i], err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}

func (m *Memory) markSet(ctx context.Context, mark *string) (map[string]bool, error) {
	if mark == nil || *mark == "" {
		return nil, nil
	}
	members, err := m.client.SMembers(ctx, m.markKey(*mark)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get mark %s: %w", *mark, err)
	}
	set := make(map[string]bool, len(members))
	for _, id := range members {
		set[id] = true
	}
	return set, nil
}

func (m *Memory) expire(ctx context.Context, pipe redis.Pipeliner, marks ...string) {
	if m.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, m.messagesKey(), m.ttl)
	pipe.Expire(ctx, m.marksKey(), m.ttl)
	for _, mark := range marks {
		if mark != "" {
			pipe.Expire(ctx, m.markKey(mark), m.ttl)
		}
	}
}

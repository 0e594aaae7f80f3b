package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix prefixes session keys
const DefaultRedisPrefix = "agentscope:session"

// RedisSaver keeps each session as a JSON string at {prefix}:{sessionID}
type RedisSaver struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisSaver
type RedisOption func(*RedisSaver)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisSaver) { s.prefix = prefix }
}

// WithRedisTTL expires sessions ttl after their last save
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisSaver) { s.ttl = ttl }
}

// NewRedisSaver creates a saver on client
func NewRedisSaver(client redis.UniversalClient, opts ...RedisOption) *RedisSaver {
	s := &RedisSaver{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key of a session
func (s *RedisSaver) Key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisSaver) Save(ctx context.Context, sessionID string, state map[string]any) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session %s: encode: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.Key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisSaver) Load(ctx context.Context, sessionID string) (map[string]any, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/youssefsiam38/agentscope"
	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/driver"
	"github.com/youssefsiam38/agentscope/driver/databasesql"
	"github.com/youssefsiam38/agentscope/driver/pgxv5"
	"github.com/youssefsiam38/agentscope/hooks"
	"github.com/youssefsiam38/agentscope/internal/config"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/memory/redismem"
	"github.com/youssefsiam38/agentscope/memory/sqlmem"
	"github.com/youssefsiam38/agentscope/model/anthropic"
	"github.com/youssefsiam38/agentscope/session"
	"github.com/youssefsiam38/agentscope/token"
)

const systemPrompt = "You are a helpful assistant named Friday."

// setupLogger attaches a console zerolog logger to ctx
func setupLogger(ctx context.Context) (context.Context, logging.Logger) {
	zl := logging.NewConsole(os.Stderr, cfg.LogLevel)
	ctx = zl.WithContext(ctx)
	return ctx, logging.FromContext(ctx)
}

// env holds everything a command needs, released by close
type env struct {
	memory  memory.Memory
	saver   session.Saver
	closers []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// persistent reports whether the memory is kept by its backend rather than
// by session files
func (e *env) persistent() bool {
	_, ok := e.memory.(memory.Stateful)
	return !ok
}

func openEnv(ctx context.Context, logger logging.Logger) (*env, error) {
	e := &env{}
	var rdb *redis.Client
	redisClient := func() (*redis.Client, error) {
		if rdb != nil {
			return rdb, nil
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		e.closers = append(e.closers, func() { rdb.Close() })
		return rdb, nil
	}

	switch cfg.Memory {
	case config.MemoryRedis:
		client, err := redisClient()
		if err != nil {
			return nil, err
		}
		e.memory = redismem.New(client, redismem.WithSessionID(sessionID))
	case config.MemoryPostgres:
		exec, err := openSQL(ctx, e)
		if err != nil {
			e.close()
			return nil, err
		}
		store := sqlmem.New(exec, sqlmem.WithSessionID(sessionID))
		if err := store.Migrate(ctx); err != nil {
			e.close()
			return nil, err
		}
		e.memory = store
	default:
		e.memory = memory.NewInMemory()
	}

	if !e.persistent() {
		switch cfg.SessionStore {
		case config.SessionStoreRedis:
			client, err := redisClient()
			if err != nil {
				e.close()
				return nil, err
			}
			e.saver = session.NewRedisSaver(client)
		default:
			e.saver = session.NewJSONSaver(cfg.SessionDir)
		}
	}

	logger.Debug("memory opened", "backend", cfg.Memory, "session", sessionID)
	return e, nil
}

func openSQL(ctx context.Context, e *env) (driver.Executor, error) {
	if cfg.SQLDriver == config.DriverDatabaseSQL {
		exec, err := databasesql.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { exec.DB().Close() })
		return exec, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	e.closers = append(e.closers, pool.Close)
	return pgxv5.New(pool), nil
}

func newCounter(chat *anthropic.Model, modelName string, logger logging.Logger) token.Counter {
	switch cfg.Tokenizer {
	case config.TokenizerTiktoken:
		return token.NewTiktokenCounter(modelName)
	case config.TokenizerAnthropic:
		return token.NewAnthropicCounter(chat.Client(), modelName, nil, token.WithLogger(logger))
	default:
		return token.NewCharCounter()
	}
}

func newAgent(mem memory.Memory, logger logging.Logger, opts ...agentscope.Option) (*agentscope.Agent, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is not set")
	}
	chat := anthropic.New(anthropic.Config{APIKey: cfg.APIKey, Model: cfg.Model})

	registry := hooks.NewRegistry()
	hooks.NewLoggingHooks(logger).Attach(registry)

	opts = append(opts,
		agentscope.WithLogger(logger),
		agentscope.WithHooks(registry),
	)
	if cfg.CompressionEnabled() {
		summarizer := chat
		if cfg.SummaryModel() != cfg.Model {
			summarizer = anthropic.New(anthropic.Config{APIKey: cfg.APIKey, Model: cfg.SummaryModel()})
		}
		cc := compression.DefaultConfig()
		cc.Model = summarizer
		cc.Counter = newCounter(summarizer, cfg.SummaryModel(), logger)
		cc.TriggerThreshold = cfg.TriggerThreshold
		cc.KeepRecent = cfg.KeepRecent
		opts = append(opts, agentscope.WithCompression(cc))
	}

	return agentscope.New(agentscope.Config{
		Name:         "Friday",
		SystemPrompt: systemPrompt,
		Model:        chat,
		Memory:       mem,
	}, opts...)
}

// loadSession restores in-process memory from the session store
func loadSession(ctx context.Context, e *env) error {
	if e.saver == nil {
		return nil
	}
	return session.LoadModules(ctx, e.saver, sessionID, e.modules(), false, true)
}

func saveSession(ctx context.Context, e *env) error {
	if e.saver == nil {
		return nil
	}
	return session.SaveModules(ctx, e.saver, sessionID, e.modules())
}

func (e *env) modules() map[string]memory.Stateful {
	return map[string]memory.Stateful{"memory": e.memory.(memory.Stateful)}
}

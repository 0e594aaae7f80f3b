package compression

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

// State is the compressor lifecycle state
type State int32

const (
	StateIdle State = iota
	StateEligible
	StateCompressing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEligible:
		return "eligible"
	case StateCompressing:
		return "compressing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Result describes one compression check or run
type Result struct {
	// Compressed reports whether a summary was committed
	Compressed bool

	// IDs are the messages marked compressed by this run
	IDs []string

	// TokensBefore is the uncompressed token count at check time
	TokensBefore int

	// TokensAfter is the token count of summary plus kept messages after a
	// successful run
	TokensAfter int

	Summary  string
	Duration time.Duration
}

// Stats accumulates compressor activity
type Stats struct {
	Checks      int
	Runs        int
	Failures    int
	Compressed  int
	TokensSaved int
	LastRun     time.Time
}

// Option configures a Compressor
type Option func(*Compressor)

// WithLogger sets the logger used for compression events
func WithLogger(l logging.Logger) Option {
	return func(c *Compressor) {
		c.logger = logging.OrNoop(l)
	}
}

// Compressor decides when a memory store should be compressed and performs
// the compression. A Compressor may be shared by agents, but runs on one
// Compressor are serialized.
type Compressor struct {
	cfg    Config
	logger logging.Logger

	run   sync.Mutex
	state atomic.Int32

	statsMu sync.Mutex
	stats   Stats
}

// New validates cfg and creates a Compressor
func New(cfg Config, opts ...Option) (*Compressor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Compressor{
		cfg:    cfg,
		logger: logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration
func (c *Compressor) Config() Config {
	return c.cfg
}

// State returns the current lifecycle state
func (c *Compressor) State() State {
	return State(c.state.Load())
}

// Stats returns a snapshot of accumulated statistics
func (c *Compressor) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Check counts the uncompressed messages of mem and reports whether they
// exceed the trigger threshold with at least one message outside the
// keep-recent window. Check never modifies mem.
func (c *Compressor) Check(ctx context.Context, mem memory.Memory) (tokens int, eligible bool, err error) {
	if !c.cfg.Enabled {
		return 0, false, nil
	}
	msgs, err := uncompressed(ctx, mem)
	if err != nil {
		return 0, false, NewCompressionError("Check", err)
	}
	tokens, err = c.cfg.Counter.Count(ctx, msgs)
	if err != nil {
		return 0, false, NewCompressionError("Check", fmt.Errorf("%w: %w", ErrTokenCountingFailed, err))
	}
	c.statsMu.Lock()
	c.stats.Checks++
	c.statsMu.Unlock()

	if tokens <= c.cfg.TriggerThreshold {
		return tokens, false, nil
	}
	toCompress, _ := SelectRange(msgs, c.cfg.KeepRecent)
	return tokens, len(toCompress) > 0, nil
}

// BeforeFunc is called with the uncompressed token count once memory is
// found eligible. A non-nil error cancels the run.
type BeforeFunc func(ctx context.Context, tokens int) error

// CompressIfNeeded compresses mem when Check reports it eligible. Below the
// threshold it returns a Result with Compressed false and leaves mem
// unchanged.
func (c *Compressor) CompressIfNeeded(ctx context.Context, mem memory.Memory) (*Result, error) {
	return c.CompressIfEligible(ctx, mem, nil)
}

// CompressIfEligible is CompressIfNeeded with a callback run between the
// check and the summarization. Tokens are counted once per call. When
// before fails the error wraps ErrCompressionVetoed and mem is unchanged.
func (c *Compressor) CompressIfEligible(ctx context.Context, mem memory.Memory, before BeforeFunc) (*Result, error) {
	if !c.cfg.Enabled {
		return &Result{}, nil
	}
	if !c.run.TryLock() {
		return nil, NewCompressionError("Compress", ErrCompressionInProgress)
	}
	defer c.run.Unlock()

	tokens, eligible, err := c.Check(ctx, mem)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return &Result{TokensBefore: tokens}, nil
	}
	if before != nil {
		if err := before(ctx, tokens); err != nil {
			return nil, NewCompressionError("Check", fmt.Errorf("%w: %w", ErrCompressionVetoed, err)).
				WithContext("tokens", tokens)
		}
	}
	c.state.Store(int32(StateEligible))
	defer c.state.Store(int32(StateIdle))
	return c.compress(ctx, mem, tokens)
}

// Compress compresses mem regardless of the trigger threshold. It returns
// ErrNothingToCompress when the keep-recent window covers every uncompressed
// message and ErrCompressionDisabled when the Compressor is disabled.
func (c *Compressor) Compress(ctx context.Context, mem memory.Memory) (*Result, error) {
	if !c.cfg.Enabled || c.cfg.Model == nil {
		return nil, NewCompressionError("Compress", ErrCompressionDisabled)
	}
	if !c.run.TryLock() {
		return nil, NewCompressionError("Compress", ErrCompressionInProgress)
	}
	defer c.run.Unlock()
	defer c.state.Store(int32(StateIdle))

	msgs, err := uncompressed(ctx, mem)
	if err != nil {
		return nil, NewCompressionError("Compress", err)
	}
	tokens, err := c.cfg.Counter.Count(ctx, msgs)
	if err != nil {
		return nil, NewCompressionError("Compress", fmt.Errorf("%w: %w", ErrTokenCountingFailed, err))
	}
	return c.compress(ctx, mem, tokens)
}

func (c *Compressor) compress(ctx context.Context, mem memory.Memory, tokensBefore int) (*Result, error) {
	start := time.Now()
	c.state.Store(int32(StateCompressing))

	msgs, err := uncompressed(ctx, mem)
	if err != nil {
		return nil, c.fail(NewCompressionError("Compress", err))
	}
	toCompress, kept := SelectRange(msgs, c.cfg.KeepRecent)
	if len(toCompress) == 0 {
		return nil, NewCompressionError("Compress", ErrNothingToCompress).
			WithContext("uncompressed", len(msgs)).
			WithContext("keep_recent", c.cfg.KeepRecent)
	}

	previous, err := mem.CompressedSummary(ctx)
	if err != nil {
		return nil, c.fail(NewCompressionError("Compress", err))
	}

	c.logger.Info("compressing memory",
		"messages", len(toCompress),
		"kept", len(kept),
		"tokens", tokensBefore,
		"model", c.cfg.Model.Name())

	summary, err := c.summarize(ctx, previous, toCompress)
	if err != nil {
		return nil, c.fail(NewCompressionError("Summarize", err).WithContext("messages", len(toCompress)))
	}

	// A cancellation that lands after the model returned still aborts.
	if err := ctx.Err(); err != nil {
		return nil, c.fail(NewCompressionError("Commit", err))
	}

	ids := make([]string, len(toCompress))
	for i, msg := range toCompress {
		ids[i] = msg.ID
	}
	if err := commit(ctx, mem, summary, ids, previous); err != nil {
		return nil, c.fail(NewCompressionError("Commit", err))
	}

	after, err := c.cfg.Counter.Count(ctx, append([]*types.Msg{memory.SummaryMsg(summary)}, kept...))
	if err != nil {
		after = 0
		c.logger.Warn("failed to count tokens after compression", "error", err)
	}

	res := &Result{
		Compressed:   true,
		IDs:          ids,
		TokensBefore: tokensBefore,
		TokensAfter:  after,
		Summary:      summary,
		Duration:     time.Since(start),
	}

	c.statsMu.Lock()
	c.stats.Runs++
	c.stats.Compressed += len(ids)
	if after > 0 && after < tokensBefore {
		c.stats.TokensSaved += tokensBefore - after
	}
	c.stats.LastRun = time.Now()
	c.statsMu.Unlock()

	c.logger.Info("memory compressed",
		"messages", len(ids),
		"tokens_before", tokensBefore,
		"tokens_after", after,
		"duration", res.Duration)
	return res, nil
}

// summarize asks the model for a structured summary of msgs and renders it
func (c *Compressor) summarize(ctx context.Context, previous string, msgs []*types.Msg) (string, error) {
	reqMsgs := make([]*types.Msg, 0, len(msgs)+2)
	if previous != "" {
		reqMsgs = append(reqMsgs, memory.SummaryMsg(previous))
	}
	reqMsgs = append(reqMsgs, prepareForSummary(msgs)...)
	reqMsgs = append(reqMsgs, types.NewUserMsg("user", c.cfg.CompressionPrompt))

	resp, err := c.cfg.Model.Generate(ctx, &model.Request{
		System:     c.cfg.SystemPrompt,
		Messages:   reqMsgs,
		Structured: c.cfg.SummarySchema,
		MaxTokens:  c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummarizationFailed, err)
	}

	var fields map[string]any
	if err := model.DecodeStructured(resp, &fields); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummarizationFailed, err)
	}
	for _, name := range c.cfg.SummarySchema.Required {
		if _, ok := fields[name]; !ok {
			return "", fmt.Errorf("%w: structured output is missing field %q", ErrSummarizationFailed, name)
		}
	}

	summary := strings.TrimSpace(Render(c.cfg.SummaryTemplate, fields))
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", ErrSummarizationFailed)
	}
	return summary, nil
}

func (c *Compressor) fail(err *CompressionError) error {
	c.statsMu.Lock()
	c.stats.Failures++
	c.statsMu.Unlock()
	c.logger.Warn("memory compression failed", "op", err.Op, "error", err.Err)
	return err
}

// commit stores summary and marks ids compressed. Stores implementing
// memory.CompressionCommitter do both atomically; for others the previous
// summary is restored when marking fails.
func commit(ctx context.Context, mem memory.Memory, summary string, ids []string, previous string) error {
	if committer, ok := mem.(memory.CompressionCommitter); ok {
		_, err := committer.CommitCompression(ctx, summary, ids)
		return err
	}
	if err := mem.UpdateCompressedSummary(ctx, summary); err != nil {
		return err
	}
	if _, err := mem.UpdateMessagesMark(ctx, memory.Mark(memory.MarkCompressed), nil, ids); err != nil {
		// Best effort; the store has no transaction to roll back.
		restoreErr := mem.UpdateCompressedSummary(context.WithoutCancel(ctx), previous)
		return errors.Join(err, restoreErr)
	}
	return nil
}

func uncompressed(ctx context.Context, mem memory.Memory) ([]*types.Msg, error) {
	return mem.GetMemory(ctx,
		memory.WithExcludeMark(memory.MarkCompressed),
		memory.WithPrependSummary(false))
}

// IsNonFatal reports whether err is a compression failure an agent turn can
// continue past
func IsNonFatal(err error) bool {
	var cerr *CompressionError
	if !errors.As(err, &cerr) {
		return false
	}
	return !errors.Is(err, ErrInvalidConfig)
}

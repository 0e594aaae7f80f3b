package hooks

import (
	"context"

	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/logging"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/tool"
)

const previewLen = 100

// LoggingHooks logs every hook event through a structured logger
type LoggingHooks struct {
	logger logging.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger logging.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logging.OrNoop(logger)}
}

// Attach registers every logging hook on r
func (h *LoggingHooks) Attach(r *Registry) {
	r.OnBeforeReasoning(h.BeforeReasoning)
	r.OnAfterReasoning(h.AfterReasoning)
	r.OnToolCall(h.ToolCall)
	r.OnBeforeCompression(h.BeforeCompression)
	r.OnAfterCompression(h.AfterCompression)
}

func (h *LoggingHooks) BeforeReasoning(ctx context.Context, req *model.Request) error {
	h.logger.Debug("calling model", "messages", len(req.Messages), "tools", len(req.Tools))
	return nil
}

func (h *LoggingHooks) AfterReasoning(ctx context.Context, resp *model.Response) error {
	h.logger.Debug("model responded",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"tool_calls", len(resp.ToolCalls()))
	return nil
}

func (h *LoggingHooks) ToolCall(ctx context.Context, result *tool.Result) error {
	if result.Err != nil {
		h.logger.Warn("tool failed", "tool", result.ToolName, "call_id", result.CallID, "error", result.Err)
		return nil
	}
	preview := result.Output
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	h.logger.Info("tool succeeded",
		"tool", result.ToolName,
		"call_id", result.CallID,
		"duration", result.Duration,
		"output", preview)
	return nil
}

func (h *LoggingHooks) BeforeCompression(ctx context.Context, tokens int) error {
	h.logger.Info("compressing memory", "tokens", tokens)
	return nil
}

func (h *LoggingHooks) AfterCompression(ctx context.Context, result *compression.Result, err error) error {
	if err != nil {
		h.logger.Warn("memory compression failed", "error", err)
		return nil
	}
	if !result.Compressed {
		return nil
	}
	h.logger.Info("memory compressed",
		"messages", len(result.IDs),
		"tokens_before", result.TokensBefore,
		"tokens_after", result.TokensAfter,
		"reduction_pct", reduction(result))
	return nil
}

func reduction(result *compression.Result) float64 {
	if result.TokensBefore <= 0 {
		return 0
	}
	return float64(result.TokensBefore-result.TokensAfter) / float64(result.TokensBefore) * 100
}

// MetricsHooks reports numeric events to a callback
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// Attach registers every metrics hook on r
func (h *MetricsHooks) Attach(r *Registry) {
	r.OnAfterReasoning(h.AfterReasoning)
	r.OnToolCall(h.ToolCall)
	r.OnAfterCompression(h.AfterCompression)
}

// AfterReasoning records token usage
func (h *MetricsHooks) AfterReasoning(ctx context.Context, resp *model.Response) error {
	h.OnMetric("agent.tokens.input", float64(resp.Usage.InputTokens), nil)
	h.OnMetric("agent.tokens.output", float64(resp.Usage.OutputTokens), nil)
	return nil
}

// ToolCall records tool outcomes
func (h *MetricsHooks) ToolCall(ctx context.Context, result *tool.Result) error {
	tags := map[string]string{"tool": result.ToolName}
	if result.Err != nil {
		h.OnMetric("agent.tool.error", 1, tags)
	} else {
		h.OnMetric("agent.tool.success", 1, tags)
	}
	h.OnMetric("agent.tool.duration_ms", float64(result.Duration.Milliseconds()), tags)
	return nil
}

// AfterCompression records compression outcomes
func (h *MetricsHooks) AfterCompression(ctx context.Context, result *compression.Result, err error) error {
	if err != nil {
		h.OnMetric("agent.compression.error", 1, nil)
		return nil
	}
	if !result.Compressed {
		return nil
	}
	h.OnMetric("agent.compression.messages", float64(len(result.IDs)), nil)
	h.OnMetric("agent.compression.tokens_before", float64(result.TokensBefore), nil)
	h.OnMetric("agent.compression.tokens_after", float64(result.TokensAfter), nil)
	h.OnMetric("agent.compression.reduction_pct", reduction(result), nil)
	return nil
}

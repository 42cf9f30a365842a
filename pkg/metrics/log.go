package metrics

import (
	"context"
	"log/slog"
	"sort"
)

// LogHook writes each Record as a single structured log line.
type LogHook struct {
	logger *slog.Logger
	prefix string
}

// NewLogHook returns a hook that logs records at Info level. Counter names
// are prefixed with prefix, e.g. "fence.input_token_count". A nil logger
// uses slog.Default().
func NewLogHook(logger *slog.Logger, prefix string) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHook{logger: logger, prefix: prefix}
}

// Record logs r. It never fails.
func (h *LogHook) Record(ctx context.Context, r Record) error {
	attrs := []slog.Attr{
		slog.String("model", r.Model),
		slog.String("request_id", r.RequestID),
		slog.Int(h.name("input_token_count"), r.InputTokenCount),
		slog.Int(h.name("output_token_count"), r.OutputTokenCount),
		slog.Int(h.name("input_word_count"), r.InputWordCount),
		slog.Int(h.name("output_word_count"), r.OutputWordCount),
		slog.Float64(h.name("estimated_cost_usd"), r.EstimatedCostUSD),
	}
	if r.Source != "" {
		attrs = append(attrs, slog.String("source", r.Source))
	}
	if len(r.Tags) > 0 {
		keys := make([]string, 0, len(r.Tags))
		for k := range r.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tags := make([]any, 0, len(keys))
		for _, k := range keys {
			tags = append(tags, slog.String(k, r.Tags[k]))
		}
		attrs = append(attrs, slog.Group("tags", tags...))
	}

	h.logger.LogAttrs(ctx, slog.LevelInfo, h.name("invocation"), attrs...)
	return nil
}

func (h *LogHook) name(metric string) string {
	if h.prefix == "" {
		return metric
	}
	return h.prefix + "." + metric
}

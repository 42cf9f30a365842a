package metrics

import (
	"context"
	"errors"
)

// Record is the usage summary of a single invocation.
type Record struct {
	Model     string            `json:"model"`
	Source    string            `json:"source,omitempty"`
	RequestID string            `json:"request_id"`
	Tags      map[string]string `json:"tags,omitempty"`

	InputTokenCount  int `json:"input_token_count"`
	OutputTokenCount int `json:"output_token_count"`
	InputWordCount   int `json:"input_word_count"`
	OutputWordCount  int `json:"output_word_count"`

	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Hook receives a Record after each successful invocation. A returned error
// is logged by the caller and never fails the invocation.
type Hook interface {
	Record(ctx context.Context, r Record) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, r Record) error

// Record calls f(ctx, r).
func (f HookFunc) Record(ctx context.Context, r Record) error { return f(ctx, r) }

// Multi returns a Hook that delivers each Record to every hook in order.
// All hooks run even when some fail; their errors are joined.
func Multi(hooks ...Hook) Hook {
	return multiHook(hooks)
}

type multiHook []Hook

func (m multiHook) Record(ctx context.Context, r Record) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := h.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

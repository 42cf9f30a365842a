package metrics

import (
	"context"
	"sync"
)

// Totals accumulates usage across invocations of one model.
type Totals struct {
	Invocations  int     `json:"invocations"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	InputWords   int     `json:"input_words"`
	OutputWords  int     `json:"output_words"`
	CostUSD      float64 `json:"cost_usd"`
}

// Recorder is an in-memory Hook that keeps per-model totals and the most
// recent record. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	totals map[string]Totals
	last   *Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{totals: make(map[string]Totals)}
}

// Record adds r to the totals of r.Model.
func (rec *Recorder) Record(_ context.Context, r Record) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	t := rec.totals[r.Model]
	t.Invocations++
	t.InputTokens += r.InputTokenCount
	t.OutputTokens += r.OutputTokenCount
	t.InputWords += r.InputWordCount
	t.OutputWords += r.OutputWordCount
	t.CostUSD += r.EstimatedCostUSD
	rec.totals[r.Model] = t

	last := r
	rec.last = &last
	return nil
}

// Last returns the most recent record and whether one has been recorded.
func (rec *Recorder) Last() (Record, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.last == nil {
		return Record{}, false
	}
	return *rec.last, true
}

// Snapshot returns a copy of the per-model totals.
func (rec *Recorder) Snapshot() map[string]Totals {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make(map[string]Totals, len(rec.totals))
	for k, v := range rec.totals {
		out[k] = v
	}
	return out
}

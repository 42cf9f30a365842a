package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

func sampleRecord() Record {
	return Record{
		Model:            "gpt-4o-mini",
		Source:           "test",
		RequestID:        "req-1",
		Tags:             map[string]string{"team": "search", "env": "dev"},
		InputTokenCount:  10,
		OutputTokenCount: 5,
		InputWordCount:   7,
		OutputWordCount:  2,
		EstimatedCostUSD: 0.0001,
	}
}

func TestHookFunc(t *testing.T) {
	var got Record
	h := HookFunc(func(_ context.Context, r Record) error {
		got = r
		return nil
	})
	if err := h.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if got.InputTokenCount != 10 {
		t.Errorf("InputTokenCount = %d, want 10", got.InputTokenCount)
	}
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	var calls int
	failing := func(err error) Hook {
		return HookFunc(func(context.Context, Record) error {
			calls++
			return err
		})
	}

	h := Multi(failing(errA), nil, failing(nil), failing(errB))
	err := h.Record(context.Background(), sampleRecord())
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Record() error = %v, want both hook errors", err)
	}
}

func TestLogHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := NewLogHook(logger, "fence")

	if err := h.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "fence.invocation" {
		t.Errorf("msg = %v, want %q", line["msg"], "fence.invocation")
	}
	if line["fence.input_token_count"] != float64(10) {
		t.Errorf("fence.input_token_count = %v, want 10", line["fence.input_token_count"])
	}
	if line["fence.output_word_count"] != float64(2) {
		t.Errorf("fence.output_word_count = %v, want 2", line["fence.output_word_count"])
	}
	if line["source"] != "test" {
		t.Errorf("source = %v, want %q", line["source"], "test")
	}
	tags, ok := line["tags"].(map[string]any)
	if !ok || tags["team"] != "search" {
		t.Errorf("tags = %v, want team=search", line["tags"])
	}
}

func TestLogHook_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHook(slog.New(slog.NewJSONHandler(&buf, nil)), "")
	h.Record(context.Background(), Record{Model: "gpt-4", InputTokenCount: 3})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if line["input_token_count"] != float64(3) {
		t.Errorf("input_token_count = %v, want 3", line["input_token_count"])
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	if _, ok := rec.Last(); ok {
		t.Error("Last() ok = true on empty recorder, want false")
	}

	r := sampleRecord()
	rec.Record(context.Background(), r)
	rec.Record(context.Background(), r)
	other := r
	other.Model = "gpt-4"
	other.RequestID = "req-2"
	rec.Record(context.Background(), other)

	snap := rec.Snapshot()
	mini := snap["gpt-4o-mini"]
	if mini.Invocations != 2 {
		t.Errorf("Invocations = %d, want 2", mini.Invocations)
	}
	if mini.InputTokens != 20 || mini.OutputTokens != 10 {
		t.Errorf("tokens = %d/%d, want 20/10", mini.InputTokens, mini.OutputTokens)
	}
	if mini.InputWords != 14 || mini.OutputWords != 4 {
		t.Errorf("words = %d/%d, want 14/4", mini.InputWords, mini.OutputWords)
	}
	if snap["gpt-4"].Invocations != 1 {
		t.Errorf("gpt-4 Invocations = %d, want 1", snap["gpt-4"].Invocations)
	}

	last, ok := rec.Last()
	if !ok || last.RequestID != "req-2" {
		t.Errorf("Last() = %+v, %v; want req-2", last, ok)
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(context.Background(), Record{Model: "m", InputTokenCount: 1})
		}()
	}
	wg.Wait()

	if got := rec.Snapshot()["m"].InputTokens; got != 50 {
		t.Errorf("InputTokens = %d, want 50", got)
	}
}

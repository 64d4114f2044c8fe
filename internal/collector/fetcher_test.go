package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// flakySource fails until the configured attempt.
type flakySource struct {
	succeedOn int
	calls     int
}

func (f *flakySource) Name() string { return "flaky" }
func (f *flakySource) Close() error { return nil }
func (f *flakySource) FetchRanking(ctx context.Context) ([]core.RawSignal, error) {
	f.calls++
	if f.succeedOn > 0 && f.calls >= f.succeedOn {
		return []core.RawSignal{
			{Code: "6072", ChangeRate: core.Some(32.3), Volume: 120000},
		}, nil
	}
	return nil, errors.New("connection reset")
}

type countingRecorder struct {
	outcomes []string
}

func (c *countingRecorder) RecordFetchAttempt(source, outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}

func newTestFetcher(src Source, attempts int, rec AttemptRecorder) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(src, RetryPolicy{Attempts: attempts, Delay: 2 * time.Second}, nil, rec)
	var slept []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestFetcher_SucceedsOnThirdAttempt(t *testing.T) {
	src := &flakySource{succeedOn: 3}
	rec := &countingRecorder{}
	f, slept := newTestFetcher(src, 3, rec)

	signals, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected success on attempt 3, got %v", err)
	}
	if len(signals) != 1 || signals[0].Code != "6072" {
		t.Errorf("expected attempt-3 signals, got %+v", signals)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 calls, got %d", src.calls)
	}
	// Constant delay between attempts
	if len(*slept) != 2 || (*slept)[0] != 2*time.Second || (*slept)[1] != 2*time.Second {
		t.Errorf("expected two constant 2s delays, got %v", *slept)
	}
	if len(rec.outcomes) != 3 || rec.outcomes[2] != "success" {
		t.Errorf("unexpected recorded outcomes: %v", rec.outcomes)
	}
}

func TestFetcher_ExhaustsAttempts(t *testing.T) {
	src := &flakySource{}
	f, slept := newTestFetcher(src, 3, nil)

	_, err := f.Fetch(context.Background())
	if !errors.Is(err, core.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 calls, got %d", src.calls)
	}
	// No delay after the final attempt
	if len(*slept) != 2 {
		t.Errorf("expected 2 delays, got %d", len(*slept))
	}
}

func TestFetcher_ContextCanceledDuringDelay(t *testing.T) {
	src := &flakySource{}
	f := NewFetcher(src, RetryPolicy{Attempts: 3, Delay: time.Hour}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx)
	if !errors.Is(err, core.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", src.calls)
	}
}

func TestFetcher_MinimumOneAttempt(t *testing.T) {
	src := &flakySource{succeedOn: 1}
	f := NewFetcher(src, RetryPolicy{}, nil, nil)
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

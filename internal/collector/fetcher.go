package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"go.uber.org/zap"
)

// RetryPolicy is a fixed number of attempts with a constant delay between
// them. There is no exponential escalation.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// AttemptRecorder observes individual fetch attempts.
type AttemptRecorder interface {
	RecordFetchAttempt(source, outcome string)
}

// Fetcher wraps a Source with the retry policy.
type Fetcher struct {
	source   Source
	policy   RetryPolicy
	logger   *zap.Logger
	recorder AttemptRecorder
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a retrying fetcher
func NewFetcher(source Source, policy RetryPolicy, logger *zap.Logger, recorder AttemptRecorder) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Fetcher{
		source:   source,
		policy:   policy,
		logger:   logger,
		recorder: recorder,
		sleep:    sleepContext,
	}
}

// Fetch runs up to policy.Attempts attempts and returns the first
// successful result. After the last failure it returns ErrFetchFailed
// wrapping that failure.
func (f *Fetcher) Fetch(ctx context.Context) ([]core.RawSignal, error) {
	var lastErr error

	for attempt := 1; attempt <= f.policy.Attempts; attempt++ {
		signals, err := f.source.FetchRanking(ctx)
		if err == nil {
			f.record("success")
			f.logger.Info("fetched ranking",
				zap.String("source", f.source.Name()),
				zap.Int("attempt", attempt),
				zap.Int("rows", len(signals)))
			f.checkSigns(signals)
			return signals, nil
		}

		lastErr = err
		f.record("failure")
		f.logger.Warn("ranking fetch attempt failed",
			zap.String("source", f.source.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.policy.Attempts),
			zap.Error(err))

		if attempt == f.policy.Attempts {
			break
		}
		if err := f.sleep(ctx, f.policy.Delay); err != nil {
			lastErr = err
			break
		}
	}

	f.logger.Error("max retry count reached, giving up", zap.String("source", f.source.Name()))
	return nil, core.WrapError(core.ErrFetchFailed,
		fmt.Errorf("%s: %w", f.source.Name(), lastErr))
}

func (f *Fetcher) checkSigns(signals []core.RawSignal) {
	for _, s := range signals {
		if !s.Consistent() {
			f.logger.Warn("change amount and rate disagree in sign",
				zap.String("code", s.Code),
				zap.Float64("change_amount", s.ChangeAmount.Value),
				zap.Float64("change_rate", s.ChangeRate.Value))
		}
	}
}

func (f *Fetcher) record(outcome string) {
	if f.recorder != nil {
		f.recorder.RecordFetchAttempt(f.source.Name(), outcome)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

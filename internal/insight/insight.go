// Package insight produces the earnings deep-dive for symbols that carry an
// earnings disclosure.
package insight

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm"
)

// Recorder counts LLM requests by outcome.
type Recorder interface {
	RecordLLMRequest(provider, outcome string)
}

// Request outcomes reported to the Recorder.
const (
	OutcomeOK    = "ok"
	OutcomeText  = "text"
	OutcomeError = "error"
)

// Config holds the per-request model budget.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Analyzer explains an earnings disclosure with an LLM when one is
// configured and with keyword rules otherwise.
type Analyzer struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
}

// New creates an Analyzer. provider may be nil.
func New(provider llm.Provider, cfg Config, logger *zap.Logger, recorder Recorder) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	return &Analyzer{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
	}
}

// Enabled reports whether an LLM provider is configured.
func (a *Analyzer) Enabled() bool {
	return a.provider != nil
}

// AnalyzeDetail never fails: transport errors degrade to the rules result and
// unparsable answers degrade to the raw text.
func (a *Analyzer) AnalyzeDetail(ctx context.Context, title string, news []core.NewsItem, sig core.RawSignal) core.EarningsDetail {
	if a.provider == nil {
		return Rules(title, news)
	}

	detail, err := a.ask(ctx, title, news, sig)
	if err != nil {
		a.logger.Warn("earnings insight degraded to rules",
			zap.String("code", sig.Code),
			zap.String("provider", a.provider.Name()),
			zap.Error(core.WrapError(core.ErrAnalysisDegraded, err)),
		)
		a.record(OutcomeError)
		return Rules(title, news)
	}
	return detail
}

func (a *Analyzer) ask(ctx context.Context, title string, news []core.NewsItem, sig core.RawSignal) (core.EarningsDetail, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	req := llm.UserPrompt(systemPrompt, buildPrompt(title, news, sig))
	req.MaxTokens = a.cfg.MaxTokens
	req.Temperature = a.cfg.Temperature
	req.JSONMode = true

	resp, err := a.provider.Chat(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.EarningsDetail{}, core.WrapError(core.ErrLLMTimeout, err)
		}
		return core.EarningsDetail{}, core.WrapError(core.ErrLLMFailed, err)
	}

	var answer struct {
		Reason  string   `json:"earnings_reason"`
		Factors []string `json:"key_factors"`
		Outlook string   `json:"outlook"`
	}
	if err := llm.DecodeJSON(resp.Content, &answer); err != nil {
		a.logger.Debug("earnings insight returned text", zap.String("code", sig.Code))
		a.record(OutcomeText)
		return core.EarningsDetail{
			Reason:  truncate(resp.Content, textReasonLimit),
			Factors: []string{},
			Source:  core.DetailSourceLLMText,
		}, nil
	}

	a.record(OutcomeOK)
	if answer.Reason == "" {
		answer.Reason = Rules(title, news).Reason
	}
	return core.EarningsDetail{
		Reason:  answer.Reason,
		Factors: capFactors(answer.Factors),
		Outlook: answer.Outlook,
		Source:  core.DetailSourceLLM,
	}, nil
}

func (a *Analyzer) record(outcome string) {
	if a.recorder != nil {
		a.recorder.RecordLLMRequest(a.provider.Name(), outcome)
	}
}

func capFactors(factors []string) []string {
	out := make([]string, 0, maxFactors)
	for _, f := range factors {
		if f == "" {
			continue
		}
		out = append(out, f)
		if len(out) == maxFactors {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

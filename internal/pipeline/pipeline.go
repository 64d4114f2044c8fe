// Package pipeline sequences one ranking run: fetch, filter, enrich,
// analyze, dispatch, persist and archive.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/analysis"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/ranking"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/report"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/archive"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/history"
)

// Stage names used in logs and metrics.
const (
	StageFetch    = "fetch"
	StageFilter   = "filter"
	StageEnrich   = "enrich"
	StageAnalyze  = "analyze"
	StageCharts   = "charts"
	StageDispatch = "dispatch"
	StagePersist  = "persist"
	StageArchive  = "archive"
)

// Error notices sent for upstream failures.
const (
	MsgFetchFailed = "Failed to fetch PTS ranking data"
)

var en = message.NewPrinter(language.English)

// FilterEmptyMessage is the notice sent when no row meets the volume
// threshold.
func FilterEmptyMessage(minVolume int64) string {
	return en.Sprintf("No stocks found with volume >= %d", minVolume)
}

// RankingFetcher acquires the ranking table. collector.Fetcher implements it.
type RankingFetcher interface {
	Fetch(ctx context.Context) ([]core.RawSignal, error)
}

// SignalEnricher attaches per-symbol context. enrich.Enricher implements it.
type SignalEnricher interface {
	Enrich(ctx context.Context, signals []core.RawSignal) []core.EnrichedSignal
}

// EarningsAnalyzer explains an earnings disclosure. insight.Analyzer
// implements it.
type EarningsAnalyzer interface {
	AnalyzeDetail(ctx context.Context, title string, news []core.NewsItem, sig core.RawSignal) core.EarningsDetail
}

// Reporter delivers the report. report.Dispatcher implements it.
type Reporter interface {
	Dispatch(ctx context.Context, records []core.ReportRecord, images map[string][]byte) report.Result
	SendSummary(ctx context.Context, stats core.RunStats) error
	SendError(ctx context.Context, msg string) error
}

// ChartBuilder renders per-symbol images. chart.Service implements it.
type ChartBuilder interface {
	Build(ctx context.Context, signals []core.RawSignal) map[string][]byte
	Prune(ctx context.Context) (int, error)
}

// Observer receives run metrics. metrics.Registry implements it.
type Observer interface {
	RecordRun(ok bool)
	ObserveStage(stage string, d time.Duration)
	SetSignalsReported(n int)
}

// Options are the per-run thresholds.
type Options struct {
	MinVolume int64
	TopN      int
	Retention time.Duration // history older than this is pruned; zero keeps all
}

// Deps are the collaborators of a run. Fetcher, Enricher and Reporter are
// required; the rest may be nil.
type Deps struct {
	Fetcher  RankingFetcher
	Enricher SignalEnricher
	Insight  EarningsAnalyzer
	Reporter Reporter
	Store    history.Store
	Archive  archive.Storage
	Charts   ChartBuilder
	Observer Observer
	Closers  []io.Closer
}

// Pipeline runs once. Run releases the registered closers before it
// returns; Close may also be called directly and is idempotent. The history
// store outlives the pipeline and is closed by its owner.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error

	now   func() time.Time
	newID func() string
}

// New creates a pipeline.
func New(deps Deps, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Run executes the stage sequence and reports overall success: true only
// when every report message was delivered.
func (p *Pipeline) Run(ctx context.Context) (ok bool) {
	runID := p.newID()
	log := p.logger.With(zap.String("run_id", runID))
	started := p.now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			p.notifyError(ctx, log, fmt.Sprintf("Unexpected error: %v", r))
			ok = false
		}
		if err := p.Close(); err != nil {
			log.Warn("cleanup reported errors", zap.Error(err))
		}
		if p.deps.Observer != nil {
			p.deps.Observer.RecordRun(ok)
		}
		log.Info("pipeline finished",
			zap.Bool("ok", ok),
			zap.Duration("elapsed", p.now().Sub(started)))
	}()

	log.Info("pipeline started",
		zap.Int64("min_volume", p.opts.MinVolume),
		zap.Int("top_n", p.opts.TopN))

	// Fetch
	t := p.now()
	raw, err := p.deps.Fetcher.Fetch(ctx)
	p.observe(StageFetch, t)
	if err != nil || len(raw) == 0 {
		if err == nil {
			err = core.WrapError(core.ErrFetchFailed, errors.New("empty ranking"))
		}
		log.Error("fetch failed", zap.Error(err))
		p.notifyError(ctx, log, MsgFetchFailed)
		return false
	}

	// Filter
	t = p.now()
	ranked := ranking.FilterAndRank(raw, p.opts.MinVolume, p.opts.TopN)
	p.observe(StageFilter, t)
	if len(ranked) == 0 {
		log.Warn("no signal passed the filter",
			zap.Error(core.ErrFilterEmpty),
			zap.Int("fetched", len(raw)))
		p.notifyError(ctx, log, FilterEmptyMessage(p.opts.MinVolume))
		return false
	}
	log.Info("selected top signals", zap.Int("count", len(ranked)))

	// Enrich
	t = p.now()
	enriched := p.deps.Enricher.Enrich(ctx, ranked)
	p.observe(StageEnrich, t)

	// Analyze
	t = p.now()
	ts := p.now()
	records := make([]core.ReportRecord, len(enriched))
	for i, es := range enriched {
		records[i] = core.ReportRecord{
			RunID:     runID,
			Timestamp: ts,
			Rank:      i + 1,
			Signal:    es,
			Analysis:  p.analyze(ctx, es),
		}
	}
	p.observe(StageAnalyze, t)

	// Charts
	var images map[string][]byte
	if p.deps.Charts != nil {
		t = p.now()
		images = p.deps.Charts.Build(ctx, ranked)
		p.observe(StageCharts, t)
	}

	// Dispatch
	t = p.now()
	result := p.deps.Reporter.Dispatch(ctx, records, images)
	p.observe(StageDispatch, t)
	if p.deps.Observer != nil {
		p.deps.Observer.SetSignalsReported(result.Delivered)
	}
	if result.OK() {
		if err := p.deps.Reporter.SendSummary(ctx, ranking.Stats(ranked)); err != nil {
			log.Warn("summary not delivered", zap.Error(err))
		}
	} else {
		log.Warn("dispatch incomplete",
			zap.Error(result.Err()),
			zap.Strings("failed", result.Failed))
	}

	p.persist(ctx, log, records)
	p.snapshot(ctx, log, runID, ts, records)

	if p.deps.Charts != nil {
		if _, err := p.deps.Charts.Prune(ctx); err != nil {
			log.Warn("chart cleanup failed", zap.Error(err))
		}
	}

	return result.OK()
}

// analyze runs the keyword analysis and, when the signal carries an
// earnings disclosure, the earnings deep-dive.
func (p *Pipeline) analyze(ctx context.Context, es core.EnrichedSignal) core.AnalysisResult {
	res := analysis.Analyze(es)
	if p.deps.Insight == nil {
		return res
	}
	if d, ok := es.EarningsDisclosure(); ok {
		detail := p.deps.Insight.AnalyzeDetail(ctx, d.Title, es.News, es.RawSignal)
		res.Earnings = &detail
	}
	return res
}

func (p *Pipeline) persist(ctx context.Context, log *zap.Logger, records []core.ReportRecord) {
	if p.deps.Store == nil {
		return
	}
	t := p.now()
	defer p.observe(StagePersist, t)

	if err := p.deps.Store.Save(ctx, records...); err != nil {
		log.Error("persist failed", zap.Error(err))
		return
	}
	if p.opts.Retention <= 0 {
		return
	}
	n, err := p.deps.Store.Prune(ctx, p.now().Add(-p.opts.Retention))
	if err != nil {
		log.Warn("history prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("pruned old history", zap.Int64("rows", n))
	}
}

func (p *Pipeline) snapshot(ctx context.Context, log *zap.Logger, runID string, ts time.Time, records []core.ReportRecord) {
	if p.deps.Archive == nil {
		return
	}
	t := p.now()
	defer p.observe(StageArchive, t)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Error("snapshot encode failed", zap.Error(err))
		return
	}
	path := archive.SnapshotPath(ts, runID)
	if err := p.deps.Archive.Write(ctx, path, data); err != nil {
		log.Error("snapshot write failed", zap.String("path", path), zap.Error(err))
		return
	}
	log.Debug("snapshot archived", zap.String("path", path))
}

func (p *Pipeline) notifyError(ctx context.Context, log *zap.Logger, msg string) {
	if p.deps.Reporter == nil {
		return
	}
	if err := p.deps.Reporter.SendError(ctx, msg); err != nil {
		log.Error("error notification failed", zap.Error(err))
	}
}

func (p *Pipeline) observe(stage string, start time.Time) {
	if p.deps.Observer != nil {
		p.deps.Observer.ObserveStage(stage, p.now().Sub(start))
	}
}

// Close releases the registered resources once. Later calls return the
// first call's result.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		for _, c := range p.deps.Closers {
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
		p.logger.Debug("pipeline resources released", zap.Int("closers", len(p.deps.Closers)))
	})
	return p.closeErr
}

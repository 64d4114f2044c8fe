// Package app wires configuration into runnable pipelines. It owns the
// long-lived collaborators (metrics, history, archive, cache, LLM provider,
// notifiers) and builds a fresh pipeline with its own network sessions for
// every run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/cache"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/chart"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/collector"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/collector/buffett"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/collector/kabutan"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	pctx "github.com/Ken-helpme/pts-ranking-reporter/internal/context"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/enrich"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/insight"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm"
	llmfactory "github.com/Ken-helpme/pts-ranking-reporter/internal/llm/factory"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/metrics"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
	notifierfactory "github.com/Ken-helpme/pts-ranking-reporter/internal/notifier/factory"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/pipeline"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/report"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/session"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/archive"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/history"
)

// Options adjust how the app is assembled.
type Options struct {
	// DryRun replaces the configured notifiers with a console writer.
	DryRun bool
	Out    io.Writer
}

// App is the main application orchestrator.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	location *time.Location

	metrics   *metrics.Registry
	sources   *collector.Registry
	notifiers *notifier.Registry
	history   history.Store
	archive   archive.Storage
	cache     cache.Store
	provider  llm.Provider
}

// New assembles the long-lived collaborators from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.Local
	if cfg.Schedule.Timezone != "" {
		l, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return nil, fmt.Errorf("loading timezone: %w", err)
		}
		loc = l
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		metrics:  metrics.NewRegistry(),
		sources:  collector.NewRegistry(),
	}
	a.sources.Register(kabutan.Name, kabutan.Factory(logger))
	a.sources.Register(buffett.Name, buffett.Factory(logger))

	var err error
	if opts.DryRun {
		a.notifiers = notifierfactory.DryRun(opts.Out)
	} else if a.notifiers, err = notifierfactory.Build(cfg.Notifiers); err != nil {
		return nil, fmt.Errorf("building notifiers: %w", err)
	}
	if a.notifiers.Len() == 0 {
		logger.Warn("no notifier enabled; reports will fail to deliver")
	}

	if a.cache, err = cache.New(cfg.Cache); err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	if a.provider, err = llmfactory.New(ctx, cfg.LLM); err != nil {
		a.Close()
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}
	if a.archive, err = archive.New(cfg.Storage.Cold); err != nil {
		a.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	if a.history, err = history.Open(ctx, cfg.Storage.Hot, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	provider := "none"
	if a.provider != nil {
		provider = a.provider.Name()
	}
	logger.Info("app assembled",
		zap.String("source", cfg.Ranking.Source),
		zap.Int("notifiers", a.notifiers.Len()),
		zap.String("llm", provider),
		zap.String("archive", cfg.Storage.Cold.Type),
		zap.Bool("postgres", cfg.Storage.Hot.DSN != ""),
	)
	return a, nil
}

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// History returns the report history store.
func (a *App) History() history.Store { return a.history }

// Location returns the report timezone.
func (a *App) Location() *time.Location { return a.location }

// Pipeline builds a single-use pipeline. Network sessions created here are
// released when the pipeline's Run returns.
func (a *App) Pipeline() (*pipeline.Pipeline, error) {
	cfg := a.cfg

	// One limiter set per run paces the ranking fetch and the context
	// pages against the same origin.
	limiters := session.NewLimiters(cfg.Enrichment.RequestDelay)
	source, err := a.sources.Create(cfg.Ranking.Source, collector.Config{
		URL:      cfg.Ranking.URL,
		Timeout:  cfg.Ranking.Timeout,
		Limiters: limiters,
	})
	if err != nil {
		return nil, err
	}
	fetcher := collector.NewFetcher(source, collector.RetryPolicy{
		Attempts: cfg.Ranking.RetryCount,
		Delay:    cfg.Ranking.RetryDelay,
	}, a.logger, a.metrics)

	pages, disclosures := a.contextProviders(limiters)
	var profiles pctx.ProfileProvider = pages
	if a.cache != nil {
		profiles = pctx.NewCachedProfileProvider(pages, a.cache, cfg.Enrichment.ProfileTTL, a.logger)
	}
	enricher := enrich.New(pages, profiles, disclosures, enrich.Config{
		MaxNews:        cfg.Enrichment.MaxNews,
		MaxDisclosures: cfg.Enrichment.MaxDisclosures,
		Workers:        cfg.Enrichment.Workers,
	}, a.logger, a.metrics)

	deps := pipeline.Deps{
		Fetcher:  fetcher,
		Enricher: enricher,
		Insight:  a.insight(),
		Reporter: report.NewDispatcher(a.notifiers, report.Config{
			MinVolume: cfg.Ranking.MinVolume,
			Location:  a.location,
		}, a.logger, a.metrics),
		Store:    a.history,
		Archive:  a.archive,
		Observer: a.metrics,
		Closers:  []io.Closer{source, pages, disclosures},
	}
	if cfg.Chart.Enabled {
		deps.Charts = chart.NewService(cfg.Chart, a.archive, a.logger)
	}

	return pipeline.New(deps, pipeline.Options{
		MinVolume: cfg.Ranking.MinVolume,
		TopN:      cfg.Ranking.TopN,
		Retention: time.Duration(cfg.Storage.Hot.RetentionDays) * 24 * time.Hour,
	}, a.logger), nil
}

// RunOnce builds and runs one pipeline.
func (a *App) RunOnce(ctx context.Context) bool {
	p, err := a.Pipeline()
	if err != nil {
		a.logger.Error("building pipeline failed", zap.Error(err))
		a.metrics.RecordRun(false)
		return false
	}
	return p.Run(ctx)
}

// Reanalyze revisits the last days days of history.
func (a *App) Reanalyze(ctx context.Context, days int) (pipeline.ReanalyzeResult, error) {
	limiters := session.NewLimiters(a.cfg.Enrichment.RequestDelay)
	disclosures := pctx.NewKabutanDisclosures(a.kabutanConfig(limiters))
	defer disclosures.Close()

	r := pipeline.NewReanalyzer(a.history, disclosures, a.insight(),
		a.cfg.Enrichment.MaxDisclosures, a.logger)
	return r.Run(ctx, days)
}

func (a *App) contextProviders(limiters *session.Limiters) (*pctx.Kabutan, *pctx.KabutanDisclosures) {
	kcfg := a.kabutanConfig(limiters)
	return pctx.NewKabutan(kcfg), pctx.NewKabutanDisclosures(kcfg)
}

func (a *App) kabutanConfig(limiters *session.Limiters) pctx.KabutanConfig {
	cfg := a.cfg.Enrichment
	return pctx.KabutanConfig{
		BaseURL: cfg.BaseURL,
		Logger:  a.logger,
		Session: []session.Option{
			session.WithTimeout(cfg.Timeout),
			session.WithLimiters(limiters),
		},
	}
}

func (a *App) insight() *insight.Analyzer {
	return insight.New(a.provider, insight.Config{
		MaxTokens:   a.cfg.Insight.MaxTokens,
		Temperature: a.cfg.Insight.Temperature,
		Timeout:     a.cfg.Insight.Timeout,
	}, a.logger, a.metrics)
}

// Close releases the long-lived collaborators.
func (a *App) Close() error {
	var errs []error
	if a.history != nil {
		a.history.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Package enrich attaches news, company and disclosure context to ranked
// signals.
package enrich

import (
	"context"
	"sync"

	pctx "github.com/Ken-helpme/pts-ranking-reporter/internal/context"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"go.uber.org/zap"
)

// Sub-fetch names used in logs and metrics.
const (
	PartNews        = "news"
	PartProfile     = "profile"
	PartDisclosures = "disclosures"
)

// GapRecorder observes failed sub-fetches.
type GapRecorder interface {
	RecordEnrichmentGap(part string)
}

// Config bounds the enrichment work.
type Config struct {
	MaxNews        int
	MaxDisclosures int
	Workers        int // values above 1 enrich symbols concurrently
}

// Enricher runs the per-symbol sub-fetches. A failed sub-fetch leaves an
// empty value and never affects the other sub-fetches or symbols.
type Enricher struct {
	news        pctx.NewsProvider
	profiles    pctx.ProfileProvider
	disclosures pctx.DisclosureProvider
	cfg         Config
	logger      *zap.Logger
	recorder    GapRecorder
}

// New creates an enricher. Any provider may be nil to skip that part.
func New(news pctx.NewsProvider, profiles pctx.ProfileProvider, disclosures pctx.DisclosureProvider, cfg Config, logger *zap.Logger, recorder GapRecorder) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Enricher{
		news:        news,
		profiles:    profiles,
		disclosures: disclosures,
		cfg:         cfg,
		logger:      logger,
		recorder:    recorder,
	}
}

// Enrich returns one EnrichedSignal per input, in input order.
func (e *Enricher) Enrich(ctx context.Context, signals []core.RawSignal) []core.EnrichedSignal {
	out := make([]core.EnrichedSignal, len(signals))

	if e.cfg.Workers == 1 || len(signals) < 2 {
		for i, sig := range signals {
			out[i] = e.EnrichOne(ctx, sig)
		}
		return out
	}

	// Results are written by index, so rank order survives the pool.
	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	for i, sig := range signals {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sig core.RawSignal) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = e.EnrichOne(ctx, sig)
		}(i, sig)
	}
	wg.Wait()
	return out
}

// EnrichOne enriches a single signal.
func (e *Enricher) EnrichOne(ctx context.Context, sig core.RawSignal) core.EnrichedSignal {
	es := core.EnrichedSignal{RawSignal: sig}
	log := e.logger.With(zap.String("code", sig.Code))

	if e.news != nil {
		news, err := e.news.FetchNews(ctx, sig.Code, e.cfg.MaxNews)
		if err != nil {
			e.gap(log, PartNews, err)
		} else {
			es.News = news
		}
	}

	if e.profiles != nil {
		profile, err := e.profiles.FetchProfile(ctx, sig.Code)
		if err != nil {
			e.gap(log, PartProfile, err)
		} else {
			es.Company = profile
		}
	}
	if es.Name == "" {
		es.Name = es.Company.Name
	}
	if es.Company.Industry == "" {
		es.Company.Industry = sig.Industry
	}
	if es.Company.Market == "" {
		es.Company.Market = sig.Market
	}

	if e.disclosures != nil {
		disclosures, err := e.disclosures.FetchDisclosures(ctx, sig.Code, e.cfg.MaxDisclosures)
		if err != nil {
			e.gap(log, PartDisclosures, err)
		} else {
			es.Disclosures = ClassifyAll(disclosures)
		}
	}
	if d, ok := es.EarningsDisclosure(); ok {
		es.EarningsSummary = Summarize(d)
	}

	log.Debug("enriched signal",
		zap.String("name", es.Name),
		zap.Int("news", len(es.News)),
		zap.Int("disclosures", len(es.Disclosures)),
		zap.Bool("earnings", es.EarningsSummary != ""))

	return es
}

// ClassifyAll returns a copy of ds with every Kind set.
func ClassifyAll(ds []core.Disclosure) []core.Disclosure {
	out := make([]core.Disclosure, len(ds))
	for i, d := range ds {
		d.Kind = Classify(d.Title)
		out[i] = d
	}
	return out
}

func (e *Enricher) gap(log *zap.Logger, part string, err error) {
	log.Warn("enrichment gap",
		zap.String("part", part),
		zap.Error(core.WrapError(core.ErrEnrichmentGap, err)))
	if e.recorder != nil {
		e.recorder.RecordEnrichmentGap(part)
	}
}

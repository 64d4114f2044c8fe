package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/analysis"
	pctx "github.com/Ken-helpme/pts-ranking-reporter/internal/context"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/enrich"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/history"
)

const (
	earningsNewsTag    = "【決算】"
	reanalysisSource   = "開示情報（再分析）"
	defaultDisclosures = 5
)

// ReanalyzeResult tallies one reanalysis pass.
type ReanalyzeResult struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// Reanalyzer revisits stored records that have no earnings detail yet. It
// refetches disclosures, runs the earnings deep-dive when one is found,
// re-runs the keyword analysis and writes the result back.
type Reanalyzer struct {
	store          history.Store
	disclosures    pctx.DisclosureProvider
	insight        EarningsAnalyzer
	maxDisclosures int
	logger         *zap.Logger
	now            func() time.Time
}

// NewReanalyzer creates a reanalyzer. insight may be nil to only refresh the
// keyword analysis.
func NewReanalyzer(store history.Store, disclosures pctx.DisclosureProvider, insight EarningsAnalyzer, maxDisclosures int, logger *zap.Logger) *Reanalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDisclosures <= 0 {
		maxDisclosures = defaultDisclosures
	}
	return &Reanalyzer{
		store:          store,
		disclosures:    disclosures,
		insight:        insight,
		maxDisclosures: maxDisclosures,
		logger:         logger,
		now:            time.Now,
	}
}

// Run reanalyzes the records of the last days days. Per-record failures are
// counted and logged; only a failed history query aborts the pass.
func (r *Reanalyzer) Run(ctx context.Context, days int) (ReanalyzeResult, error) {
	var res ReanalyzeResult
	if r.store == nil {
		return res, errors.New("reanalysis requires a history store")
	}

	from := r.now().AddDate(0, 0, -days)
	records, err := r.store.Range(ctx, history.Query{From: from})
	if err != nil {
		return res, err
	}
	r.logger.Info("reanalysis started", zap.Int("days", days), zap.Int("records", len(records)))

	for _, rec := range records {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log := r.logger.With(
			zap.String("code", rec.Signal.Code),
			zap.Time("timestamp", rec.Timestamp))

		if rec.Analysis.Earnings != nil {
			log.Debug("already has earnings detail")
			res.Skipped++
			continue
		}

		news, result, err := r.reanalyze(ctx, rec)
		if err != nil {
			log.Warn("reanalysis failed", zap.Error(err))
			res.Failed++
			continue
		}
		if err := r.store.UpdateAnalysis(ctx, rec.Signal.Code, rec.Timestamp, news, result); err != nil {
			log.Warn("reanalysis update failed", zap.Error(err))
			res.Failed++
			continue
		}
		log.Info("reanalyzed", zap.Bool("earnings", result.Earnings != nil))
		res.Analyzed++
	}

	r.logger.Info("reanalysis finished",
		zap.Int("analyzed", res.Analyzed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (r *Reanalyzer) reanalyze(ctx context.Context, rec core.ReportRecord) ([]core.NewsItem, core.AnalysisResult, error) {
	es := rec.Signal
	news := append([]core.NewsItem(nil), es.News...)

	var detail *core.EarningsDetail
	if r.disclosures != nil {
		ds, err := r.disclosures.FetchDisclosures(ctx, es.Code, r.maxDisclosures)
		if err != nil {
			return nil, core.AnalysisResult{}, core.WrapError(core.ErrEnrichmentGap, err)
		}
		es.Disclosures = enrich.ClassifyAll(ds)

		if d, ok := es.EarningsDisclosure(); ok && r.insight != nil {
			summary := enrich.Summarize(d)
			es.EarningsSummary = summary

			got := r.insight.AnalyzeDetail(ctx, d.Title, news, es.RawSignal)
			detail = &got
			if got.Reason != "" {
				news = append([]core.NewsItem{{
					Title:  earningsNewsTag + summary + " - " + got.Reason,
					Date:   d.Date,
					URL:    d.URL,
					Source: reanalysisSource,
				}}, news...)
			}
		}
	}

	es.News = news
	result := analysis.Analyze(es)
	result.Earnings = detail
	return news, result, nil
}

// Package chart renders the per-symbol price images attached to report
// messages and keeps their archived copies bounded in age.
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/archive"
)

// ErrNoData is returned when a signal has neither a previous close nor a
// PTS price.
var ErrNoData = errors.New("chart: no price data")

// Render draws a previous-close vs PTS-price bar chart as PNG.
func Render(sig core.RawSignal, width, height int) ([]byte, error) {
	var bars []chart.Value
	if sig.PrevClose.Valid {
		bars = append(bars, chart.Value{Label: "Close", Value: sig.PrevClose.Value})
	}
	if sig.Price.Valid {
		bars = append(bars, chart.Value{Label: "PTS", Value: sig.Price.Value})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	top := 0.0
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	if top <= 0 {
		return nil, ErrNoData
	}

	title := sig.Code
	if sig.ChangeRate.Valid {
		title = fmt.Sprintf("%s  %+.2f%%", sig.Code, sig.ChangeRate.Value)
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    width,
		Height:   height,
		BarWidth: width / 4,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", sig.Code, err)
	}
	return buf.Bytes(), nil
}

// Service renders charts for a batch, archives them and prunes stale ones.
type Service struct {
	width   int
	height  int
	maxAge  time.Duration
	archive archive.Storage
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a chart service. store may be nil, in which case images
// are only returned, never archived.
func NewService(cfg config.ChartConfig, store archive.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		width:   cfg.Width,
		height:  cfg.Height,
		maxAge:  cfg.MaxAge,
		archive: store,
		logger:  logger,
		now:     time.Now,
	}
}

// Build renders one image per signal keyed by code. A signal whose chart
// cannot be drawn is skipped; the report goes out without its image.
func (s *Service) Build(ctx context.Context, signals []core.RawSignal) map[string][]byte {
	images := make(map[string][]byte, len(signals))
	for _, sig := range signals {
		if ctx.Err() != nil {
			break
		}
		img, err := Render(sig, s.width, s.height)
		if err != nil {
			s.logger.Debug("chart skipped", zap.String("code", sig.Code), zap.Error(err))
			continue
		}
		images[sig.Code] = img

		if s.archive == nil {
			continue
		}
		if err := s.archive.Write(ctx, archive.ChartPath(sig.Code), img); err != nil {
			s.logger.Warn("chart archive failed", zap.String("code", sig.Code), zap.Error(err))
		}
	}
	return images
}

// Prune removes archived charts older than the configured max age.
func (s *Service) Prune(ctx context.Context) (int, error) {
	if s.archive == nil || s.maxAge <= 0 {
		return 0, nil
	}
	n, err := archive.Prune(ctx, s.archive, archive.ChartsPrefix, s.now().Add(-s.maxAge))
	if n > 0 {
		s.logger.Info("pruned old charts", zap.Int("count", n))
	}
	return n, err
}

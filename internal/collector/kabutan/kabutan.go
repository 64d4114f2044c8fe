// Package kabutan reads the kabutan night-session (PTS) price increase ranking.
package kabutan

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/collector"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/session"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// Name is the registry name of this source.
	Name = "kabutan"

	// RankingURL is the night PTS price increase ranking.
	RankingURL = "https://kabutan.jp/warning/pts_night_price_increase"

	// minColumns covers code through change rate. Volume is optional.
	minColumns = 8
)

// Column positions in the ranking table.
const (
	colCode         = 0
	colMarket       = 1
	colPrevClose    = 4
	colPrice        = 5
	colChangeAmount = 6
	colChangeRate   = 7
	colVolume       = 8
)

var codePattern = regexp.MustCompile(`^\d+$`)

// ErrTableNotFound means the page no longer has the expected ranking table.
var ErrTableNotFound = errors.New("ranking table not found")

// Kabutan implements collector.Source
type Kabutan struct {
	url     string
	session *session.Session
	logger  *zap.Logger
}

// New creates a new kabutan ranking source
func New(cfg collector.Config, logger *zap.Logger) *Kabutan {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := cfg.URL
	if url == "" {
		url = RankingURL
	}
	return &Kabutan{
		url:     url,
		session: session.New(Name+"-ranking", append(cfg.SessionOptions(), session.WithLogger(logger))...),
		logger:  logger,
	}
}

// Factory returns a registry factory bound to logger.
func Factory(logger *zap.Logger) collector.Factory {
	return func(cfg collector.Config) collector.Source {
		return New(cfg, logger)
	}
}

func (k *Kabutan) Name() string {
	return Name
}

// FetchRanking performs one acquisition attempt.
func (k *Kabutan) FetchRanking(ctx context.Context) ([]core.RawSignal, error) {
	doc, err := k.session.Document(ctx, k.url)
	if err != nil {
		return nil, err
	}
	return Parse(doc, k.logger)
}

func (k *Kabutan) Close() error {
	return k.session.Close()
}

// Parse extracts signals from the ranking page. Malformed rows are skipped;
// a missing table is an error.
func Parse(doc *goquery.Document, logger *zap.Logger) ([]core.RawSignal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	table := doc.Find("table.stock_table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", Name, ErrTableNotFound)
	}

	var signals []core.RawSignal
	skipped := 0

	// First row is the header
	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		sig, ok := parseRow(row)
		if !ok {
			skipped++
			return
		}
		signals = append(signals, sig)
	})

	logger.Debug("parsed ranking table",
		zap.Int("rows", len(signals)),
		zap.Int("skipped", skipped))

	return signals, nil
}

func parseRow(row *goquery.Selection) (core.RawSignal, bool) {
	cols := row.Find("td")
	if cols.Length() < minColumns {
		return core.RawSignal{}, false
	}

	cell := func(i int) string {
		return session.Text(cols.Eq(i))
	}

	code := cell(colCode)
	if !codePattern.MatchString(code) {
		return core.RawSignal{}, false
	}

	sig := core.RawSignal{
		Code:         code,
		Market:       cell(colMarket),
		PrevClose:    core.ParseNumber(cell(colPrevClose)),
		Price:        core.ParseNumber(cell(colPrice)),
		ChangeAmount: core.ParseNumber(cell(colChangeAmount)),
		ChangeRate:   core.ParseNumber(cell(colChangeRate)),
	}
	if cols.Length() > colVolume {
		sig.Volume = int64(core.ParseNumber(cell(colVolume)).Or(0))
	}
	return sig, true
}

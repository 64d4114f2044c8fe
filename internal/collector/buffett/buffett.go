// Package buffett reads the buffett-code PTS ranking. It is an alternate
// source for when the kabutan table is unavailable.
package buffett

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/collector"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/session"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// Name is the registry name of this source.
	Name = "buffett"

	// RankingURL is the PTS ranking page.
	RankingURL = "https://www.buffett-code.com/pts"

	minColumns = 10
)

var (
	// "6072,東S地盤ネット"
	companyPattern = regexp.MustCompile(`^(\d{4}),(.+)$`)
	marketPattern  = regexp.MustCompile(`^(東[SPGM]|名|札|福)`)
	// "02/11 06:001,367.0": the price follows the minutes of the timestamp
	pricePattern = regexp.MustCompile(`:\d{2}([\d,]+\.?\d*)`)
	// "+80+32.3%", "+1,200+14.7%"
	ratePattern   = regexp.MustCompile(`([+-]?\d+\.?\d*)%`)
	amountPattern = regexp.MustCompile(`^([+-][\d,]+(?:\.\d+)?)`)
)

// ErrTableNotFound means the page has no ranking table.
var ErrTableNotFound = errors.New("ranking table not found")

// Buffett implements collector.Source
type Buffett struct {
	url     string
	session *session.Session
	logger  *zap.Logger
}

// New creates a new buffett-code ranking source
func New(cfg collector.Config, logger *zap.Logger) *Buffett {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := cfg.URL
	if url == "" {
		url = RankingURL
	}
	return &Buffett{
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

func (b *Buffett) Name() string {
	return Name
}

func (b *Buffett) FetchRanking(ctx context.Context) ([]core.RawSignal, error) {
	doc, err := b.session.Document(ctx, b.url)
	if err != nil {
		return nil, err
	}
	return Parse(doc)
}

func (b *Buffett) Close() error {
	return b.session.Close()
}

// Parse reads every ranking table body on the page in document order.
func Parse(doc *goquery.Document) ([]core.RawSignal, error) {
	tables := doc.Find("table.table")
	if tables.Find("tbody").Length() == 0 {
		return nil, fmt.Errorf("%s: %w", Name, ErrTableNotFound)
	}

	var signals []core.RawSignal
	tables.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if sig, ok := parseRow(row); ok {
			signals = append(signals, sig)
		}
	})
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

	m := companyPattern.FindStringSubmatch(cell(1))
	if m == nil {
		return core.RawSignal{}, false
	}
	market, name := splitMarket(m[2])

	sig := core.RawSignal{
		Code:     m[1],
		Name:     name,
		Market:   market,
		Industry: cell(2),
		Volume:   int64(core.ParseNumber(cell(5)).Or(0)),
	}

	if pm := pricePattern.FindStringSubmatch(cell(3)); pm != nil {
		sig.Price = core.ParseNumber(pm[1])
	}

	change := cell(4)
	if rm := ratePattern.FindStringSubmatch(change); rm != nil {
		sig.ChangeRate = core.ParseNumber(rm[1])
	}
	if am := amountPattern.FindStringSubmatch(change); am != nil {
		sig.ChangeAmount = core.ParseNumber(am[1])
	}
	return sig, true
}

func splitMarket(full string) (market, name string) {
	if m := marketPattern.FindString(full); m != "" {
		return m, strings.TrimPrefix(full, m)
	}
	return "", full
}

// internal/context/kabutan.go
package context

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/session"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the kabutan site root.
	DefaultBaseURL = "https://kabutan.jp"

	defaultNewsSource = "株探"
	disclosureTag     = "開示"
	marketCapLabel    = "時価総額"
	descriptionLimit  = 200
)

// KabutanConfig configures the kabutan per-symbol fetchers.
type KabutanConfig struct {
	BaseURL string
	Session []session.Option
	Logger  *zap.Logger
	Name    string
}

// Kabutan reads per-symbol news and company pages. It implements both
// NewsProvider and ProfileProvider over a single session.
type Kabutan struct {
	base    string
	session *session.Session
	logger  *zap.Logger
}

// NewKabutan creates a news and profile fetcher with its own session.
func NewKabutan(cfg KabutanConfig) *Kabutan {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "kabutan-news"
	}
	return &Kabutan{
		base:    base,
		session: session.New(name, append([]session.Option{session.WithLogger(logger)}, cfg.Session...)...),
		logger:  logger,
	}
}

// FetchNews returns up to limit headlines from the symbol's news page.
func (k *Kabutan) FetchNews(ctx context.Context, code string, limit int) ([]core.NewsItem, error) {
	pageURL := k.newsURL(code)
	doc, err := k.session.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching news for %s: %w", code, err)
	}

	items := ParseNews(doc, pageURL)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	k.logger.Debug("fetched news", zap.String("code", code), zap.Int("items", len(items)))
	return items, nil
}

// FetchProfile returns the company block of the symbol's main page.
func (k *Kabutan) FetchProfile(ctx context.Context, code string) (core.CompanyProfile, error) {
	doc, err := k.session.Document(ctx, k.base+"/stock/?code="+url.QueryEscape(code))
	if err != nil {
		return core.CompanyProfile{}, fmt.Errorf("fetching profile for %s: %w", code, err)
	}
	return ParseProfile(doc), nil
}

// Close releases the session.
func (k *Kabutan) Close() error {
	return k.session.Close()
}

func (k *Kabutan) newsURL(code string) string {
	return k.base + "/stock/news?code=" + url.QueryEscape(code)
}

// KabutanDisclosures reads the disclosure rows of the symbol's news page.
// It owns a separate session from Kabutan.
type KabutanDisclosures struct {
	base    string
	session *session.Session
	logger  *zap.Logger
}

// NewKabutanDisclosures creates a disclosure fetcher with its own session.
func NewKabutanDisclosures(cfg KabutanConfig) *KabutanDisclosures {
	if cfg.Name == "" {
		cfg.Name = "kabutan-disclosures"
	}
	k := NewKabutan(cfg)
	return &KabutanDisclosures{base: k.base, session: k.session, logger: k.logger}
}

// FetchDisclosures returns up to limit disclosures, newest first.
func (k *KabutanDisclosures) FetchDisclosures(ctx context.Context, code string, limit int) ([]core.Disclosure, error) {
	pageURL := k.base + "/stock/news?code=" + url.QueryEscape(code)
	doc, err := k.session.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching disclosures for %s: %w", code, err)
	}

	items := ParseDisclosures(doc, pageURL)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Close releases the session.
func (k *KabutanDisclosures) Close() error {
	return k.session.Close()
}

// ParseNews extracts headlines. Several page layouts are tried in turn.
func ParseNews(doc *goquery.Document, pageURL string) []core.NewsItem {
	items := doc.Find("div.news_item")
	if items.Length() == 0 {
		items = doc.Find("tr.data")
	}
	if items.Length() == 0 {
		items = doc.Find("table.s_news_list tr")
	}
	if items.Length() == 0 {
		items = doc.Find("table.stock_table").First().Find("tr").Slice(1, goquery.ToEnd)
	}

	var news []core.NewsItem
	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		if link.Length() == 0 {
			return
		}
		title := session.Text(link)
		if title == "" {
			return
		}
		href, _ := link.Attr("href")

		source := session.Text(item.Find("span.source").First())
		if source == "" {
			source = defaultNewsSource
		}

		news = append(news, core.NewsItem{
			Title:  title,
			Date:   itemDate(item),
			URL:    session.Absolute(pageURL, href),
			Source: source,
		})
	})
	return news
}

func itemDate(item *goquery.Selection) string {
	for _, sel := range []string{"td.date", "span.date", "time"} {
		if d := session.Text(item.Find(sel).First()); d != "" {
			return d
		}
	}
	return ""
}

// ParseProfile extracts the company block. Missing fields stay empty.
func ParseProfile(doc *goquery.Document) core.CompanyProfile {
	p := core.CompanyProfile{
		Name:     parseName(session.Text(doc.Find("h3").First())),
		Market:   session.Text(doc.Find("span.market").First()),
		Industry: session.Text(doc.Find("span.industry").First()),
	}

	doc.Find("th, td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if session.Text(cell) != marketCapLabel {
			return true
		}
		p.MarketCap = session.Text(cell.NextAllFiltered("td").First())
		return false
	})

	desc := []rune(session.Text(doc.Find("div.company_description").First()))
	if len(desc) > descriptionLimit {
		desc = desc[:descriptionLimit]
	}
	p.Description = string(desc)
	return p
}

// parseName splits "6072 地盤ネットホールディングス" into its name part.
func parseName(heading string) string {
	parts := strings.Fields(heading)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

// ParseDisclosures extracts rows tagged as disclosures from the news table.
func ParseDisclosures(doc *goquery.Document, pageURL string) []core.Disclosure {
	var out []core.Disclosure
	doc.Find("table.s_news_list tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 3 {
			return
		}
		if session.Text(cols.Eq(1).Find("div.newslist_ctg")) != disclosureTag {
			return
		}
		link := cols.Eq(2).Find("a").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		out = append(out, core.Disclosure{
			Title: session.Text(link),
			Date:  session.Text(cols.Eq(0).Find("time").First()),
			URL:   session.Absolute(pageURL, href),
		})
	})
	return out
}

package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Number is an optional numeric cell. Valid is false when the source cell
// was blank or a placeholder such as "--".
type Number struct {
	Value float64
	Valid bool
}

// Some returns a present Number.
func Some(v float64) Number {
	return Number{Value: v, Valid: true}
}

// ParseNumber parses a scraped numeric cell. Thousands separators, a leading
// "+" and a trailing "%" are ignored.
func ParseNumber(text string) Number {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" || s == "--" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Some(v)
}

// Or returns the value, or def when absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// MarshalJSON encodes an absent value as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts a number or null.
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// RawSignal is one instrument's row in the after-hours ranking.
type RawSignal struct {
	Code         string `json:"code"`
	Name         string `json:"name"` // may be empty until enrichment resolves it
	Market       string `json:"market"`
	Industry     string `json:"industry,omitempty"`
	PrevClose    Number `json:"prev_close"`
	Price        Number `json:"price"`
	ChangeAmount Number `json:"change_amount"`
	ChangeRate   Number `json:"change_rate"`
	Volume       int64  `json:"volume"`
}

// Consistent reports whether change amount and change rate agree in sign.
// Rows with either value absent are treated as consistent.
func (s RawSignal) Consistent() bool {
	if !s.ChangeAmount.Valid || !s.ChangeRate.Valid {
		return true
	}
	return sign(s.ChangeAmount.Value) == sign(s.ChangeRate.Value)
}

// DisplayName returns the name, or the code when no name was resolved.
func (s RawSignal) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Code
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// NewsItem is a headline from the per-symbol news page.
type NewsItem struct {
	Title  string `json:"title"`
	Date   string `json:"date"` // site-local, not parsed
	URL    string `json:"url"`
	Source string `json:"source"`
}

// CompanyProfile holds basic company information. Every field is optional.
type CompanyProfile struct {
	Name        string `json:"name,omitempty"`
	Market      string `json:"market,omitempty"`
	Industry    string `json:"industry,omitempty"`
	MarketCap   string `json:"market_cap,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsEmpty reports whether no profile field is known.
func (p CompanyProfile) IsEmpty() bool {
	return p.Market == "" && p.Industry == "" && p.MarketCap == "" && p.Description == ""
}

// DisclosureKind classifies a disclosure.
type DisclosureKind string

const (
	DisclosureEarnings DisclosureKind = "earnings"
	DisclosureOther    DisclosureKind = "other"
)

// Disclosure is a regulatory filing or notice.
type Disclosure struct {
	Title string         `json:"title"`
	Date  string         `json:"date"`
	URL   string         `json:"url"`
	Kind  DisclosureKind `json:"kind"`
}

// EnrichedSignal is a RawSignal with its context attached. It is built once
// by the enricher and treated as read-only afterwards.
type EnrichedSignal struct {
	RawSignal
	News            []NewsItem     `json:"news"`
	Company         CompanyProfile `json:"company"`
	Disclosures     []Disclosure   `json:"disclosures"`
	EarningsSummary string         `json:"earnings_summary,omitempty"`
}

// EarningsDisclosure returns the first earnings disclosure, if any.
func (e EnrichedSignal) EarningsDisclosure() (Disclosure, bool) {
	for _, d := range e.Disclosures {
		if d.Kind == DisclosureEarnings {
			return d, true
		}
	}
	return Disclosure{}, false
}

// Catalyst is a headline-derived cause of a price move.
type Catalyst string

const (
	CatalystEarnings          Catalyst = "earnings"
	CatalystProduct           Catalyst = "product"
	CatalystContract          Catalyst = "contract"
	CatalystShareholderReturn Catalyst = "shareholder_return"
	CatalystMajorHolder       Catalyst = "major_holder"
	CatalystTradingFrenzy     Catalyst = "trading_frenzy"
	CatalystPolicy            Catalyst = "policy"
	CatalystMarketEnvironment Catalyst = "market_environment"
)

// Catalysts lists every category in scan order.
var Catalysts = []Catalyst{
	CatalystEarnings,
	CatalystProduct,
	CatalystContract,
	CatalystShareholderReturn,
	CatalystMajorHolder,
	CatalystTradingFrenzy,
	CatalystPolicy,
	CatalystMarketEnvironment,
}

// CatalystMap maps a category to the headline fragments that matched it.
type CatalystMap map[Catalyst][]string

// Has reports whether the category matched at least one headline.
func (m CatalystMap) Has(c Catalyst) bool {
	return len(m[c]) > 0
}

// Sentiment is the headline tone label.
type Sentiment string

const (
	SentimentVeryPositive Sentiment = "very_positive"
	SentimentPositive     Sentiment = "positive"
	SentimentNeutral      Sentiment = "neutral"
	SentimentNegative     Sentiment = "negative"
)

// EarningsDetail is the deep-dive on an earnings disclosure.
type EarningsDetail struct {
	Reason  string   `json:"reason"`
	Factors []string `json:"factors"`
	Outlook string   `json:"outlook"`
	Source  string   `json:"source"`
}

// EarningsDetail sources.
const (
	DetailSourceLLM     = "llm"
	DetailSourceLLMText = "llm_text"
	DetailSourceRules   = "rules"
)

// AnalysisResult is produced once per EnrichedSignal.
type AnalysisResult struct {
	Narrative string          `json:"narrative"`
	Catalysts CatalystMap     `json:"catalysts"`
	Sentiment Sentiment       `json:"sentiment"`
	Outlook   string          `json:"outlook"`
	Earnings  *EarningsDetail `json:"earnings,omitempty"`
}

// ReportRecord is the unit handed to delivery and persistence.
type ReportRecord struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Rank      int            `json:"rank"`
	Signal    EnrichedSignal `json:"signal"`
	Analysis  AnalysisResult `json:"analysis"`
}

// RunStats aggregates one batch of ranked signals.
type RunStats struct {
	Count         int     `json:"count"`
	AvgChangeRate float64 `json:"avg_change_rate"`
	MaxChangeRate float64 `json:"max_change_rate"`
	MinChangeRate float64 `json:"min_change_rate"`
	TotalVolume   int64   `json:"total_volume"`
}

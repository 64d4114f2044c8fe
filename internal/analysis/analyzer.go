// Package analysis explains a price move from its headlines with fixed
// keyword rules.
package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"golang.org/x/text/unicode/norm"
)

var leadingTag = regexp.MustCompile(`^【[^】]+】`)

// Analyze is a pure function of its input.
func Analyze(es core.EnrichedSignal) core.AnalysisResult {
	if len(es.News) == 0 {
		return core.AnalysisResult{
			Narrative: noNewsNarrative,
			Catalysts: core.CatalystMap{},
			Sentiment: core.SentimentNeutral,
			Outlook:   noNewsOutlook,
		}
	}

	catalysts := ExtractCatalysts(es.News)
	sentiment := ClassifySentiment(es.News)
	rate := es.ChangeRate.Or(0)

	return core.AnalysisResult{
		Narrative: Narrative(displayName(es), rate, es.News, catalysts),
		Catalysts: catalysts,
		Sentiment: sentiment,
		Outlook:   Outlook(catalysts, sentiment, rate),
	}
}

// StripTag removes a leading 【…】 category tag.
func StripTag(title string) string {
	return strings.TrimSpace(leadingTag.ReplaceAllString(title, ""))
}

// ExtractCatalysts scans the newest headlines. Each headline is appended at
// most once per category.
func ExtractCatalysts(news []core.NewsItem) core.CatalystMap {
	m := core.CatalystMap{}
	for _, item := range head(news, catalystScan) {
		for _, c := range core.Catalysts {
			if containsAny(fold(item.Title), catalystKeywords[c]) {
				m[c] = append(m[c], StripTag(item.Title))
			}
		}
	}
	return m
}

// ClassifySentiment counts lexicon hits over the newest headlines.
func ClassifySentiment(news []core.NewsItem) core.Sentiment {
	pos, neg := 0, 0
	for _, item := range head(news, sentimentScan) {
		title := fold(item.Title)
		pos += countHits(title, positiveWords)
		neg += countHits(title, negativeWords)
	}

	switch {
	case pos > 2*neg:
		return core.SentimentVeryPositive
	case pos > neg:
		return core.SentimentPositive
	case neg > pos:
		return core.SentimentNegative
	default:
		return core.SentimentNeutral
	}
}

// Narrative composes the one-paragraph explanation.
func Narrative(name string, rate float64, news []core.NewsItem, catalysts core.CatalystMap) string {
	recent := head(news, narrativeScan)

	var key []string
	for _, item := range recent {
		content := StripTag(item.Title)
		if containsAny(fold(content), significanceWords) {
			key = append(key, content)
		}
	}

	if len(key) == 0 {
		return fmt.Sprintf("%sは前日比%+.1f%%上昇。材料視された情報により買いが優勢となった模様。", name, rate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sは前日比%+.1f%%の大幅高となった。", name, rate)

	if clause := dominantClause(catalysts); clause != "" {
		fmt.Fprintf(&b, "主な上昇要因は%s。", clause)
	}
	for _, info := range head(key, maxSupporting) {
		fmt.Fprintf(&b, "具体的には、%s。", info)
	}

	if mentions := positiveMentions(recent); len(mentions) > 0 {
		fmt.Fprintf(&b, "市場では%sと評価されている。", strings.Join(mentions, "、"))
	}
	return b.String()
}

// Outlook scores the catalysts, sentiment and size of the move.
func Outlook(catalysts core.CatalystMap, sentiment core.Sentiment, rate float64) string {
	score := 0
	var reasons []string

	for _, f := range outlookFactors {
		if catalysts.Has(f.catalyst) {
			score += f.score
			reasons = append(reasons, f.reason)
		}
	}
	score += sentimentScores[sentiment]

	switch {
	case rate >= healthyMin && rate <= healthyMax:
		score++
		reasons = append(reasons, healthyReason)
	case rate > overheatMin:
		reasons = append(reasons, overheatReason)
	}

	label := cautionLabel
	for _, l := range outlookLabels {
		if score >= l.min {
			label = l.label
			break
		}
	}

	var b strings.Builder
	b.WriteString(label)
	if len(reasons) > 0 {
		fmt.Fprintf(&b, "。理由：%s。", strings.Join(reasons, "、"))
	} else {
		b.WriteString("。")
	}
	if rate > caveatMin {
		b.WriteString(overheatCaveat)
	}
	return b.String()
}

func dominantClause(catalysts core.CatalystMap) string {
	for _, d := range dominantClauses {
		if catalysts.Has(d.catalyst) {
			return d.clause
		}
	}
	return ""
}

// positiveMentions takes the first positive word of each headline, keeping
// up to maxPositive distinct words.
func positiveMentions(news []core.NewsItem) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range news {
		title := fold(item.Title)
		for _, w := range positiveWords {
			if !strings.Contains(title, w) {
				continue
			}
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
			break
		}
		if len(out) == maxPositive {
			break
		}
	}
	return out
}

// fold maps full-width letters and digits to ASCII so "Ｓ高" matches "S高".
func fold(s string) string {
	return norm.NFKC.String(s)
}

func displayName(es core.EnrichedSignal) string {
	if es.Name != "" {
		return es.Name
	}
	return defaultName
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func countHits(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}

package enrich

import (
	"strings"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// EarningsKeywords mark a disclosure title as earnings-related.
var EarningsKeywords = []string{
	"決算", "業績", "四半期", "本決算", "中間決算",
	"上方修正", "下方修正", "修正", "業績予想",
	"連結", "単独",
}

var (
	positiveEarnings = []string{"上方修正", "増益", "過去最高", "好調", "増配"}
	negativeEarnings = []string{"下方修正", "減益", "赤字", "減配"}
)

// Classify tags a disclosure by title.
func Classify(title string) core.DisclosureKind {
	if containsAny(title, EarningsKeywords) {
		return core.DisclosureEarnings
	}
	return core.DisclosureOther
}

// Summarize renders the one-sentence earnings summary for d.
func Summarize(d core.Disclosure) string {
	var b strings.Builder
	b.WriteString("決算発表：")

	switch {
	case strings.Contains(d.Title, "上方修正"):
		b.WriteString("業績予想を上方修正。")
	case strings.Contains(d.Title, "下方修正"):
		b.WriteString("業績予想を下方修正。")
	case strings.Contains(d.Title, "増益"):
		b.WriteString("増益決算。")
	case strings.Contains(d.Title, "減益"):
		b.WriteString("減益決算。")
	default:
		b.WriteString(d.Title + "。")
	}

	if strings.Contains(strings.ToLower(d.URL), "pdf") {
		b.WriteString("詳細は開示資料を参照。")
	}
	return b.String()
}

// Impact returns a one-line reading of an earnings summary, or "" when
// there is no summary.
func Impact(summary string) string {
	switch {
	case summary == "":
		return ""
	case containsAny(summary, positiveEarnings):
		return "決算内容が好感され、買い材料となった模様。業績の上振れや上方修正が評価されている。"
	case containsAny(summary, negativeEarnings):
		return "決算内容に対する懸念から売りが先行した可能性。"
	default:
		return "決算発表を受けて材料視された。"
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

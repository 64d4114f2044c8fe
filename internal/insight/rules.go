package insight

import (
	"strings"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

const (
	rulesNewsScan       = 3
	rulesDefaultReason  = "決算発表により株価が反応。"
	rulesDefaultOutlook = "詳細は開示資料をご確認ください。LLMを設定すると自動分析されます。"
)

var rulesDefaultFactors = []string{"具体的な要因は開示資料を参照", "市場環境の改善", "業績好調"}

// newsFactors map headline keywords to a factor, checked in order.
var newsFactors = []struct {
	keywords []string
	factor   string
}{
	{[]string{"受注", "契約"}, "大型受注や契約獲得"},
	{[]string{"需要", "拡大"}, "需要拡大による売上増"},
	{[]string{"コスト", "効率"}, "コスト削減や効率化"},
}

// Rules derives an EarningsDetail from the disclosure title and the newest
// headlines.
func Rules(title string, news []core.NewsItem) core.EarningsDetail {
	var reason strings.Builder
	var factors []string
	add := func(f string) {
		for _, existing := range factors {
			if existing == f {
				return
			}
		}
		factors = append(factors, f)
	}

	if strings.Contains(title, "上方修正") {
		reason.WriteString("業績予想を上方修正。")
		add("業績が当初予想を上回る")
	}
	if strings.Contains(title, "増益") || strings.Contains(title, "好調") {
		reason.WriteString("増益決算を発表。")
		add("利益が増加")
	}

	for i, n := range news {
		if i >= rulesNewsScan {
			break
		}
		for _, nf := range newsFactors {
			for _, kw := range nf.keywords {
				if strings.Contains(n.Title, kw) {
					add(nf.factor)
					break
				}
			}
		}
	}

	if len(factors) == 0 {
		factors = append(factors, rulesDefaultFactors...)
	}
	if len(factors) > maxFactors {
		factors = factors[:maxFactors]
	}

	r := reason.String()
	if r == "" {
		r = rulesDefaultReason
	}
	return core.EarningsDetail{
		Reason:  r,
		Factors: factors,
		Outlook: rulesDefaultOutlook,
		Source:  core.DetailSourceRules,
	}
}

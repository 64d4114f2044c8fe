package insight

import (
	"fmt"
	"strings"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

const (
	maxFactors      = 3
	promptNews      = 5
	textReasonLimit = 200
)

const systemPrompt = "あなたは日本株の決算を読み解く証券アナリストです。回答は必ず指定されたJSON形式で返してください。"

func buildPrompt(title string, news []core.NewsItem, sig core.RawSignal) string {
	var sb strings.Builder

	sb.WriteString("以下の情報を基に、この銘柄の決算内容と株価上昇理由を分析してください。\n\n")

	sb.WriteString("【銘柄情報】\n")
	sb.WriteString(fmt.Sprintf("- コード: %s\n", sig.Code))
	sb.WriteString(fmt.Sprintf("- 銘柄名: %s\n", sig.DisplayName()))
	sb.WriteString(fmt.Sprintf("- 変化率: %+.1f%%\n\n", sig.ChangeRate.Or(0)))

	sb.WriteString("【決算開示】\n")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	sb.WriteString("【関連ニュース】\n")
	for i, n := range news {
		if i >= promptNews {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", n.Title, n.Date))
	}
	sb.WriteString("\n")

	sb.WriteString("以下の3つの観点で分析してください：\n")
	sb.WriteString("1. 決算の内容: なぜ好決算/上方修正になったのか（売上増加の理由、利益改善の要因など）\n")
	sb.WriteString("2. 主要な要因: 具体的な要因を3つ\n")
	sb.WriteString("3. 今後の見通し: この決算を受けて今後の業績や株価はどうなりそうか\n\n")

	sb.WriteString("回答は以下のJSON形式で返してください：\n")
	sb.WriteString(`{"earnings_reason": "決算内容の説明（2-3文）", "key_factors": ["要因1", "要因2", "要因3"], "outlook": "今後の見通し（2-3文）"}`)
	sb.WriteString("\n")

	return sb.String()
}

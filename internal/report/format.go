// Package report renders ranked signals as notification messages and
// delivers them.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/enrich"
)

const (
	headerRule = "========================================"
	nameRule   = "━━━━━━━━━━━━━━━━"
	maxNews    = 3
	maxFactors = 3
)

var jp = message.NewPrinter(language.Japanese)

// Header is prepended to the first message of a run.
func Header(now time.Time, minVolume int64, count int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("【PTS上昇ランキング - %s】\n", now.Format("2006/01/02 15:04")))
	sb.WriteString(jp.Sprintf("出来高%d株以上の上位%d銘柄\n", minVolume, count))
	sb.WriteString(headerRule)
	return sb.String()
}

// FormatRecord renders one ranked symbol.
func FormatRecord(rec core.ReportRecord) string {
	s := rec.Signal
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", rec.Rank, s.Code, s.DisplayName()))
	sb.WriteString(nameRule + "\n")
	sb.WriteString(fmt.Sprintf("💰 PTS価格: %s円 (%s)\n", formatPrice(s.Price), formatRate(s.ChangeRate)))
	sb.WriteString(jp.Sprintf("📊 出来高: %d株\n", s.Volume))

	if c := s.Company; c.Market != "" || c.Industry != "" || c.MarketCap != "" {
		sb.WriteString("\n📌 基本情報:\n")
		if c.Market != "" {
			sb.WriteString(fmt.Sprintf("  • 市場: %s\n", c.Market))
		}
		if c.Industry != "" {
			sb.WriteString(fmt.Sprintf("  • 業種: %s\n", c.Industry))
		}
		if c.MarketCap != "" {
			sb.WriteString(fmt.Sprintf("  • 時価総額: %s\n", c.MarketCap))
		}
	}

	if len(s.News) > 0 {
		sb.WriteString("\n📰 最新ニュース:\n")
		for i, n := range s.News {
			if i >= maxNews {
				break
			}
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, n.Title))
			if n.Date != "" {
				sb.WriteString(fmt.Sprintf("     (%s)\n", n.Date))
			}
		}
	}

	a := rec.Analysis
	if a.Narrative != "" {
		sb.WriteString("\n💡 上昇理由:\n")
		sb.WriteString("  " + a.Narrative + "\n")
	}
	if a.Outlook != "" {
		sb.WriteString("\n🔭 見通し:\n")
		sb.WriteString("  " + a.Outlook + "\n")
	}

	if e := a.Earnings; e != nil {
		sb.WriteString("\n📑 決算分析:\n")
		sb.WriteString("  " + e.Reason + "\n")
		for i, f := range e.Factors {
			if i >= maxFactors {
				break
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", f))
		}
		if e.Outlook != "" {
			sb.WriteString("  " + e.Outlook + "\n")
		}
	} else if s.EarningsSummary != "" {
		sb.WriteString("\n📑 " + s.EarningsSummary + "\n")
		sb.WriteString("  " + enrich.Impact(s.EarningsSummary) + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatSummary renders the run statistics.
func FormatSummary(stats core.RunStats) string {
	var sb strings.Builder
	sb.WriteString("📈 本日のPTSサマリー\n")
	sb.WriteString(headerRule + "\n")
	sb.WriteString(fmt.Sprintf("対象銘柄数: %d\n", stats.Count))
	sb.WriteString(fmt.Sprintf("平均上昇率: %.2f%%\n", stats.AvgChangeRate))
	sb.WriteString(fmt.Sprintf("最大上昇率: %.2f%%\n", stats.MaxChangeRate))
	sb.WriteString(jp.Sprintf("総出来高: %d株", stats.TotalVolume))
	return sb.String()
}

// FormatError renders an upstream failure notice.
func FormatError(msg string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("⚠️ PTSランキング取得エラー\n")
	sb.WriteString(headerRule + "\n")
	sb.WriteString(msg + "\n")
	sb.WriteString(fmt.Sprintf("\n時刻: %s", now.Format("2006/01/02 15:04:05")))
	return sb.String()
}

func formatPrice(n core.Number) string {
	if !n.Valid {
		return "-"
	}
	return jp.Sprintf("%.0f", n.Value)
}

func formatRate(n core.Number) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", n.Value)
}

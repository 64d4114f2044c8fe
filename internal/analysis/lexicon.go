package analysis

import "github.com/Ken-helpme/pts-ranking-reporter/internal/core"

// Lexicons are fixed process-wide tables. Nothing writes to them after
// package initialization.

// catalystKeywords maps each category to its keywords, scanned in
// core.Catalysts order.
var catalystKeywords = map[core.Catalyst][]string{
	core.CatalystEarnings:          {"決算", "業績", "四半期", "通期", "上方修正", "増益", "最高益", "過去最高"},
	core.CatalystProduct:           {"新製品", "新技術", "開発", "実用化", "量産", "投入", "発売"},
	core.CatalystContract:          {"契約", "提携", "受注", "獲得", "M&A", "買収"},
	core.CatalystShareholderReturn: {"配当", "増配", "自社株買い", "株主還元", "特別配当"},
	core.CatalystMajorHolder:       {"大株主", "TOB", "筆頭株主", "持株比率", "株主異動"},
	core.CatalystTradingFrenzy:     {"ストップ高", "S高", "急騰", "買い気配", "気配値"},
	core.CatalystPolicy:            {"規制緩和", "政策", "補助金", "認可", "承認"},
	core.CatalystMarketEnvironment: {"需要増", "市況", "価格上昇", "市場拡大"},
}

var positiveWords = []string{
	"好調", "堅調", "順調", "拡大", "増加", "成長", "伸長",
	"改善", "回復", "好転", "上昇", "強い", "好材料",
	"期待", "有望", "注目", "評価", "人気",
}

var negativeWords = []string{
	"悪化", "減少", "低迷", "減益", "赤字", "下方修正",
	"懸念", "不安", "課題", "問題", "リスク",
}

// significanceWords select headlines worth quoting in the narrative.
var significanceWords = []string{"ストップ高", "S高", "大株主", "決算", "上方修正", "受注", "契約"}

// dominantClauses lists narrative clauses in priority order.
var dominantClauses = []struct {
	catalyst core.Catalyst
	clause   string
}{
	{core.CatalystEarnings, "決算発表や業績上方修正"},
	{core.CatalystMajorHolder, "大株主の異動"},
	{core.CatalystContract, "大型契約の獲得"},
	{core.CatalystProduct, "新製品・新技術の発表"},
	{core.CatalystTradingFrenzy, "市場での買い人気"},
}

// outlookFactors are the catalyst contributions to the outlook score.
var outlookFactors = []struct {
	catalyst core.Catalyst
	score    int
	reason   string
}{
	{core.CatalystEarnings, 2, "業績好調"},
	{core.CatalystProduct, 2, "新技術・新製品による成長期待"},
	{core.CatalystContract, 1, "事業拡大"},
	{core.CatalystShareholderReturn, 1, "株主還元強化"},
}

var sentimentScores = map[core.Sentiment]int{
	core.SentimentVeryPositive: 2,
	core.SentimentPositive:     1,
	core.SentimentNegative:     -1,
}

// Outlook labels by minimum score, highest first.
var outlookLabels = []struct {
	min   int
	label string
}{
	{4, "将来性は非常に高いと評価される"},
	{2, "将来性は期待できる"},
	{0, "中立的な見方"},
}

const (
	cautionLabel = "慎重な判断が必要"
	defaultName  = "本銘柄"

	noNewsNarrative = "上昇理由の詳細情報が取得できませんでした。"
	noNewsOutlook   = "情報不足のため評価できません。"

	healthyReason  = "適度な上昇"
	overheatReason = "短期的な過熱感あり"
	overheatCaveat = "ただし、急騰後のため短期的な調整リスクに注意。"

	healthyMin    = 5.0
	healthyMax    = 15.0
	overheatMin   = 15.0
	caveatMin     = 20.0
	catalystScan  = 5
	narrativeScan = 3
	sentimentScan = 5
	maxSupporting = 2
	maxPositive   = 2
)

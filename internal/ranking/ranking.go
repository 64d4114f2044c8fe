// Package ranking filters and orders raw ranking rows. Everything here is
// pure and deterministic.
package ranking

import (
	"sort"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/shopspring/decimal"
)

// FilterAndRank drops signals with volume below minVolume, orders the rest
// by change rate descending and keeps the first topN. Equal rates keep their
// source order; rows without a rate sort last. A topN of zero or less keeps
// every row. The input slice is not modified.
func FilterAndRank(signals []core.RawSignal, minVolume int64, topN int) []core.RawSignal {
	out := make([]core.RawSignal, 0, len(signals))
	for _, s := range signals {
		if s.Volume >= minVolume {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ChangeRate, out[j].ChangeRate
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Value > b.Value
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// Stats aggregates a ranked batch. Rows without a change rate count toward
// Count and TotalVolume only. Rates are rounded to two decimals.
func Stats(signals []core.RawSignal) core.RunStats {
	stats := core.RunStats{Count: len(signals)}

	sum := decimal.Zero
	rated := 0
	var maxRate, minRate decimal.Decimal

	for _, s := range signals {
		stats.TotalVolume += s.Volume
		if !s.ChangeRate.Valid {
			continue
		}
		r := decimal.NewFromFloat(s.ChangeRate.Value)
		if rated == 0 || r.GreaterThan(maxRate) {
			maxRate = r
		}
		if rated == 0 || r.LessThan(minRate) {
			minRate = r
		}
		sum = sum.Add(r)
		rated++
	}

	if rated > 0 {
		stats.AvgChangeRate = sum.Div(decimal.NewFromInt(int64(rated))).Round(2).InexactFloat64()
		stats.MaxChangeRate = maxRate.Round(2).InexactFloat64()
		stats.MinChangeRate = minRate.Round(2).InexactFloat64()
	}
	return stats
}

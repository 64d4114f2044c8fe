// internal/storage/history/store.go
package history

import (
	"context"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/ranking"
)

// Store persists report records. Records are keyed by (code, timestamp);
// all records written by one pipeline run share a run id.
type Store interface {
	// Save persists records, replacing any with the same key.
	Save(ctx context.Context, records ...core.ReportRecord) error

	// LatestBatch returns the records of the newest run ordered by change
	// rate descending.
	LatestBatch(ctx context.Context) ([]core.ReportRecord, error)

	// Range returns records matching the query ordered by time then rank.
	Range(ctx context.Context, q Query) ([]core.ReportRecord, error)

	// Stats aggregates the latest batch.
	Stats(ctx context.Context) (Stats, error)

	// UpdateAnalysis replaces the news and analysis of one record.
	UpdateAnalysis(ctx context.Context, code string, ts time.Time, news []core.NewsItem, analysis core.AnalysisResult) error

	// Prune deletes records older than before and returns how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)

	Close()
}

// Query selects records by time window and optionally by code. Zero bounds
// are open.
type Query struct {
	From time.Time
	To   time.Time
	Code string
}

func (q Query) matches(rec core.ReportRecord) bool {
	if q.Code != "" && rec.Signal.Code != q.Code {
		return false
	}
	if !q.From.IsZero() && rec.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !rec.Timestamp.Before(q.To) {
		return false
	}
	return true
}

// Stats is the latest-batch aggregate plus the number of stored runs.
type Stats struct {
	core.RunStats
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	TotalSnapshots int64     `json:"total_snapshots"`
}

func batchStats(batch []core.ReportRecord, total int64) Stats {
	signals := make([]core.RawSignal, len(batch))
	for i, rec := range batch {
		signals[i] = rec.Signal.RawSignal
	}
	st := Stats{RunStats: ranking.Stats(signals), TotalSnapshots: total}
	if len(batch) > 0 {
		st.RunID = batch[0].RunID
		st.Timestamp = batch[0].Timestamp
	}
	return st
}

// byRateDesc orders records the way the ranking does: absent rates last,
// ties keep rank order.
func byRateDesc(a, b core.ReportRecord) int {
	ra, rb := a.Signal.ChangeRate, b.Signal.ChangeRate
	switch {
	case ra.Valid && !rb.Valid:
		return -1
	case !ra.Valid && rb.Valid:
		return 1
	case ra.Valid && rb.Valid && ra.Value != rb.Value:
		if ra.Value > rb.Value {
			return -1
		}
		return 1
	}
	return a.Rank - b.Rank
}

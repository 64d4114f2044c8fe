// internal/storage/history/memory.go
package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// MemoryStore is an in-memory report store. It keeps at most maxSize
// records, dropping the oldest first.
type MemoryStore struct {
	records []core.ReportRecord
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryStore{maxSize: maxSize}
}

func sameKey(a core.ReportRecord, code string, ts time.Time) bool {
	return a.Signal.Code == code && a.Timestamp.Equal(ts)
}

// Save adds or replaces records.
func (m *MemoryStore) Save(ctx context.Context, records ...core.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		i := slices.IndexFunc(m.records, func(r core.ReportRecord) bool {
			return sameKey(r, rec.Signal.Code, rec.Timestamp)
		})
		if i >= 0 {
			m.records[i] = rec
			continue
		}
		m.records = append(m.records, rec)
	}

	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}
	return nil
}

func (m *MemoryStore) latest() []core.ReportRecord {
	var newest core.ReportRecord
	found := false
	for _, rec := range m.records {
		if !found || rec.Timestamp.After(newest.Timestamp) {
			newest = rec
			found = true
		}
	}
	if !found {
		return []core.ReportRecord{}
	}

	var batch []core.ReportRecord
	for _, rec := range m.records {
		if rec.RunID == newest.RunID {
			batch = append(batch, rec)
		}
	}
	slices.SortStableFunc(batch, byRateDesc)
	return batch
}

// LatestBatch returns the newest run's records.
func (m *MemoryStore) LatestBatch(ctx context.Context) ([]core.ReportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest(), nil
}

// Range returns records matching q.
func (m *MemoryStore) Range(ctx context.Context, q Query) ([]core.ReportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.ReportRecord{}
	for _, rec := range m.records {
		if q.matches(rec) {
			result = append(result, rec)
		}
	}
	slices.SortStableFunc(result, func(a, b core.ReportRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return a.Rank - b.Rank
	})
	return result, nil
}

// Stats aggregates the newest run.
func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make(map[string]struct{})
	for _, rec := range m.records {
		runs[rec.RunID] = struct{}{}
	}
	return batchStats(m.latest(), int64(len(runs))), nil
}

// UpdateAnalysis replaces news and analysis for the record at (code, ts).
func (m *MemoryStore) UpdateAnalysis(ctx context.Context, code string, ts time.Time, news []core.NewsItem, analysis core.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if sameKey(m.records[i], code, ts) {
			m.records[i].Signal.News = news
			m.records[i].Analysis = analysis
			return nil
		}
	}
	return core.ErrNotFound
}

// Prune drops records older than before.
func (m *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var n int64
	for _, rec := range m.records {
		if rec.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return n, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() {}

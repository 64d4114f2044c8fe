package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/history"
)

type fakeDisclosures struct {
	byCode map[string][]core.Disclosure
	err    map[string]error
}

func (f *fakeDisclosures) FetchDisclosures(ctx context.Context, code string, limit int) ([]core.Disclosure, error) {
	if err := f.err[code]; err != nil {
		return nil, err
	}
	return f.byCode[code], nil
}

func stored(code string, ts time.Time) core.ReportRecord {
	return core.ReportRecord{
		RunID:     "run-" + ts.Format("0102"),
		Timestamp: ts,
		Rank:      1,
		Signal: core.EnrichedSignal{
			RawSignal: raw(code, 20000, 10),
			News:      []core.NewsItem{{Title: "受注を獲得"}},
		},
	}
}

func TestReanalyzer_Run(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(0)

	done := stored("1111", fixedNow.Add(-time.Hour))
	done.Analysis.Earnings = &core.EarningsDetail{Reason: "済"}
	require.NoError(t, store.Save(ctx,
		done,
		stored("2222", fixedNow.Add(-2*time.Hour)),
		stored("3333", fixedNow.Add(-3*time.Hour)),
		stored("4444", fixedNow.Add(-4*time.Hour)),
		stored("5555", fixedNow.AddDate(0, 0, -30)),
	))

	disclosures := &fakeDisclosures{
		byCode: map[string][]core.Disclosure{
			"2222": {{Title: "業績予想の上方修正に関するお知らせ", Date: "10/16 15:00", URL: "https://example.com/a.pdf"}},
			"3333": {{Title: "自己株式の取得状況"}},
		},
		err: map[string]error{"4444": errors.New("timeout")},
	}
	insight := &fakeInsight{}

	r := NewReanalyzer(store, disclosures, insight, 0, nil)
	r.now = func() time.Time { return fixedNow }

	res, err := r.Run(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ReanalyzeResult{Analyzed: 2, Skipped: 1, Failed: 1}, res)
	assert.Equal(t, []string{"業績予想の上方修正に関するお知らせ"}, insight.titles)

	got, err := store.Range(ctx, history.Query{Code: "2222"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	news := got[0].Signal.News
	require.Len(t, news, 2)
	assert.True(t, strings.HasPrefix(news[0].Title, "【決算】決算発表：業績予想を上方修正。"))
	assert.True(t, strings.HasSuffix(news[0].Title, " - 増益"))
	assert.Equal(t, "10/16 15:00", news[0].Date)
	assert.Equal(t, reanalysisSource, news[0].Source)
	require.NotNil(t, got[0].Analysis.Earnings)
	assert.Equal(t, "増益", got[0].Analysis.Earnings.Reason)
	assert.NotEmpty(t, got[0].Analysis.Narrative)

	got, err = store.Range(ctx, history.Query{Code: "3333"})
	require.NoError(t, err)
	assert.Len(t, got[0].Signal.News, 1)
	assert.Nil(t, got[0].Analysis.Earnings)
	assert.NotEmpty(t, got[0].Analysis.Outlook)

	got, err = store.Range(ctx, history.Query{Code: "5555"})
	require.NoError(t, err)
	assert.Empty(t, got[0].Analysis.Narrative, "records outside the window are untouched")
}

func TestReanalyzer_RequiresStore(t *testing.T) {
	_, err := NewReanalyzer(nil, nil, nil, 0, nil).Run(context.Background(), 7)
	assert.Error(t, err)
}

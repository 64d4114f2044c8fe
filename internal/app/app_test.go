package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/archive"
)

const rankingHTML = `<html><body>
<table class="stock_table">
<tr><th>コード</th><th>市場</th><th></th><th></th><th>前日</th><th>PTS</th><th>前日比</th><th>%</th><th>出来高</th></tr>
<tr><td>6072</td><td>東Ｇ</td><td></td><td></td><td>248</td><td>328</td><td>+80</td><td>+32.3%</td><td>1,234,500</td></tr>
<tr><td>3350</td><td>東Ｓ</td><td></td><td></td><td>1,130</td><td>1,367</td><td>+237</td><td>+21.0%</td><td>900</td></tr>
</table>
</body></html>`

const newsHTML = `<html><body>
<table class="s_news_list">
<tr><td><time>26/01/05 15:30</time></td><td><div class="newslist_ctg">開示</div></td><td><a href="/disclosures/pdf/1/">業績予想の上方修正に関するお知らせ</a></td></tr>
<tr><td><time>26/01/05 12:00</time></td><td><div class="newslist_ctg">材料</div></td><td><a href="/news/1">【材料】地盤ネットが大型受注を獲得、ストップ高</a></td></tr>
</table>
</body></html>`

const profileHTML = `<html><body>
<h3>6072 地盤ネットホールディングス</h3>
<span class="market">東証グロース</span>
<span class="industry">サービス業</span>
</body></html>`

func upstream(t *testing.T, rankingStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var rankingHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ranking":
			rankingHits.Add(1)
			if rankingStatus != http.StatusOK {
				w.WriteHeader(rankingStatus)
				return
			}
			w.Write([]byte(rankingHTML))
		case "/stock/news":
			w.Write([]byte(newsHTML))
		case "/stock/":
			w.Write([]byte(profileHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &rankingHits
}

func testConfig(t *testing.T, base string) *config.Config {
	cfg := config.Defaults()
	cfg.Ranking.URL = base + "/ranking"
	cfg.Ranking.RetryDelay = 0
	cfg.Enrichment.BaseURL = base
	cfg.Enrichment.RequestDelay = 0
	cfg.Storage.Cold.Path = t.TempDir()
	cfg.Chart.Enabled = true
	return cfg
}

func TestApp_RunOnce_DryRun(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK)
	cfg := testConfig(t, srv.URL)
	var out bytes.Buffer

	a, err := New(context.Background(), cfg, nil, Options{DryRun: true, Out: &out})
	require.NoError(t, err)
	defer a.Close()

	ok := a.RunOnce(context.Background())
	require.True(t, ok, out.String())

	text := out.String()
	assert.Contains(t, text, "【PTS上昇ランキング")
	assert.Contains(t, text, "地盤ネットホールディングス")
	assert.Contains(t, text, "📑")
	assert.Contains(t, text, "📈 本日のPTSサマリー")
	assert.NotContains(t, text, "3350", "below the volume threshold")

	batch, err := a.History().LatestBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "6072", batch[0].Signal.Code)
	require.NotNil(t, batch[0].Analysis.Earnings)

	store, err := archive.NewLocalFS(cfg.Storage.Cold.Path)
	require.NoError(t, err)
	runs, err := store.List(context.Background(), archive.RunsPrefix)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	exists, err := store.Exists(context.Background(), archive.ChartPath("6072"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApp_RunOnce_FetchFailure(t *testing.T) {
	srv, hits := upstream(t, http.StatusServiceUnavailable)
	cfg := testConfig(t, srv.URL)
	cfg.Ranking.RetryCount = 2
	var out bytes.Buffer

	a, err := New(context.Background(), cfg, nil, Options{DryRun: true, Out: &out})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.RunOnce(context.Background()))
	assert.Equal(t, int32(2), hits.Load())
	assert.True(t, strings.Contains(out.String(), "⚠️ PTSランキング取得エラー"))
	assert.Contains(t, out.String(), "Failed to fetch PTS ranking data")
}

func TestApp_Reanalyze_EmptyHistory(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK)
	a, err := New(context.Background(), testConfig(t, srv.URL), nil, Options{DryRun: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Reanalyze(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, res.Analyzed+res.Skipped+res.Failed)
}

func TestApp_New_UnknownSource(t *testing.T) {
	cfg := config.Defaults()
	cfg.Ranking.Source = "nowhere"
	cfg.Storage.Cold.Type = ""

	a, err := New(context.Background(), cfg, nil, Options{DryRun: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Pipeline()
	assert.Error(t, err)
	assert.False(t, a.RunOnce(context.Background()))
}

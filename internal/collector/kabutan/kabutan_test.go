package kabutan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/collector"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/session"
)

const rankingHTML = `<html><body>
<table class="stock_table">
<tr><th>コード</th><th>市場</th><th></th><th></th><th>前日</th><th>PTS</th><th>前日比</th><th>%</th><th>出来高</th></tr>
<tr><td>6072</td><td>東Ｇ</td><td></td><td></td><td>248</td><td>328</td><td>+80</td><td>+32.3%</td><td>1,234,500</td></tr>
<tr><td>3350</td><td>東Ｓ</td><td></td><td></td><td>1,130</td><td>1,367</td><td>+237</td><td>+21.0%</td><td>--</td></tr>
<tr><td>名称なし</td><td>東Ｐ</td><td></td><td></td><td>100</td><td>110</td><td>+10</td><td>+10.0%</td><td>500</td></tr>
<tr><td>7777</td><td>東Ｓ</td><td>short row</td></tr>
<tr><td>4011</td><td>東Ｇ</td><td></td><td></td><td>--</td><td>--</td><td>+5</td><td>+2.0%</td></tr>
</table>
</body></html>`

func TestParse(t *testing.T) {
	doc, err := session.ParseHTML([]byte(rankingHTML))
	if err != nil {
		t.Fatal(err)
	}

	signals, err := Parse(doc, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(signals) != 3 {
		t.Fatalf("expected 3 signals, got %d: %+v", len(signals), signals)
	}

	first := signals[0]
	if first.Code != "6072" || first.Market != "東Ｇ" {
		t.Errorf("unexpected identity: %+v", first)
	}
	if first.Price != core.Some(328) || first.PrevClose != core.Some(248) {
		t.Errorf("unexpected prices: %+v", first)
	}
	if first.ChangeAmount != core.Some(80) || first.ChangeRate != core.Some(32.3) {
		t.Errorf("unexpected change: %+v", first)
	}
	if first.Volume != 1234500 {
		t.Errorf("expected volume 1234500, got %d", first.Volume)
	}
	if first.Name != "" {
		t.Errorf("ranking table carries no name, got %q", first.Name)
	}

	// Placeholder volume defaults to zero
	if signals[1].Code != "3350" || signals[1].Volume != 0 {
		t.Errorf("expected 3350 with zero volume, got %+v", signals[1])
	}

	// Placeholder prices are absent, missing volume column is zero
	last := signals[2]
	if last.Code != "4011" || last.Price.Valid || last.PrevClose.Valid || last.Volume != 0 {
		t.Errorf("unexpected placeholder handling: %+v", last)
	}
}

func TestParse_PreservesSourceOrder(t *testing.T) {
	html := `<table class="stock_table"><tr><th>h</th></tr>
<tr><td>1111</td><td>a</td><td></td><td></td><td>1</td><td>1</td><td>+1</td><td>+3.0%</td><td>100</td></tr>
<tr><td>2222</td><td>a</td><td></td><td></td><td>1</td><td>1</td><td>+1</td><td>+10.0%</td><td>100</td></tr>
</table>`
	doc, _ := session.ParseHTML([]byte(html))
	signals, err := Parse(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 2 || signals[0].Code != "1111" || signals[1].Code != "2222" {
		t.Errorf("expected source order, got %+v", signals)
	}
}

func TestParse_TableMissing(t *testing.T) {
	doc, _ := session.ParseHTML([]byte("<html><body><p>maintenance</p></body></html>"))
	_, err := Parse(doc, nil)
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestKabutan_FetchRanking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(rankingHTML))
	}))
	defer server.Close()

	k := New(collector.Config{URL: server.URL}, nil)
	defer k.Close()

	signals, err := k.FetchRanking(context.Background())
	if err != nil {
		t.Fatalf("FetchRanking failed: %v", err)
	}
	if len(signals) != 3 {
		t.Errorf("expected 3 signals, got %d", len(signals))
	}
}

func TestKabutan_SharesLimitersWithOtherSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rankingHTML))
	}))
	defer server.Close()

	interval := 50 * time.Millisecond
	limiters := session.NewLimiters(interval)
	k := New(collector.Config{URL: server.URL, Limiters: limiters}, nil)
	defer k.Close()
	pages := session.New("pages", session.WithLimiters(limiters))
	defer pages.Close()

	start := time.Now()
	if _, err := k.FetchRanking(context.Background()); err != nil {
		t.Fatalf("FetchRanking failed: %v", err)
	}
	if _, err := pages.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := k.FetchRanking(context.Background()); err != nil {
		t.Fatalf("FetchRanking failed: %v", err)
	}
	// Three requests to one origin need at least two intervals.
	if elapsed := time.Since(start); elapsed < 2*interval-5*time.Millisecond {
		t.Errorf("ranking fetch bypassed the shared limiter: elapsed %v", elapsed)
	}
}

func TestKabutan_RetriedThroughFetcher(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(rankingHTML))
	}))
	defer server.Close()

	k := New(collector.Config{URL: server.URL}, nil)
	defer k.Close()

	f := collector.NewFetcher(k, collector.RetryPolicy{Attempts: 3}, nil, nil)
	signals, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected success on attempt 3, got %v", err)
	}
	if calls != 3 || len(signals) != 3 {
		t.Errorf("expected 3 calls and 3 signals, got %d calls and %d signals", calls, len(signals))
	}
}

func TestKabutan_Name(t *testing.T) {
	var _ collector.Source = (*Kabutan)(nil)

	k := New(collector.Config{}, nil)
	defer k.Close()
	if k.Name() != "kabutan" {
		t.Errorf("expected kabutan, got %s", k.Name())
	}
	if !strings.HasPrefix(k.url, "https://kabutan.jp/") {
		t.Errorf("expected default url, got %s", k.url)
	}
}

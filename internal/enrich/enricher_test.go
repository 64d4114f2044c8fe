package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pctx "github.com/Ken-helpme/pts-ranking-reporter/internal/context"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNews struct {
	fail map[string]bool
}

func (s *stubNews) FetchNews(ctx context.Context, code string, limit int) ([]core.NewsItem, error) {
	if s.fail[code] {
		return nil, errors.New("news timeout")
	}
	return []core.NewsItem{{Title: "【材料】" + code + "が受注"}}, nil
}

type stubProfiles struct {
	err error
}

func (s *stubProfiles) FetchProfile(ctx context.Context, code string) (core.CompanyProfile, error) {
	if s.err != nil {
		return core.CompanyProfile{}, s.err
	}
	return core.CompanyProfile{Name: "銘柄" + code, Industry: "情報・通信"}, nil
}

type stubDisclosures struct {
	delay map[string]time.Duration
}

func (s *stubDisclosures) FetchDisclosures(ctx context.Context, code string, limit int) ([]core.Disclosure, error) {
	if d := s.delay[code]; d > 0 {
		time.Sleep(d)
	}
	return []core.Disclosure{
		{Title: "役員人事"},
		{Title: "業績予想の上方修正", URL: "https://kabutan.jp/disclosures/pdf/x/"},
	}, nil
}

type gapCounter struct {
	mu    sync.Mutex
	parts []string
}

func (g *gapCounter) RecordEnrichmentGap(part string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parts = append(g.parts, part)
}

var _ pctx.NewsProvider = (*stubNews)(nil)

func TestEnricher_EnrichOne(t *testing.T) {
	e := New(&stubNews{}, &stubProfiles{}, &stubDisclosures{}, Config{MaxNews: 3, MaxDisclosures: 5}, nil, nil)

	es := e.EnrichOne(context.Background(), core.RawSignal{Code: "6072", Market: "東Ｇ"})

	assert.Equal(t, "銘柄6072", es.Name, "name resolved from profile")
	assert.Len(t, es.News, 1)
	assert.Equal(t, "情報・通信", es.Company.Industry)
	assert.Equal(t, "東Ｇ", es.Company.Market)
	require.Len(t, es.Disclosures, 2)
	assert.Equal(t, core.DisclosureOther, es.Disclosures[0].Kind)
	assert.Equal(t, core.DisclosureEarnings, es.Disclosures[1].Kind)
	assert.Equal(t, "決算発表：業績予想を上方修正。詳細は開示資料を参照。", es.EarningsSummary)
}

func TestEnricher_KeepsExistingName(t *testing.T) {
	e := New(nil, &stubProfiles{}, nil, Config{}, nil, nil)
	es := e.EnrichOne(context.Background(), core.RawSignal{Code: "6072", Name: "地盤ネット"})
	assert.Equal(t, "地盤ネット", es.Name)
}

func TestEnricher_FailureIsolation(t *testing.T) {
	gaps := &gapCounter{}
	e := New(
		&stubNews{fail: map[string]bool{"2222": true}},
		&stubProfiles{err: errors.New("profile 503")},
		&stubDisclosures{},
		Config{MaxNews: 3},
		nil,
		gaps,
	)

	out := e.Enrich(context.Background(), []core.RawSignal{{Code: "1111"}, {Code: "2222"}})
	require.Len(t, out, 2)

	// Failed news for 2222 does not affect its disclosures or 1111's news
	assert.Len(t, out[0].News, 1)
	assert.Empty(t, out[1].News)
	assert.Len(t, out[1].Disclosures, 2)

	// Profile failures leave an empty profile
	assert.True(t, out[0].Company.IsEmpty())
	assert.Empty(t, out[0].Name)

	assert.ElementsMatch(t, []string{PartNews, PartProfile, PartProfile}, gaps.parts)
}

func TestEnricher_WorkerPoolPreservesOrder(t *testing.T) {
	delays := map[string]time.Duration{
		"1111": 30 * time.Millisecond,
		"2222": 10 * time.Millisecond,
		"3333": 0,
	}
	e := New(&stubNews{}, nil, &stubDisclosures{delay: delays}, Config{Workers: 3}, nil, nil)

	in := []core.RawSignal{{Code: "1111"}, {Code: "2222"}, {Code: "3333"}}
	out := e.Enrich(context.Background(), in)

	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i].Code, out[i].Code)
	}
}

func TestEnricher_NoProviders(t *testing.T) {
	e := New(nil, nil, nil, Config{}, nil, nil)
	out := e.Enrich(context.Background(), []core.RawSignal{{Code: "1111", Name: "テスト"}})
	require.Len(t, out, 1)
	assert.Equal(t, "テスト", out[0].Name)
	assert.Empty(t, out[0].EarningsSummary)
}

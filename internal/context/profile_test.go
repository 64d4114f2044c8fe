// internal/context/profile_test.go
package context

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/cache"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

type countingProfileProvider struct {
	calls   int
	profile core.CompanyProfile
	err     error
}

func (c *countingProfileProvider) FetchProfile(ctx context.Context, code string) (core.CompanyProfile, error) {
	c.calls++
	return c.profile, c.err
}

func TestCachedProfileProvider(t *testing.T) {
	inner := &countingProfileProvider{profile: core.CompanyProfile{Name: "地盤ネット", Industry: "サービス業"}}
	cached := NewCachedProfileProvider(inner, cache.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	p1, err := cached.FetchProfile(ctx, "6072")
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	p2, err := cached.FetchProfile(ctx, "6072")
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	if p1 != p2 || p2.Industry != "サービス業" {
		t.Errorf("cached profile mismatch: %+v vs %+v", p1, p2)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}
}

func TestCachedProfileProvider_ErrorNotCached(t *testing.T) {
	inner := &countingProfileProvider{err: errors.New("timeout")}
	cached := NewCachedProfileProvider(inner, cache.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	if _, err := cached.FetchProfile(ctx, "6072"); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	inner.profile = core.CompanyProfile{Market: "東証グロース"}
	p, err := cached.FetchProfile(ctx, "6072")
	if err != nil || p.Market != "東証グロース" {
		t.Errorf("expected fresh profile after error, got %+v, %v", p, err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", inner.calls)
	}
}

func TestCachedProfileProvider_EmptyNotCached(t *testing.T) {
	inner := &countingProfileProvider{}
	cached := NewCachedProfileProvider(inner, cache.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	cached.FetchProfile(ctx, "6072")
	cached.FetchProfile(ctx, "6072")
	if inner.calls != 2 {
		t.Errorf("empty profile should not be cached, got %d calls", inner.calls)
	}
}

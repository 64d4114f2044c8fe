// internal/context/profile.go
package context

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/cache"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"go.uber.org/zap"
)

// CachedProfileProvider wraps a profile provider with a TTL cache. Company
// profiles change rarely, so they are reused across runs.
type CachedProfileProvider struct {
	provider ProfileProvider
	store    cache.Store
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedProfileProvider creates a cached profile provider.
func NewCachedProfileProvider(provider ProfileProvider, store cache.Store, ttl time.Duration, logger *zap.Logger) *CachedProfileProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProfileProvider{
		provider: provider,
		store:    store,
		ttl:      ttl,
		logger:   logger,
	}
}

// FetchProfile returns the cached profile when present, otherwise fetches
// and caches it. Cache failures fall through to the provider.
func (p *CachedProfileProvider) FetchProfile(ctx context.Context, code string) (core.CompanyProfile, error) {
	key := "profile:" + code

	if data, found, err := p.store.Get(ctx, key); err != nil {
		p.logger.Warn("profile cache read failed", zap.String("code", code), zap.Error(err))
	} else if found {
		var profile core.CompanyProfile
		if err := json.Unmarshal(data, &profile); err == nil {
			return profile, nil
		}
	}

	profile, err := p.provider.FetchProfile(ctx, code)
	if err != nil {
		return core.CompanyProfile{}, err
	}

	// Empty profiles usually mean a layout change; do not pin them.
	if profile.IsEmpty() && profile.Name == "" {
		return profile, nil
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return profile, nil
	}
	if err := p.store.Set(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn("profile cache write failed", zap.String("code", code), zap.Error(err))
	}
	return profile, nil
}

package session

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiters enforces a minimum interval between consecutive requests to the
// same origin. One Limiters value is shared by every session of a run so the
// interval holds even when enrichment runs on several workers.
type Limiters struct {
	mu       sync.Mutex
	interval time.Duration
	byOrigin map[string]*rate.Limiter
}

// NewLimiters creates a per-origin limiter set. A non-positive interval
// disables limiting.
func NewLimiters(interval time.Duration) *Limiters {
	return &Limiters{
		interval: interval,
		byOrigin: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to u's origin is allowed.
func (l *Limiters) Wait(ctx context.Context, u *url.URL) error {
	if l == nil || l.interval <= 0 {
		return nil
	}
	return l.get(origin(u)).Wait(ctx)
}

func (l *Limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.byOrigin[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.byOrigin[key] = lim
	}
	return lim
}

func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

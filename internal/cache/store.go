// Package cache is a small byte-oriented key/value cache with memory and
// redis backends.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store is a TTL cache. A non-positive ttl means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the configured store. It returns nil when caching is disabled.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

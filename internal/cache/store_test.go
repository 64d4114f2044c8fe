package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "profile:6072", []byte(`{"industry":"サービス業"}`), 0))

	v, found, err := s.Get(ctx, "profile:6072")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"industry":"サービス業"}`, string(v))

	require.NoError(t, s.Delete(ctx, "profile:6072"))
	_, found, err = s.Get(ctx, "profile:6072")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 5, 17, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	_, found, _ := s.Get(ctx, "k")
	assert.True(t, found)

	now = now.Add(2 * time.Minute)
	_, found, _ = s.Get(ctx, "k")
	assert.False(t, found, "entry should expire after ttl")
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", []byte("abc"), 0))

	v, _, _ := s.Get(ctx, "k")
	v[0] = 'x'

	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestNew(t *testing.T) {
	s, err := New(config.CacheConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(config.CacheConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(config.CacheConfig{Type: "redis", Redis: config.RedisConfig{Addr: "localhost:6379", Prefix: "pts:"}})
	require.NoError(t, err)
	rs, ok := s.(*RedisStore)
	require.True(t, ok)
	assert.Equal(t, "pts:", rs.prefix)
	require.NoError(t, rs.Close())

	_, err = New(config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)
}

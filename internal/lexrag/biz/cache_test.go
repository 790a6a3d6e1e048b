package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheDisabled(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	ctx := context.Background()

	_, err := cache.Get(ctx, "any question")
	require.Error(t, err)

	// Writes and clears are no-ops when the cache is off.
	assert.NoError(t, cache.Set(ctx, "any question", nil))
	assert.NoError(t, cache.Clear(ctx))

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, stats["enabled"])
}

func TestQueryCacheEnabledWithoutRedis(t *testing.T) {
	cache := NewQueryCache(nil, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:",
	})

	// A nil client degrades identically to a disabled cache.
	_, err := cache.Get(context.Background(), "q")
	require.Error(t, err)
	assert.NoError(t, cache.Set(context.Background(), "q", nil))
}

func TestQueryCacheKeyIsHashed(t *testing.T) {
	cache := NewQueryCache(nil, &QueryCacheConfig{KeyPrefix: "lexrag:query:"})

	key := cache.cacheKey("What is a Zero FIR?")
	assert.Contains(t, key, "lexrag:query:")
	// prefix + 64 hex chars of SHA-256
	assert.Len(t, key, len("lexrag:query:")+64)
	assert.Equal(t, key, cache.cacheKey("What is a Zero FIR?"))
	assert.NotEqual(t, key, cache.cacheKey("What is an FIR?"))
}

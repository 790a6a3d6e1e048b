package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// EmbeddingCacheConfig configures the embedding cache wrapper.
type EmbeddingCacheConfig struct {
	// Enabled toggles the cache as a whole.
	Enabled bool
	// TTL is the redis expiry for cached embeddings.
	TTL time.Duration
	// KeyPrefix namespaces the redis keys.
	KeyPrefix string
	// LocalSize is the capacity of the in-process LRU in front of redis.
	// Zero disables the local layer.
	LocalSize int
}

// DefaultEmbeddingCacheConfig returns the default cache configuration.
// Embeddings for a fixed model are stable, so the TTL is generous.
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
		LocalSize: 4096,
	}
}

// CachedEmbeddingProvider wraps an EmbeddingProvider with a two-level
// cache: an in-process LRU first, redis second. Either level may be absent;
// cache failures degrade to calling the underlying provider.
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    *goredis.Client
	local    *lru.Cache[string, []float32]
	config   *EmbeddingCacheConfig
}

// NewCachedEmbeddingProvider creates a cached embedding provider. redis may
// be nil to run with the local layer only.
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis *goredis.Client,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	var local *lru.Cache[string, []float32]
	if config.Enabled && config.LocalSize > 0 {
		// lru.New only fails on a non-positive size.
		local, _ = lru.New[string, []float32](config.LocalSize)
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		local:    local,
		config:   config,
	}
}

// cacheKey hashes provider, embedding model and text together. Keys from
// one provider or model never collide with another's, so a configuration
// change can only miss, never serve a stale vector within the TTL.
func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.provider.Name()))
	h.Write([]byte{0})
	if m, ok := c.provider.(EmbedModeler); ok {
		h.Write([]byte(m.EmbedModel()))
	}
	h.Write([]byte{0})
	h.Write([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// EmbedModel returns the underlying provider's embedding model, when known.
func (c *CachedEmbeddingProvider) EmbedModel() string {
	if m, ok := c.provider.(EmbedModeler); ok {
		return m.EmbedModel()
	}
	return ""
}

func (c *CachedEmbeddingProvider) lookup(ctx context.Context, key string) ([]float32, bool) {
	if c.local != nil {
		if embedding, ok := c.local.Get(key); ok {
			return embedding, true
		}
	}
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("redis get error, falling back to provider", "error", err.Error())
		}
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		logger.Warnw("failed to unmarshal cached embedding, deleting", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	if c.local != nil {
		c.local.Add(key, embedding)
	}
	return embedding, true
}

func (c *CachedEmbeddingProvider) store(ctx context.Context, key string, embedding []float32) {
	if c.local != nil {
		c.local.Add(key, embedding)
	}
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return
	}
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", key)
	}
}

// EmbedSingle generates one embedding, consulting the cache first.
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled {
		return c.provider.EmbedSingle(ctx, text)
	}

	key := c.cacheKey(text)
	if embedding, ok := c.lookup(ctx, key); ok {
		logger.Debugw("embedding cache hit", "text_length", len(text), "key", key)
		return embedding, nil
	}

	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, embedding)
	return embedding, nil
}

// Embed generates embeddings for a batch, fetching only the cache misses
// from the underlying provider.
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return c.provider.Embed(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	var uncachedIndices []int
	var uncachedTexts []string

	for i, text := range texts {
		if embedding, ok := c.lookup(ctx, c.cacheKey(text)); ok {
			embeddings[i] = embedding
			continue
		}
		uncachedIndices = append(uncachedIndices, i)
		uncachedTexts = append(uncachedTexts, text)
	}

	if len(uncachedTexts) == 0 {
		logger.Infow("all embeddings from cache", "total", len(texts))
		return embeddings, nil
	}

	logger.Infow("embedding cache miss (batch)", "total", len(texts), "uncached", len(uncachedTexts))
	fetched, err := c.provider.Embed(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}
	for i, idx := range uncachedIndices {
		embeddings[idx] = fetched[i]
		c.store(ctx, c.cacheKey(uncachedTexts[i]), fetched[i])
	}
	return embeddings, nil
}

// Name returns the underlying provider name with a cache suffix.
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// ClearCache removes all cached embeddings from both layers.
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	if c.local != nil {
		c.local.Purge()
	}
	if c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}
	logger.Infow("cleared embedding cache", "deleted_count", deleted)
	return nil
}

// GetCacheStats reports cache configuration and key counts.
func (c *CachedEmbeddingProvider) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"enabled":    c.config.Enabled,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
		"provider":   c.provider.Name(),
	}
	if !c.config.Enabled {
		return stats, nil
	}
	if c.local != nil {
		stats["local_keys"] = c.local.Len()
		stats["local_size"] = c.config.LocalSize
	}
	if c.redis != nil {
		iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
		count := 0
		for iter.Next(ctx) {
			count++
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		stats["redis_keys"] = count
	}
	return stats, nil
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisEmbeddingCache caches embedding vectors in Redis keyed by a hash of
// the input text. Regulation texts are embedded on every index rebuild, so
// the cache saves the bulk of GigaChat traffic.
type RedisEmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisEmbeddingCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisEmbeddingCache {
	return &RedisEmbeddingCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (c *RedisEmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.client.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Embedding cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		c.logger.Warn("Corrupt cache entry, ignoring", zap.Error(err))
		return nil, false
	}

	return embedding, true
}

func (c *RedisEmbeddingCache) Set(ctx context.Context, text string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, cacheKey(text), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.Error(err))
	}
}

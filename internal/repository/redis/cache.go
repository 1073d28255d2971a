package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationCachePrefix = "generation:"
	defaultGenerationTTL  = time.Hour
)

// GenerationCache remembers remote generation output so repeated identical requests do
// not spend provider quota. Fallback output is never stored.
type GenerationCache struct {
	client *Client
	ttl    time.Duration
}

// NewGenerationCache creates a new generation cache
func NewGenerationCache(client *Client, ttl time.Duration) *GenerationCache {
	if ttl <= 0 {
		ttl = defaultGenerationTTL
	}
	return &GenerationCache{client: client, ttl: ttl}
}

// Key builds a stable cache key from the request parts
func (c *GenerationCache) Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return generationCachePrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached text; ok is false on a miss
func (c *GenerationCache) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := c.client.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read generation cache: %w", err)
	}
	return text, true, nil
}

// Set stores text under key
func (c *GenerationCache) Set(ctx context.Context, key, text string) error {
	return c.client.rdb.Set(ctx, key, text, c.ttl).Err()
}

// FlushAll removes all cached generations
func (c *GenerationCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := generationCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

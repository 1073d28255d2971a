package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Client is the shared connection used by the generation cache, the
// rate limiter and the session change relay.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and fails fast when the server is unreachable
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping is registered as the redis readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter is a Counter shared across app instances. Each key is an
// INCR'd integer that expires with its window.
type RedisCounter struct {
	client   *redis.Client
	prefix   string
	limit    int64
	duration time.Duration
}

// NewRedisCounter allows limit requests per duration; keys are namespaced by prefix.
func NewRedisCounter(client *redis.Client, prefix string, limit int, duration time.Duration) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix, limit: int64(limit), duration: duration}
}

func (c *RedisCounter) Allow(ctx context.Context, key string) (bool, error) {
	k := c.prefix + key
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX keeps the window anchored at the first hit.
	pipe.ExpireNX(ctx, k, c.duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= c.limit, nil
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

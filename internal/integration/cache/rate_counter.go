package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "ratelimit:"

// RedisWindowCounter counts fixed-window hits in Redis so every API
// instance shares the same limits.
type RedisWindowCounter struct {
	client *redis.Client
}

func NewRedisWindowCounter(client *redis.Client) *RedisWindowCounter {
	return &RedisWindowCounter{client: client}
}

// Hit increments key. The first hit of a window sets the expiry.
func (c *RedisWindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	key = rateKeyPrefix + key

	hits, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count %s: %w", key, err)
	}
	if hits == 1 {
		if err := c.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to expire %s: %w", key, err)
		}
		return hits, window, nil
	}

	remaining, err := c.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read ttl of %s: %w", key, err)
	}
	if remaining < 0 {
		// A key left without expiry would block forever.
		c.client.PExpire(ctx, key, window)
		remaining = window
	}
	return hits, remaining, nil
}

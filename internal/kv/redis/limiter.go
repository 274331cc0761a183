package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter implements fixed-window rate limiting on Redis. Each key holds a
// counter that expires with the window.
type Limiter struct {
	rdb *redis.Client
}

// NewLimiter creates a Limiter backed by the given Client.
func NewLimiter(c *Client) *Limiter {
	return &Limiter{rdb: c.Underlying()}
}

// Allow increments the counter for key and reports whether it is still
// within limit. The first hit in a window sets the expiry.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}

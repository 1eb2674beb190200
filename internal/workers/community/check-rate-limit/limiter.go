package checkratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Window is the state of one fixed window after a hit was counted.
type Window struct {
	Count      int64
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed windows that start at the first hit.
type Limiter struct {
	redis *redis.Client
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{redis: rdb}
}

func Key(action, viewerID string) string {
	return keyPrefix + action + ":" + viewerID
}

// Hit counts one action and reports the window. RetryAfter is only filled once count exceeds limit.
func (l *Limiter) Hit(ctx context.Context, key string, limit int, window time.Duration) (*Window, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return nil, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	w := &Window{Count: count}
	if count <= int64(limit) {
		return w, nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("ttl %s: %w", key, err)
	}
	// A key without expiry would block forever; restart its window.
	if ttl < 0 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return nil, fmt.Errorf("expire %s: %w", key, err)
		}
		ttl = window
	}
	w.RetryAfter = ttl
	return w, nil
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

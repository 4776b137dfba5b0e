package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit"

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int
	ResetAt   time.Time
	Remaining int
}

// Limiter is a fixed-window request counter stored in Redis so that every
// replica shares the same budget per client.
type Limiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(rdb redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *Limiter) windowStart(t time.Time) time.Time {
	return t.Truncate(l.window)
}

func (l *Limiter) key(client string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, client, start.UnixMilli())
}

// Allow counts one request for client in the current window. The error is
// non-nil only when Redis could not be reached; callers decide whether to fail
// open.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	start := l.windowStart(l.now())
	key := l.key(client, start)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit}, fmt.Errorf("rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{Allowed: true, Count: count, Limit: l.limit}, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.limit),
		Count:     count,
		Limit:     l.limit,
		ResetAt:   start.Add(l.window),
		Remaining: remaining,
	}, nil
}

package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Окно фиксированное: TTL ставится только на первый INCR, поэтому
// постоянные попытки не продлевают блокировку.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter counts hits per key in a fixed window. Used for sign-in
// attempts (rl:signin:<phone digits>) and notifier sends (rl:notify:<minute>).
type RateLimiter struct {
	c *redis.Client
}

func NewRateLimiter(addr string) *RateLimiter {
	return NewRateLimiterWithClient(Dial(addr))
}

func NewRateLimiterWithClient(c *redis.Client) *RateLimiter {
	return &RateLimiter{c: c}
}

// Allow returns whether the hit fits into limit and the count so far.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	n, err := fixedWindow.Run(ctx, rl.c, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	return n <= limit, n, nil
}

// Reset clears the counter, used after a successful sign-in.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(rl.c.Del(ctx, key).Err(), "redis ratelimit reset")
}

func (rl *RateLimiter) Close() error {
	return rl.c.Close()
}

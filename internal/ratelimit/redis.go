package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// countScript increments the window counter and pins its expiry to the window end.
var countScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIREAT", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter shares window counters between replicas through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow counts one request for decision.Key in window.
func (l *RedisLimiter) Allow(ctx context.Context, decision Decision, window Window) (Result, error) {
	if !decision.Enforced() || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	count, errRun := countScript.Run(ctx, l.client, []string{l.key(decision.Key, window)}, window.End.UnixMilli()).Int64()
	if errRun != nil {
		return Result{}, fmt.Errorf("rate limit redis: count: %w", errRun)
	}
	return tally(decision, count, window), nil
}

func (l *RedisLimiter) key(key string, window Window) string {
	parts := []string{key, window.ID()}
	if l.prefix != "" {
		parts = append([]string{l.prefix}, parts...)
	}
	return strings.Join(parts, ":")
}

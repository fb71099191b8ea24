package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"company-service/internal/client"
	"company-service/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// slidingWindowScript keeps request timestamps in a sorted set and
// admits a request only while the window holds fewer than limit
// entries. Eviction, count and insert happen atomically.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, now)
	redis.call('EXPIRE', key, math.ceil(tonumber(ARGV[4])))
	return {1, current + 1}
end
return {0, current}
`

// RateLimitCache throttles repeatable public operations, currently OTP
// issuance per email. Keys expire with the window so idle entries cost
// nothing.
type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Allow reports whether another request fits the sliding window for
// key, admitting it when it does.
func (c *RateLimitCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	ctx, cancel := c.client.WithContext(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	result, err := c.client.Eval(ctx, slidingWindowScript,
		[]string{rateLimitPrefix + key},
		now, windowStart, limit, int(window.Seconds()))
	if err != nil {
		util.Error("Sliding window rate limit failed",
			zap.String("key", key),
			zap.Int("limit", limit),
			zap.Duration("window", window),
			zap.Error(err))
		return false, 0, fmt.Errorf("sliding window rate limit failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", result)
	}

	allowed := resultSlice[0].(int64) == 1
	count := int(resultSlice[1].(int64))

	if !allowed {
		util.Warn("Rate limit hit",
			zap.String("key", key),
			zap.Int("count", count),
			zap.Int("limit", limit))
	}

	return allowed, count, nil
}

// Reset clears the window for key
func (c *RateLimitCache) Reset(ctx context.Context, key string) error {
	ctx, cancel := c.client.WithContext(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, rateLimitPrefix+key); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

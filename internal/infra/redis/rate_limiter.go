package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradematch/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// slidingWindowScript trims entries older than the window, then admits the
// request if fewer than limit remain. All times are unix milliseconds.
// Returns {allowed, remaining, retry_after_ms}.
const slidingWindowScript = `
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  return {1, limit - count - 1, 0}
end

local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`

// RateLimiter is a sliding-window limiter shared by all replicas.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*adapter.RateLimitResult, error) {
	if limit <= 0 || window <= 0 {
		return &adapter.RateLimitResult{Allowed: true, Limit: limit}, nil
	}
	res, err := r.client.Eval(ctx, slidingWindowScript, []string{key},
		r.now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("rate limit eval: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return nil, fmt.Errorf("rate limit eval: unexpected reply %T", res)
	}
	allowed, _ := vals[0].(int64)
	remaining, _ := vals[1].(int64)
	retryMs, _ := vals[2].(int64)

	out := &adapter.RateLimitResult{
		Allowed:   allowed == 1,
		Limit:     limit,
		Remaining: int(remaining),
	}
	if !out.Allowed {
		out.RetryAfter = time.Duration(retryMs) * time.Millisecond
		if out.RetryAfter <= 0 {
			out.RetryAfter = time.Second
		}
	}
	return out, nil
}

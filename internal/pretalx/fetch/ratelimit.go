package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter throttles outbound requests to a configured sustained rate.
// Wait blocks until a token is available or ctx is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket is the default in-process limiter: calls tokens refill
// every period, up to burst. No third-party rate-limiting library
// appears anywhere in the retrieval pack (see DESIGN.md), so this is
// hand-rolled over stdlib sync/time, same as pytanis's own `throttle`
// decorator is a hand-rolled wrapper in the teacher's spirit.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	refillPerSec float64
	last     time.Time
	now      func() time.Time
}

// NewTokenBucket builds a bucket that allows `calls` requests per
// `seconds`, bursting up to burst. calls/seconds default to pytanis's
// own default of 2 calls per second (client.py's set_throttling(2, 1)).
func NewTokenBucket(calls, seconds, burst int) *TokenBucket {
	if calls <= 0 {
		calls = 2
	}
	if seconds <= 0 {
		seconds = 1
	}
	if burst <= 0 {
		burst = calls
	}
	return &TokenBucket{
		tokens:       float64(burst),
		burst:        float64(burst),
		refillPerSec: float64(calls) / float64(seconds),
		last:         time.Now(),
		now:          time.Now,
	}
}

// Wait blocks until a token is available, or returns ctx.Err() if
// cancelled first.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.now()
		elapsed := now.Sub(b.last).Seconds()
		b.tokens = min(b.burst, b.tokens+elapsed*b.refillPerSec)
		b.last = now

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}

		deficit := 1 - b.tokens
		wait := time.Duration(deficit/b.refillPerSec*float64(time.Second)) + time.Millisecond
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// redisTokenBucketScript mirrors the Lua token-bucket pattern from
// iliyamo-cinema-seat-reservation's inbound rate-limit middleware,
// adapted here for an outbound client shared across processes. KEYS[1]
// is the bucket key; ARGV is (burst, refillPerSec, now).
const redisTokenBucketScript = `
local key = KEYS[1]
local burst = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(bucket[1])
local ts = tonumber(bucket[2])

if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + elapsed * refill)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("EXPIRE", key, 60)

return allowed
`

// RedisTokenBucket backs the optional distributed rate-limit mode
// (RateLimit.Distributed in config), so multiple client processes
// hitting the same upstream share one budget.
type RedisTokenBucket struct {
	client       *redis.Client
	key          string
	burst        float64
	refillPerSec float64
	pollInterval time.Duration
}

// NewRedisTokenBucket builds a distributed limiter backed by client.
func NewRedisTokenBucket(client *redis.Client, key string, calls, seconds, burst int) *RedisTokenBucket {
	if calls <= 0 {
		calls = 2
	}
	if seconds <= 0 {
		seconds = 1
	}
	if burst <= 0 {
		burst = calls
	}
	return &RedisTokenBucket{
		client:       client,
		key:          key,
		burst:        float64(burst),
		refillPerSec: float64(calls) / float64(seconds),
		pollInterval: 50 * time.Millisecond,
	}
}

// Wait blocks until the shared Redis bucket grants a token.
func (b *RedisTokenBucket) Wait(ctx context.Context) error {
	script := redis.NewScript(redisTokenBucketScript)
	for {
		now := float64(time.Now().UnixMilli()) / 1000.0
		res, err := script.Run(ctx, b.client, []string{b.key}, b.burst, b.refillPerSec, now).Result()
		if err != nil {
			return err
		}
		if allowed, ok := res.(int64); ok && allowed == 1 {
			return nil
		}

		timer := time.NewTimer(b.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

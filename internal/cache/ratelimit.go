package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUserPrefix = "ratelimit:user:"
	rateLimitIPPrefix   = "ratelimit:ip:"
)

// Bucket names a token bucket and its refill policy.
type Bucket struct {
	Key   string
	Rate  float64 // tokens per second
	Burst int
}

// UserBucket is the per-user bucket on the AI routes, keyed by Clerk user ID.
func UserBucket(userID string, perMinute, burst int) Bucket {
	return Bucket{Key: rateLimitUserPrefix + userID, Rate: float64(perMinute) / 60, Burst: burst}
}

// IPBucket is the per-client bucket in front of authentication. The address
// is hashed so raw IPs never reach Redis.
func IPBucket(ip string, perSecond, burst int) Bucket {
	return Bucket{Key: rateLimitIPPrefix + hashIP(ip), Rate: float64(perSecond), Burst: burst}
}

// Unlimited reports whether the bucket never denies.
func (b Bucket) Unlimited() bool {
	return b.Rate <= 0
}

// ttl keeps an idle bucket just long enough to refill completely.
func (b Bucket) ttl() time.Duration {
	fill := time.Duration(float64(b.Burst) / b.Rate * float64(time.Second))
	return fill + time.Second
}

// RateLimitResult is the outcome of taking one token.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration // zero when allowed
	ResetAt    time.Time     // when the bucket is full again
}

// tokenBucketScript refills and takes a token atomically. Times are in
// milliseconds so refill does not jump at second boundaries.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
	tokens = math.min(burst, tokens + (now - ts) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', key, ttl)

local full = math.ceil((burst - tokens) / rate)
return {allowed, wait, math.floor(tokens), full}
`)

// Take consumes one token from b. Redis failures are returned so the caller
// decides whether to fail open.
func (c *Cache) Take(ctx context.Context, b Bucket) (*RateLimitResult, error) {
	now := c.now()
	if b.Unlimited() {
		return &RateLimitResult{Allowed: true, Remaining: int64(b.Burst), ResetAt: now}, nil
	}
	burst := max(b.Burst, 1)

	res, err := tokenBucketScript.Run(ctx, c.client,
		[]string{b.Key},
		b.Rate/1000, burst, now.UnixMilli(), b.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
	}, nil
}

// RetryAfterSeconds rounds a wait up to whole seconds for Retry-After.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// hashIP returns the first 8 bytes of SHA-256(ip) as hex.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

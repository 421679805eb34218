package security

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenBucket throttles statement reads per caller key. Bucket state
// lives in Redis, so every API replica draws from the same bucket and a
// caller cannot multiply their quota by spreading requests across replicas.
type RedisTokenBucket struct {
	Redis      *redis.Client
	Prefix     string
	Capacity   int
	RefillRate float64 // tokens per second
}

var errBucketReply = errors.New("unexpected token bucket reply")

// refillAndTake refills the bucket for the elapsed time, then takes one
// token if at least one is available. Refill and take run in one script so
// concurrent requests for the same key cannot interleave between them.
var refillAndTake = redis.NewScript(`
local bucket = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', bucket, 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])

if tokens == nil then tokens = capacity end
if last == nil then last = now end

local elapsed = now - last
if elapsed < 0 then elapsed = 0 end

tokens = tokens + (elapsed * rate)
if tokens > capacity then tokens = capacity end

local taken = 0
if tokens >= 1 then
  taken = 1
  tokens = tokens - 1
end

redis.call('HSET', bucket, 'tokens', tokens, 'last', now)
redis.call('EXPIRE', bucket, ttl)

return {taken, tokens}
`)

func (l *RedisTokenBucket) bucketKey(raw string) string {
	if l.Prefix == "" {
		return raw
	}
	return l.Prefix + ":" + raw
}

// Allow takes one token for rawKey. It reports whether the request may
// proceed and how many whole tokens remain. An unconfigured limiter allows
// everything.
func (l *RedisTokenBucket) Allow(ctx context.Context, rawKey string) (bool, int, error) {
	if l.Redis == nil || l.Capacity <= 0 || l.RefillRate <= 0 {
		return true, 0, nil
	}

	now := float64(time.Now().UnixNano()) / 1e9
	// Keep state just long enough for an idle bucket to refill completely.
	ttl := int64(float64(l.Capacity)/l.RefillRate) + 1

	res, err := refillAndTake.Run(ctx, l.Redis,
		[]string{l.bucketKey(rawKey)}, l.Capacity, l.RefillRate, now, ttl).Result()
	if err != nil {
		return false, 0, err
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) != 2 {
		return false, 0, errBucketReply
	}

	taken, ok := replyNumber(reply[0])
	if !ok {
		return false, 0, errBucketReply
	}
	remaining, ok := replyNumber(reply[1])
	if !ok {
		return false, 0, errBucketReply
	}

	return taken >= 1, int(remaining), nil
}

// replyNumber coerces a Lua script reply element to a float. Redis returns
// integers as int64 and fractional token counts as strings.
func replyNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// RateLimitMiddleware applies the bucket per request key. Requests with no
// derivable key pass through; a Redis failure rejects rather than opening
// the gate.
func RateLimitMiddleware(l *RedisTokenBucket, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if keyFn != nil {
				key = keyFn(r)
			}
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, _, err := l.Allow(r.Context(), key)
			if err != nil {
				WriteJSONError(w, r, http.StatusServiceUnavailable, "rate_limiter_unavailable")
				return
			}
			if !allowed {
				WriteJSONError(w, r, http.StatusTooManyRequests, "rate_limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

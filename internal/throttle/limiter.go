// Package throttle rate-limits inbound gateway requests per API key using
// atomic Redis Lua scripts. GET → check → INCR patterns race under
// concurrent requests; the script checks and increments in one round trip.
package throttle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/relay-gateway/internal/pkg/logger"
)

// Limits are the per-key request windows.
type Limits struct {
	RequestsPerSecond int
	RequestsPerMinute int
	DailyLimit        int
}

// DefaultLimits match a single relay pool's realistic throughput; a key
// that exceeds them is queueing more work than the pool can drain.
var DefaultLimits = Limits{
	RequestsPerSecond: 10,
	RequestsPerMinute: 300,
	DailyLimit:        50000,
}

// Lua script for atomic multi-window rate limit check: all windows are
// checked before any counter is incremented.
const multiWindowLuaScript = `
local secondKey = KEYS[1]
local minuteKey = KEYS[2]
local dailyKey = KEYS[3]
local secondLimit = tonumber(ARGV[1])
local minuteLimit = tonumber(ARGV[2])
local dailyLimit = tonumber(ARGV[3])
local secondTTL = tonumber(ARGV[4])
local minuteTTL = tonumber(ARGV[5])
local dailyTTL = tonumber(ARGV[6])

local secCurrent = tonumber(redis.call("GET", secondKey) or "0")
local minCurrent = tonumber(redis.call("GET", minuteKey) or "0")
local dayCurrent = tonumber(redis.call("GET", dailyKey) or "0")

if secCurrent + 1 > secondLimit then
    return {0, 1}
end
if minCurrent + 1 > minuteLimit then
    return {0, 2}
end
if dayCurrent + 1 > dailyLimit then
    return {0, 3}
end

local newSec = redis.call("INCR", secondKey)
if newSec == 1 then
    redis.call("EXPIRE", secondKey, secondTTL)
end

local newMin = redis.call("INCR", minuteKey)
if newMin == 1 then
    redis.call("EXPIRE", minuteKey, minuteTTL)
end

local newDay = redis.call("INCR", dailyKey)
if newDay == 1 then
    redis.call("EXPIRE", dailyKey, dailyTTL)
end

return {1, 0}
`

// Limiter throttles requests with per-second, per-minute and daily
// windows keyed on the caller's API key.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	limits Limits
}

// NewLimiter creates a limiter on an existing Redis client.
func NewLimiter(client *redis.Client, limits Limits) *Limiter {
	if limits.RequestsPerSecond <= 0 {
		limits = DefaultLimits
	}
	return &Limiter{
		redis:  client,
		script: redis.NewScript(multiWindowLuaScript),
		limits: limits,
	}
}

// NewLimiterFromURL connects to Redis and verifies the connection.
func NewLimiterFromURL(redisURL string, limits Limits) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("throttle limiter connected", "redis", opts.Addr)
	return NewLimiter(client, limits), nil
}

// Allow atomically checks and increments all windows for the key.
// The denial reason names the exhausted window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, string, error) {
	now := time.Now()
	keys := []string{
		fmt.Sprintf("throttle:%s:sec:%d", key, now.Unix()),
		fmt.Sprintf("throttle:%s:min:%d", key, now.Unix()/60),
		fmt.Sprintf("throttle:%s:day:%s", key, now.Format("2006-01-02")),
	}

	result, err := l.script.Run(ctx, l.redis, keys,
		l.limits.RequestsPerSecond,
		l.limits.RequestsPerMinute,
		l.limits.DailyLimit,
		2,     // second TTL
		120,   // minute TTL
		90000, // daily TTL (25 hours)
	).Slice()
	if err != nil {
		return false, "", fmt.Errorf("throttle check failed: %w", err)
	}

	if result[0].(int64) == 1 {
		return true, "", nil
	}
	switch result[1].(int64) {
	case 1:
		return false, "per-second limit exceeded", nil
	case 2:
		return false, "per-minute limit exceeded", nil
	default:
		return false, "daily limit exceeded", nil
	}
}

// Middleware rejects over-limit requests with 429. Redis outages fail
// open: a broken throttle must not take down the gateway.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.RemoteAddr
		}

		allowed, reason, err := l.Allow(r.Context(), key)
		if err != nil {
			logger.Warn("throttle check error, failing open", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":%q}`, reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

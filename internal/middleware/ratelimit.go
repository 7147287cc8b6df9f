package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/iliyamo/acp-gateway/internal/config"
    "github.com/iliyamo/acp-gateway/internal/utils"
)

// tokenBucketScript refills the bucket stored at KEYS[1] and takes one
// token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_s.  Reply:
// {allowed, remaining, wait_ms}.
var tokenBucketScript = redis.NewScript(`
local now, cap, refill, step, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 't', 'at')
local t, at = tonumber(b[1]) or cap, tonumber(b[2]) or now
if step > 0 then
  local n = math.floor(math.max(0, now - at) / step)
  if n > 0 then
    t = math.min(cap, t + n * refill)
    at = at + n * step
  end
end
local ok, wait = 0, 0
if t >= 1 then
  ok, t = 1, t - 1
else
  wait = math.max(0, step - (now - at))
end
redis.call('HSET', KEYS[1], 't', t, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, t, wait}
`)

// NewTokenBucket limits requests per key (see config.RateLimitConfig
// KeyStrategy) with a Redis-backed token bucket.  Without Redis, or when
// Redis errors, requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            args := []any{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
                return next(c)
            }
            arr, ok := vals.([]any)
            if !ok || len(arr) != 3 {
                log.Warn().Str("key", key).Str("result", fmt.Sprintf("%#v", vals)).Msg("ratelimit: unexpected script result")
                return next(c)
            }
            allowed, remaining, retryMs := asInt64(arr[0]) == 1, asInt64(arr[1]), asInt64(arr[2])

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                if secs < 0 {
                    secs = 0
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    log.Debug().Str("key", key).Int64("retry_ms", retryMs).Msg("ratelimit: blocked")
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":   "rate limit exceeded",
                    "details": fmt.Sprintf("retry in %ds", secs),
                })
            }
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v any) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// buildRateKey scopes the bucket by the parts KeyStrategy names.  The
// limiter runs before route auth, so "user" is the presented credential
// (session token or user_email), hashed, or "anon".
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    who := credentialKey(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", who)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", who)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", who, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", who, "route", route)
    }
    return strings.Join(parts, ":")
}

func credentialKey(c echo.Context) string {
    cred := RequestToken(c)
    if cred == "" {
        cred = strings.ToLower(strings.TrimSpace(c.QueryParam("user_email")))
    }
    if cred == "" {
        return "anon"
    }
    return utils.HashToken(cred)[:16]
}

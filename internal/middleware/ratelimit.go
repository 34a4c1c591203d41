package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/condo-water-billing/internal/config"
)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// takeToken refills the bucket in KEYS[1] by whole intervals and takes one
// token if there is one.
//
//   ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_s
//   returns {allowed (0/1), tokens left, ms until the next refill}
var takeToken = redis.NewScript(`
local now, cap, step, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 't', 'at')
local tokens, at = tonumber(b[1]), tonumber(b[2])
if not tokens or not at then
  tokens, at = cap, now
end
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
  tokens = math.min(cap, tokens + n * step)
  at = at + n * every
end
local ok, wait = 0, 0
if tokens > 0 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 't', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

// bucketState is the decoded result of takeToken.
type bucketState struct {
    allowed   bool
    remaining int64
    wait      time.Duration
}

func parseBucket(v any) (bucketState, bool) {
    arr, ok := v.([]any)
    if !ok || len(arr) != 3 {
        return bucketState{}, false
    }
    n := make([]int64, 3)
    for i, x := range arr {
        if n[i], ok = x.(int64); !ok {
            return bucketState{}, false
        }
    }
    return bucketState{allowed: n[0] == 1, remaining: n[1], wait: time.Duration(n[2]) * time.Millisecond}, true
}

// NewTokenBucket limits requests per key (see RateLimitConfig.KeyStrategy)
// with a Redis token bucket.  When Redis fails the request is let through,
// so an outage never turns into 429s.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    limit := strconv.Itoa(cfg.Capacity)
    ttl := int64(cfg.TTL / time.Second)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), ttl).Result()
            if err != nil {
                log.Warn("ratelimit: redis error", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            st, ok := parseBucket(res)
            if !ok {
                log.Warn("ratelimit: unexpected script result", zap.String("key", key), zap.Any("result", res))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if st.allowed {
                return next(c)
            }

            secs := int(math.Ceil(st.wait.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.Info("ratelimit: blocked", zap.String("key", key), zap.Duration("wait", st.wait))
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "Rate limit exceeded",
                "code":        "RATE_LIMITED",
                "retry_after": secs,
            })
        }
    }
}

// rateKey buckets by client IP, by actor, or by both (the default).
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        return cfg.Prefix + ":ip:" + ip
    case "user":
        return cfg.Prefix + ":user:" + Actor(c)
    default:
        return cfg.Prefix + ":ip:" + ip + ":user:" + Actor(c)
    }
}

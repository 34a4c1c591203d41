package config

import "time"

// RateLimitConfig drives the Redis token bucket.  Admin traffic is small, so
// the defaults mostly protect the CSV import and rollover endpoints from
// accidental client loops.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // "ip", "user" or "ip_user"
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps the result.
func LoadRateLimitConfig() RateLimitConfig {
    return RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 2),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "wbrl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }.normalize()
}

// normalize keeps the bucket usable: at least one token of capacity and
// refill, and a key TTL long enough to outlive five refills.
func (c RateLimitConfig) normalize() RateLimitConfig {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
}

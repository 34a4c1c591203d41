package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware that sits
// in front of the read-heavy billing endpoints (monthly lists and summaries).
// Methods lists the HTTP methods to cache.  TTL defines the lifetime of cache
// entries.  KeyStrategy determines which parts of the request contribute to
// the cache key.  When PurgeOnWrite is set, every successful admin write
// drops all entries under Prefix so summaries never outlive a rollover.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
    PurgeOnWrite bool
    // MemoryFallback enables the in-process bigcache store when Redis is
    // not reachable at start.
    MemoryFallback bool
    MemoryMaxMB    int
}

// LoadCacheConfig reads CACHE_* variables.  Methods are upper-cased; a TTL
// that does not parse becomes one second.
func LoadCacheConfig() CacheConfig {
    ttl, err := time.ParseDuration(envStr("CACHE_TTL", "30s"))
    if err != nil {
        ttl = time.Second
    }
    return CacheConfig{
        Enabled:        envBool("CACHE_ENABLED", true),
        Methods:        parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:            ttl,
        KeyStrategy:    envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:         envStr("CACHE_PREFIX", "wbcache"),
        MaxBodyBytes:   envInt("CACHE_MAX_BODY_BYTES", 1<<20),
        PurgeOnWrite:   envBool("CACHE_PURGE_ON_WRITE", true),
        MemoryFallback: envBool("CACHE_MEMORY_FALLBACK", true),
        MemoryMaxMB:    envInt("CACHE_MEMORY_MAX_MB", 64),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}

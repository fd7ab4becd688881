package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the Redis-backed caches: the GET
// response cache used by the public catalog routes and the availability
// counter cache used by the booking service.
//
// KeyStrategy determines which parts of the request contribute to the
// response cache key (route, method_route, method_route_query or
// route_query).
type CacheConfig struct {
    Enabled         bool
    Methods         map[string]bool
    TTL             time.Duration
    KeyStrategy     string
    Prefix          string
    MaxBodyBytes    int
    AvailabilityTTL time.Duration
}

// LoadCacheConfig reads CACHE_* variables.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:         envBool("CACHE_ENABLED", true),
        Methods:         parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:             envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:     strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
        Prefix:          envStr("CACHE_PREFIX", "museum"),
        MaxBodyBytes:    envInt("CACHE_MAX_BODY_BYTES", 1<<20),
        AvailabilityTTL: envDur("CACHE_AVAILABILITY_TTL", 15*time.Second),
    }
    if cfg.TTL <= 0 { cfg.TTL = 30 * time.Second }
    if cfg.AvailabilityTTL <= 0 { cfg.AvailabilityTTL = 15 * time.Second }
    return cfg
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

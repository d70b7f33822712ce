package config

import (
	"os"
	"time"
)

// CacheConfig controls the Redis cache in front of the public project
// lookup. Entries are invalidated on delete, so TTL only bounds staleness
// for rows changed outside the application.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads CACHE_ENABLED, CACHE_TTL and CACHE_PREFIX.
func LoadCacheConfig() CacheConfig {
	return loadCache(&env{lookup: os.LookupEnv})
}

func loadCache(e *env) CacheConfig {
	return CacheConfig{
		Enabled: e.boolean("CACHE_ENABLED", true),
		TTL:     e.duration("CACHE_TTL", 60*time.Second),
		Prefix:  e.str("CACHE_PREFIX", "nuvemhost:project"),
	}
}

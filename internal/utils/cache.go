package utils

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache is the process-wide short-TTL cache, used for recommendation pages
// and streaming lookups.
var Cache *cache.Cache

// InitCache initializes the cache. Default expiry 5 minutes, cleanup sweep
// every 10 minutes.
func InitCache() {
	Cache = cache.New(5*time.Minute, 10*time.Minute)
}

// CacheGet returns the cached value for key.
func CacheGet(key string) (interface{}, bool) {
	if Cache == nil {
		return nil, false
	}
	return Cache.Get(key)
}

// CacheSet stores value under key for the given duration.
func CacheSet(key string, value interface{}, duration time.Duration) {
	if Cache == nil {
		return
	}
	Cache.Set(key, value, duration)
}

// CacheDelete removes key.
func CacheDelete(key string) {
	if Cache == nil {
		return
	}
	Cache.Delete(key)
}

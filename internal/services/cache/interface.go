package cache

import (
	"context"
	"time"
)

// Cache is one byte-oriented tier in front of the sqlite stores. The
// process keeps a MemoryCache; a RedisCache is added when a redis URL is
// configured so several replicas share transcripts. resultcache reads the
// tiers in order and backfills the faster ones on a hit. Video metadata
// uses the memory tier only.
type Cache interface {
	// Get returns the value and whether it was present and unexpired
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value for ttl. On ttl <= 0 memory uses its default and
	// redis keeps the key until overwritten.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Clear drops every key this tier owns. Redis only touches keys under
	// its prefix.
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheStats are per-process counters. Redis reports no entry counts.
type CacheStats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Sets       int64 `json:"sets"`
	Deletes    int64 `json:"deletes"`
	Evictions  int64 `json:"evictions"`
	Entries    int64 `json:"entries"`
	MaxEntries int64 `json:"maxEntries"`
}

// StatsProvider is reported by /health
type StatsProvider interface {
	Stats() CacheStats
}

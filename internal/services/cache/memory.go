package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryOptions configures MemoryCache
type MemoryOptions struct {
	DefaultTTL      time.Duration // Used when Set receives ttl <= 0
	CleanupInterval time.Duration // Expiry sweep period
	MaxEntries      int           // 0 = unbounded
}

// MemoryCache is a process-local cache with per-entry expiry and a bound on
// the number of entries. When full, the entry closest to expiry goes first.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
	opts  MemoryOptions

	hits, misses, sets, deletes, evictions atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type cacheItem struct {
	value  []byte
	expiry time.Time
}

// NewMemoryCache creates a new in-memory cache and starts its sweeper
func NewMemoryCache(opts MemoryOptions) *MemoryCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 30 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	mc := &MemoryCache{
		items:  make(map[string]*cacheItem),
		opts:   opts,
		stopCh: make(chan struct{}),
	}

	mc.wg.Add(1)
	go mc.cleanupExpired()

	return mc
}

// Get retrieves a value from the cache
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	if !exists {
		mc.misses.Add(1)
		return nil, false
	}

	if time.Now().After(item.expiry) {
		mc.mu.Lock()
		if current, ok := mc.items[key]; ok && current == item {
			delete(mc.items, key)
			mc.evictions.Add(1)
		}
		mc.mu.Unlock()
		mc.misses.Add(1)
		return nil, false
	}

	mc.hits.Add(1)
	return item.value, true
}

// Set stores a value in the cache with a TTL
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = mc.opts.DefaultTTL
	}

	item := &cacheItem{
		value:  append([]byte(nil), value...),
		expiry: time.Now().Add(ttl),
	}

	mc.mu.Lock()
	if _, exists := mc.items[key]; !exists {
		mc.makeRoomLocked()
	}
	mc.items[key] = item
	mc.mu.Unlock()

	mc.sets.Add(1)
	return nil
}

// Delete removes a value from the cache
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	if _, exists := mc.items[key]; exists {
		delete(mc.items, key)
		mc.deletes.Add(1)
	}
	mc.mu.Unlock()
	return nil
}

// Clear removes all values from the cache
func (mc *MemoryCache) Clear(ctx context.Context) error {
	mc.mu.Lock()
	mc.items = make(map[string]*cacheItem)
	mc.mu.Unlock()
	return nil
}

// Has checks if a key exists in the cache
func (mc *MemoryCache) Has(ctx context.Context, key string) bool {
	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	return exists && time.Now().Before(item.expiry)
}

// Stats returns cache statistics
func (mc *MemoryCache) Stats() CacheStats {
	mc.mu.RLock()
	entries := len(mc.items)
	mc.mu.RUnlock()

	return CacheStats{
		Hits:       mc.hits.Load(),
		Misses:     mc.misses.Load(),
		Sets:       mc.sets.Load(),
		Deletes:    mc.deletes.Load(),
		Evictions:  mc.evictions.Load(),
		Entries:    int64(entries),
		MaxEntries: int64(mc.opts.MaxEntries),
	}
}

// Stop gracefully shuts down the cache
func (mc *MemoryCache) Stop() {
	mc.stopOnce.Do(func() {
		close(mc.stopCh)
	})
	mc.wg.Wait()
}

// cleanupExpired removes expired items periodically
func (mc *MemoryCache) cleanupExpired() {
	defer mc.wg.Done()
	ticker := time.NewTicker(mc.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			mc.removeExpiredLocked(time.Now())
			mc.mu.Unlock()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) removeExpiredLocked(now time.Time) {
	for key, item := range mc.items {
		if now.After(item.expiry) {
			delete(mc.items, key)
			mc.evictions.Add(1)
		}
	}
}

// makeRoomLocked frees one slot when the cache is at capacity
func (mc *MemoryCache) makeRoomLocked() {
	if mc.opts.MaxEntries <= 0 || len(mc.items) < mc.opts.MaxEntries {
		return
	}

	mc.removeExpiredLocked(time.Now())
	if len(mc.items) < mc.opts.MaxEntries {
		return
	}

	var victim string
	var soonest time.Time
	for key, item := range mc.items {
		if victim == "" || item.expiry.Before(soonest) {
			victim, soonest = key, item.expiry
		}
	}
	delete(mc.items, victim)
	mc.evictions.Add(1)
}

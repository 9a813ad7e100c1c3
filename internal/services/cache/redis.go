package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient parses url and verifies the server answers PING
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// RedisCache stores values under a key prefix in redis. Errors are logged and
// reported as misses so a redis outage degrades to the next tier.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	logger logrus.FieldLogger

	hits, misses, sets, deletes atomic.Int64
}

// NewRedisCache wraps an existing client
func NewRedisCache(rdb *redis.Client, prefix string, logger logrus.FieldLogger) *RedisCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{rdb: rdb, prefix: prefix, logger: logger}
}

func (rc *RedisCache) key(k string) string {
	return rc.prefix + k
}

// Get retrieves a value from redis
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := rc.rdb.Get(ctx, rc.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		}
		rc.misses.Add(1)
		return nil, false
	}
	rc.hits.Add(1)
	return data, true
}

// Set stores a value with a TTL; ttl <= 0 keeps it until overwritten
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := rc.rdb.Set(ctx, rc.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	rc.sets.Add(1)
	return nil
}

// Delete removes a value from redis
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	n, err := rc.rdb.Del(ctx, rc.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	rc.deletes.Add(n)
	return nil
}

// Clear removes every key under the prefix
func (rc *RedisCache) Clear(ctx context.Context) error {
	iter := rc.rdb.Scan(ctx, 0, rc.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return nil
}

// Has checks if a key exists
func (rc *RedisCache) Has(ctx context.Context, key string) bool {
	n, err := rc.rdb.Exists(ctx, rc.key(key)).Result()
	return err == nil && n > 0
}

// Stats returns counters for this process
func (rc *RedisCache) Stats() CacheStats {
	return CacheStats{
		Hits:    rc.hits.Load(),
		Misses:  rc.misses.Load(),
		Sets:    rc.sets.Load(),
		Deletes: rc.deletes.Load(),
	}
}

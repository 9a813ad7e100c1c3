package usage

import (
	"context"
	"errors"
	"strconv"

	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	fieldUsed    = "minutes_used"
	fieldGranted = "minutes_granted"
)

// RedisStore keeps each ledger in a hash under prefix+callerID. HINCRBY is
// atomic per field, so concurrent commits serialize inside redis.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an existing redis client
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(callerID string) string {
	return s.prefix + callerID
}

// Get reads the ledger hash
func (s *RedisStore) Get(ctx context.Context, callerID string) (*models.UsageLedger, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(callerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, apperrors.ExternalServiceError("redis", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	ledger := &models.UsageLedger{CallerID: callerID}
	if ledger.MinutesUsed, err = parseField(fields, fieldUsed); err != nil {
		return nil, false, err
	}
	if ledger.MinutesGranted, err = parseField(fields, fieldGranted); err != nil {
		return nil, false, err
	}
	return ledger, true, nil
}

// AddUsed increments minutes_used, seeding minutes_granted on first write
func (s *RedisStore) AddUsed(ctx context.Context, callerID string, minutes, defaultGranted int64) error {
	return s.increment(ctx, callerID, fieldUsed, minutes, defaultGranted)
}

// AddGranted increments minutes_granted, seeding it on first write
func (s *RedisStore) AddGranted(ctx context.Context, callerID string, minutes, defaultGranted int64) error {
	return s.increment(ctx, callerID, fieldGranted, minutes, defaultGranted)
}

func (s *RedisStore) increment(ctx context.Context, callerID, field string, delta, defaultGranted int64) error {
	key := s.key(callerID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldGranted, defaultGranted)
		pipe.HSetNX(ctx, key, fieldUsed, 0)
		pipe.HIncrBy(ctx, key, field, delta)
		return nil
	})
	if err != nil {
		return apperrors.ExternalServiceError("redis", err).WithDetail("caller_id", callerID)
	}
	return nil
}

func parseField(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "corrupt ledger field %s", name)
	}
	return v, nil
}

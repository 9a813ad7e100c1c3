package resultcache

import (
	"context"

	"github.com/matlukowski/readTube-sub000/internal/models"
)

// Repository is the authoritative transcript store
type Repository interface {
	// Get returns the entry for videoID or a NOT_FOUND AppError
	Get(ctx context.Context, videoID string) (*models.CacheEntry, error)

	// Upsert creates the entry or overwrites text, source, language and updated_at
	Upsert(ctx context.Context, entry *models.CacheEntry) error
}

// Lookuper is the read side used by handlers that only serve cached text
type Lookuper interface {
	Lookup(ctx context.Context, videoID string) (*models.CacheEntry, bool, error)
}

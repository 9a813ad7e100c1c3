package resultcache

import (
	"context"
	"errors"

	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepositoryImpl implements the Repository interface
type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new transcript cache repository
func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// Get retrieves a cached transcript by video id
func (r *RepositoryImpl) Get(ctx context.Context, videoID string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	if err := r.db.WithContext(ctx).Where("video_id = ?", videoID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transcript", videoID)
		}
		return nil, apperrors.DatabaseError("get cached transcript", err)
	}
	return &entry, nil
}

// Upsert writes the entry; the last writer wins
func (r *RepositoryImpl) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "source", "language", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return apperrors.DatabaseError("upsert cached transcript", err)
	}
	return nil
}

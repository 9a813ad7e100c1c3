package videos

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

// NewRepository creates a new video repository
func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// GetByID retrieves a video reference by its platform id
func (r *RepositoryImpl) GetByID(ctx context.Context, id string) (*models.VideoRef, error) {
	var ref models.VideoRef
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("video", id)
		}
		return nil, apperrors.DatabaseError("get video", err)
	}
	return &ref, nil
}

// Upsert creates the reference or refreshes its metadata columns. The id is
// never rewritten.
func (r *RepositoryImpl) Upsert(ctx context.Context, ref *models.VideoRef) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "duration_seconds", "channel_name", "has_captions", "refreshed_at", "updated_at",
		}),
	}).Create(ref).Error
	if err != nil {
		return apperrors.DatabaseError("upsert video", err)
	}
	return nil
}

package videos

import (
	"context"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
)

// Platform is the slice of the platform client this package needs
type Platform interface {
	Metadata(ctx context.Context, videoID string) (*youtube.VideoMetadata, error)
}

// Repository defines the interface for video reference data access
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.VideoRef, error)
	Upsert(ctx context.Context, ref *models.VideoRef) error
}

package transcription

import (
	"context"

	"github.com/matlukowski/readTube-sub000/internal/models"
)

// TranscriptionService defines the interface for transcript acquisition
type TranscriptionService interface {
	// Acquire returns a transcript for the request, from cache or by running
	// the strategy cascade
	Acquire(ctx context.Context, req *models.TranscriptionRequest) (*models.TranscriptionResult, error)

	// Cached returns a fresh cached transcript or NOT_FOUND
	Cached(ctx context.Context, videoID string) (*models.TranscriptionResult, error)

	// SubmitClientTranscript stores a transcript extracted by the client
	SubmitClientTranscript(ctx context.Context, videoID, text, language string) (*models.TranscriptionResult, error)
}

// VideoResolver returns the stored or freshly fetched video reference
type VideoResolver interface {
	Resolve(ctx context.Context, videoID string) (*models.VideoRef, error)
}

// ResultCache stores transcripts by video id
type ResultCache interface {
	Lookup(ctx context.Context, videoID string) (*models.CacheEntry, bool, error)
	Store(ctx context.Context, videoID, text string, source models.SourceStrategy, language string) (*models.CacheEntry, error)
}

// Runner executes the strategy cascade
type Runner interface {
	Run(ctx context.Context, req *models.TranscriptionRequest) (*models.TranscriptionResult, error)
}

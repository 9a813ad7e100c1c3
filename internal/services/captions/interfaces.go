package captions

import (
	"context"

	"github.com/matlukowski/readTube-sub000/pkg/transcript"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
)

// MetadataSource returns caption-track descriptors for a video
type MetadataSource interface {
	Metadata(ctx context.Context, videoID string) (*youtube.VideoMetadata, error)
}

// TrackFetcher downloads one timed-text track
type TrackFetcher interface {
	Fetch(ctx context.Context, trackURL string) (*transcript.TranscriptResult, error)
}

package videos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/cache"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/sirupsen/logrus"
)

// Options configures the service
type Options struct {
	RefreshTTL time.Duration // how long stored metadata is trusted
	MemoTTL    time.Duration // how long a platform answer is reused within the process
	Now        func() time.Time
	Logger     logrus.FieldLogger
}

// Service resolves video references and memoizes platform metadata so the
// stages of one acquisition share a single watch-page fetch.
type Service struct {
	platform Platform
	repo     Repository
	memo     cache.Cache
	opts     Options
	logger   logrus.FieldLogger
}

// NewService creates a new video service. memo may be nil.
func NewService(platform Platform, repo Repository, memo cache.Cache, opts Options) *Service {
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.MemoTTL <= 0 {
		opts.MemoTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		platform: platform,
		repo:     repo,
		memo:     memo,
		opts:     opts,
		logger:   logger.WithField("component", "videos"),
	}
}

func memoKey(videoID string) string {
	return "meta:" + videoID
}

// Metadata returns platform metadata, reusing a recent answer when present.
// Only successful answers are memoized.
func (s *Service) Metadata(ctx context.Context, videoID string) (*youtube.VideoMetadata, error) {
	if s.memo != nil {
		if data, ok := s.memo.Get(ctx, memoKey(videoID)); ok {
			var meta youtube.VideoMetadata
			if err := json.Unmarshal(data, &meta); err == nil {
				return &meta, nil
			}
		}
	}

	meta, err := s.platform.Metadata(ctx, videoID)
	if err != nil {
		return meta, err
	}

	if s.memo != nil {
		if data, err := json.Marshal(meta); err == nil {
			_ = s.memo.Set(ctx, memoKey(videoID), data, s.opts.MemoTTL)
		}
	}
	return meta, nil
}

// Resolve returns the stored reference for videoID, creating it on first
// lookup and refreshing its metadata once it is older than RefreshTTL.
// When a refresh fails for a transient reason the stored reference is
// returned as is; an unavailable video always fails.
func (s *Service) Resolve(ctx context.Context, videoID string) (*models.VideoRef, error) {
	if err := youtube.ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	stored, err := s.repo.GetByID(ctx, videoID)
	if err != nil && !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		return nil, err
	}
	if stored != nil && !stored.NeedsRefresh(s.opts.RefreshTTL, now) {
		return stored, nil
	}

	meta, err := s.Metadata(ctx, videoID)
	if err != nil {
		if apperrors.IsFatal(err) || stored == nil {
			return nil, err
		}
		s.logger.WithError(err).WithField("video_id", videoID).Warn("Metadata refresh failed, using stored reference")
		return stored, nil
	}

	ref := refFromMetadata(meta, now)
	if err := s.repo.Upsert(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func refFromMetadata(meta *youtube.VideoMetadata, now time.Time) *models.VideoRef {
	refreshed := now.UTC()
	ref := &models.VideoRef{
		ID:          meta.ID,
		Title:       meta.Title,
		ChannelName: meta.Author,
		HasCaptions: len(meta.CaptionTracks) > 0,
		RefreshedAt: &refreshed,
	}
	if meta.DurationSeconds > 0 {
		ref.SetDuration(meta.DurationSeconds)
	}
	return ref
}

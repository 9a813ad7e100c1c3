package resultcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/cache"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultFreshness is how long a stored transcript is served without
// re-acquisition
const DefaultFreshness = 7 * 24 * time.Hour

// Options configures the service
type Options struct {
	Freshness time.Duration
	TierTTL   time.Duration // upper bound for copies kept in the fast tiers
	Now       func() time.Time
	Logger    logrus.FieldLogger
}

// Service is the time-boxed transcript cache. Reads go through the fast
// tiers in order and then the repository; writes go to the repository first
// and are then copied into every tier.
type Service struct {
	repo   Repository
	tiers  []cache.Cache
	opts   Options
	logger logrus.FieldLogger
}

// NewService creates a new result cache. Nil tiers are ignored.
func NewService(repo Repository, opts Options, tiers ...cache.Cache) *Service {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.TierTTL <= 0 {
		opts.TierTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var active []cache.Cache
	for _, t := range tiers {
		if t != nil {
			active = append(active, t)
		}
	}

	return &Service{
		repo:   repo,
		tiers:  active,
		opts:   opts,
		logger: logger.WithField("component", "result_cache"),
	}
}

// Freshness returns the configured freshness window
func (s *Service) Freshness() time.Duration {
	return s.opts.Freshness
}

// Lookup returns the entry when it is fresh. A stale entry reports a miss
// and stays in place until the next Store overwrites it.
func (s *Service) Lookup(ctx context.Context, videoID string) (*models.CacheEntry, bool, error) {
	now := s.opts.Now()

	for i, tier := range s.tiers {
		data, ok := tier.Get(ctx, videoID)
		if !ok {
			continue
		}
		var entry models.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			_ = tier.Delete(ctx, videoID)
			continue
		}
		if !entry.IsFresh(s.opts.Freshness, now) {
			continue
		}
		s.fill(ctx, s.tiers[:i], &entry, now)
		return &entry, true, nil
	}

	entry, err := s.repo.Get(ctx, videoID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !entry.IsFresh(s.opts.Freshness, now) {
		s.logger.WithFields(logrus.Fields{
			"video_id": videoID,
			"age":      now.Sub(entry.UpdatedAt).Round(time.Second).String(),
		}).Debug("Cached transcript is stale")
		return nil, false, nil
	}

	s.fill(ctx, s.tiers, entry, now)
	return entry, true, nil
}

// Store upserts the transcript for videoID. Blank text is refused so an
// empty result can never be served from the cache.
func (s *Service) Store(ctx context.Context, videoID, text string, source models.SourceStrategy, language string) (*models.CacheEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.New(apperrors.ErrCodeEmptyResult, "refusing to cache an empty transcript")
	}
	if source == models.SourceCache || !source.Valid() {
		return nil, apperrors.ValidationError("source", "must be the strategy that produced the text")
	}

	now := s.opts.Now().UTC()
	entry := &models.CacheEntry{
		VideoID:   videoID,
		Text:      text,
		Source:    source,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	s.fill(ctx, s.tiers, entry, now)
	return entry, nil
}

// fill copies entry into tiers for at most the remaining freshness
func (s *Service) fill(ctx context.Context, tiers []cache.Cache, entry *models.CacheEntry, now time.Time) {
	if len(tiers) == 0 {
		return
	}
	ttl := s.opts.Freshness - now.Sub(entry.UpdatedAt)
	if ttl <= 0 {
		return
	}
	if ttl > s.opts.TierTTL {
		ttl = s.opts.TierTTL
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	for _, tier := range tiers {
		if err := tier.Set(ctx, entry.VideoID, data, ttl); err != nil {
			s.logger.WithError(err).WithField("video_id", entry.VideoID).Warn("Failed to populate cache tier")
		}
	}
}

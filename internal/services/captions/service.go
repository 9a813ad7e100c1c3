package captions

import (
	"context"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/retry"
	"github.com/matlukowski/readTube-sub000/pkg/transcript"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/sirupsen/logrus"
)

// maxTracksTried bounds how many ranked tracks are downloaded before giving up
const maxTracksTried = 3

// Captions is the flattened text of one caption track
type Captions struct {
	VideoID       string
	Text          string
	Language      string
	AutoGenerated bool
	Format        transcript.TranscriptFormat
	Segments      int
	Duration      time.Duration
}

// Method names the track kind for result descriptors
func (c *Captions) Method() string {
	if c.AutoGenerated {
		return "captions:asr:" + c.Language
	}
	return "captions:manual:" + c.Language
}

// Options configures the service
type Options struct {
	Retry            retry.Policy
	DefaultLanguages []string
	Logger           logrus.FieldLogger
}

// Service fetches and flattens published captions
type Service struct {
	meta    MetadataSource
	fetcher TrackFetcher
	parser  *transcript.Parser
	opts    Options
	logger  logrus.FieldLogger
}

// NewService creates a new caption service
func NewService(meta MetadataSource, fetcher TrackFetcher, opts Options) *Service {
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultPolicy
	}
	if len(opts.DefaultLanguages) == 0 {
		opts.DefaultLanguages = []string{"en"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		meta:    meta,
		fetcher: fetcher,
		parser:  transcript.NewParser(),
		opts:    opts,
		logger:  logger.WithField("component", "captions"),
	}
}

// Fetch returns caption text for videoID. A video without usable captions
// yields a NOT_FOUND AppError, distinct from the retryable transport kinds.
// UNAVAILABLE is passed through untouched.
func (s *Service) Fetch(ctx context.Context, videoID string, languages []string) (*Captions, error) {
	if len(languages) == 0 {
		languages = s.opts.DefaultLanguages
	}
	log := s.logger.WithField("video_id", videoID)

	meta, err := retry.Do(ctx, s.policy(log, "metadata"), func(ctx context.Context, _ int) (*youtube.VideoMetadata, error) {
		return s.meta.Metadata(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	tracks := Usable(meta.CaptionTracks)
	if len(tracks) == 0 {
		return nil, apperrors.NotFound("captions", videoID)
	}

	ranked := RankTracks(tracks, languages)
	if len(ranked) > maxTracksTried {
		ranked = ranked[:maxTracksTried]
	}

	var lastErr error
	for _, track := range ranked {
		caps, err := s.fetchTrack(ctx, log, videoID, track)
		if err == nil {
			return caps, nil
		}
		if !apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return nil, err
		}
		lastErr = err
		log.WithField("language", track.LanguageCode).Debug("Caption track empty, trying next")
	}
	return nil, lastErr
}

func (s *Service) fetchTrack(ctx context.Context, log logrus.FieldLogger, videoID string, track youtube.CaptionTrack) (*Captions, error) {
	result, err := retry.Do(ctx, s.policy(log, "timedtext"), func(ctx context.Context, _ int) (*transcript.TranscriptResult, error) {
		return s.fetcher.Fetch(ctx, track.BaseURL)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.Parse(result.Content, result.Format)
	if err != nil {
		// a body we cannot read is as good as no captions for this track
		return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "unreadable caption track").
			WithDetail("format", string(result.Format))
	}

	text := transcript.Clean(parsed.FullText)
	if text == "" {
		return nil, apperrors.NotFound("caption text", videoID)
	}

	return &Captions{
		VideoID:       videoID,
		Text:          text,
		Language:      track.LanguageCode,
		AutoGenerated: track.AutoGenerated(),
		Format:        result.Format,
		Segments:      len(parsed.Segments),
		Duration:      parsed.Duration,
	}, nil
}

func (s *Service) policy(log logrus.FieldLogger, op string) retry.Policy {
	p := s.opts.Retry
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait_ms": wait.Milliseconds(),
		}).Warn("Caption request failed, retrying")
	}
	return p
}

package audio

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/matlukowski/readTube-sub000/pkg/download"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/retry"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/sirupsen/logrus"
)

// Platform returns the stream manifest as seen by one client identity
type Platform interface {
	Player(ctx context.Context, videoID string, identity youtube.Identity) (*youtube.VideoMetadata, error)
}

// Extractor is what speech stages need from this package
type Extractor interface {
	Probe(ctx context.Context, videoID string, maxDurationSeconds int) (*AudioInfo, error)
	GetAudioStream(ctx context.Context, videoID string, maxDurationSeconds int) (*AudioStream, error)
}

// AudioInfo describes the chosen rendition without reading any media bytes
type AudioInfo struct {
	VideoID         string
	Format          youtube.Format
	Container       string
	Codec           string
	DurationSeconds int
	Bitrate         int
	ContentLength   int64
	Identity        youtube.Identity
}

// AudioStream is an open audio rendition. Body is read in bounded chunks and
// must be closed by the consumer.
type AudioStream struct {
	Body            io.ReadCloser
	VideoID         string
	Container       string
	Codec           string
	DurationSeconds int
	Bitrate         int
	ContentLength   int64 // 0 when unknown
	Identity        string
}

// Close releases the underlying response
func (s *AudioStream) Close() error {
	if s == nil || s.Body == nil {
		return nil
	}
	return s.Body.Close()
}

// Options configures the service
type Options struct {
	Identities  []youtube.Identity
	MaxAttempts int
	BackoffBase time.Duration
	ChunkSize   int64
	MaxBytes    int64
	Download    download.Options
	Logger      logrus.FieldLogger
}

// Service picks and opens audio-only renditions
type Service struct {
	platform Platform
	opts     Options
	logger   logrus.FieldLogger
}

// NewService creates a new audio service
func NewService(platform Platform, opts Options) *Service {
	if len(opts.Identities) == 0 {
		opts.Identities = youtube.DefaultIdentities
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = len(opts.Identities)
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		platform: platform,
		opts:     opts,
		logger:   logger.WithField("component", "audio"),
	}
}

// Probe returns the preferred rendition. A video longer than
// maxDurationSeconds fails with TOO_LONG before any media is requested.
func (s *Service) Probe(ctx context.Context, videoID string, maxDurationSeconds int) (*AudioInfo, error) {
	return retry.Do(ctx, s.policy(videoID), func(ctx context.Context, attempt int) (*AudioInfo, error) {
		return s.probe(ctx, videoID, maxDurationSeconds, s.identity(attempt))
	})
}

// GetAudioStream probes and opens the preferred rendition. A bot check on
// the manifest or on the first media bytes rotates to the next client
// identity after backoff.
func (s *Service) GetAudioStream(ctx context.Context, videoID string, maxDurationSeconds int) (*AudioStream, error) {
	return retry.Do(ctx, s.policy(videoID), func(ctx context.Context, attempt int) (*AudioStream, error) {
		info, err := s.probe(ctx, videoID, maxDurationSeconds, s.identity(attempt))
		if err != nil {
			return nil, err
		}
		return s.open(ctx, info)
	})
}

func (s *Service) identity(attempt int) youtube.Identity {
	return s.opts.Identities[attempt%len(s.opts.Identities)]
}

func (s *Service) probe(ctx context.Context, videoID string, maxDurationSeconds int, identity youtube.Identity) (*AudioInfo, error) {
	meta, err := s.platform.Player(ctx, videoID, identity)
	if err != nil {
		return nil, err
	}

	formats := meta.AudioFormats()
	duration := meta.DurationSeconds
	if duration <= 0 && len(formats) > 0 {
		duration = formats[0].DurationSeconds()
	}
	if maxDurationSeconds > 0 && duration > maxDurationSeconds {
		return nil, apperrors.Newf(apperrors.ErrCodeTooLong,
			"video is %ds long, limit is %ds", duration, maxDurationSeconds).
			WithDetail("duration_seconds", duration).
			WithDetail("max_duration_seconds", maxDurationSeconds)
	}

	if len(formats) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeNoAudioFormats, "no audio-only renditions with a direct URL").
			WithDetail("video_id", videoID).
			WithDetail("identity", identity.Name)
	}

	chosen := SelectFormat(formats)
	return &AudioInfo{
		VideoID:         videoID,
		Format:          chosen,
		Container:       chosen.Container(),
		Codec:           chosen.Codec(),
		DurationSeconds: duration,
		Bitrate:         chosen.Bitrate,
		ContentLength:   chosen.Size(),
		Identity:        identity,
	}, nil
}

// open starts the range reader and forces the first chunk request so access
// errors surface here, where they can still trigger identity rotation
func (s *Service) open(ctx context.Context, info *AudioInfo) (*AudioStream, error) {
	opts := s.opts.Download
	if s.opts.ChunkSize > 0 {
		opts.ChunkSize = s.opts.ChunkSize
	}
	if s.opts.MaxBytes > 0 {
		opts.MaxBytes = s.opts.MaxBytes
	}
	if info.Identity.UserAgent != "" {
		opts.UserAgent = info.Identity.UserAgent
	}

	rr := download.NewRangeReader(ctx, info.Format.URL, info.ContentLength, opts)
	br := bufio.NewReaderSize(rr, 64<<10)
	if _, err := br.Peek(1); err != nil {
		rr.Close()
		if err == io.EOF {
			return nil, apperrors.New(apperrors.ErrCodeNoAudioFormats, "audio rendition is empty")
		}
		return nil, err
	}

	return &AudioStream{
		Body:            &bufferedBody{Reader: br, closer: rr},
		VideoID:         info.VideoID,
		Container:       info.Container,
		Codec:           info.Codec,
		DurationSeconds: info.DurationSeconds,
		Bitrate:         info.Bitrate,
		ContentLength:   info.ContentLength,
		Identity:        info.Identity.Name,
	}, nil
}

func (s *Service) policy(videoID string) retry.Policy {
	return retry.Policy{
		MaxAttempts: s.opts.MaxAttempts,
		BaseDelay:   s.opts.BackoffBase,
		MaxDelay:    8 * s.opts.BackoffBase,
		Multiplier:  2,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"video_id": videoID,
				"identity": s.identity(attempt).Name,
				"next":     s.identity(attempt + 1).Name,
				"wait_ms":  wait.Milliseconds(),
			}).Warn("Audio request refused, rotating client identity")
		},
	}
}

type bufferedBody struct {
	*bufio.Reader
	closer io.Closer
}

func (b *bufferedBody) Close() error {
	return b.closer.Close()
}

// SelectFormat prefers MPEG-4/AAC, then WebM/Opus, else the first rendition
func SelectFormat(formats []youtube.Format) youtube.Format {
	for _, want := range []struct{ container, codec string }{
		{"mp4", "mp4a"},
		{"webm", "opus"},
	} {
		for _, f := range formats {
			if f.Container() == want.container && strings.HasPrefix(f.Codec(), want.codec) {
				return f
			}
		}
	}
	return formats[0]
}

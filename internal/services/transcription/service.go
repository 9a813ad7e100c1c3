package transcription

import (
	"context"
	"strings"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/usage"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/transcript"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/sirupsen/logrus"
)

// AnonymousCaller is charged when a request carries no caller id
const AnonymousCaller = "anonymous"

// Service implements the TranscriptionService interface
type Service struct {
	videos VideoResolver
	guard  usage.Guard
	cache  ResultCache
	runner Runner
	logger logrus.FieldLogger
}

// NewService creates a new transcription service
func NewService(videos VideoResolver, guard usage.Guard, cache ResultCache, runner Runner, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		videos: videos,
		guard:  guard,
		cache:  cache,
		runner: runner,
		logger: logger.WithField("component", "transcription"),
	}
}

// Acquire validates the request, checks quota, serves a fresh cached copy
// when there is one and otherwise runs the cascade. Usage is committed only
// after a successful acquisition; cache hits are free.
func (s *Service) Acquire(ctx context.Context, req *models.TranscriptionRequest) (*models.TranscriptionResult, error) {
	start := time.Now()
	if req == nil {
		return nil, apperrors.ValidationError("request", "request is required")
	}

	videoID, err := youtube.ParseVideoID(req.Video.ID)
	if err != nil {
		return nil, err
	}
	callerID := strings.TrimSpace(req.CallerID)
	if callerID == "" {
		callerID = AnonymousCaller
	}

	log := s.logger.WithFields(logrus.Fields{
		"video_id":   videoID,
		"caller_id":  callerID,
		"request_id": req.RequestID,
	})

	ref, err := s.videos.Resolve(ctx, videoID)
	switch {
	case err == nil:
	case apperrors.IsFatal(err), apperrors.Is(err, apperrors.ErrCodeValidation):
		return nil, err
	default:
		// captions and speech stages still get their own chance at metadata
		log.WithError(err).Warn("Video metadata unavailable, continuing without duration")
		ref = &models.VideoRef{ID: videoID}
	}

	required := models.CostMinutes(ref.Duration())
	if _, err := s.guard.CheckQuota(ctx, callerID, required); err != nil {
		log.WithError(err).WithField("required_minutes", required).Info("Acquisition rejected by quota")
		return nil, err
	}

	if result := s.lookup(ctx, log, videoID, start); result != nil {
		return result, nil
	}

	run := *req
	run.Video = *ref
	run.CallerID = callerID
	result, err := s.runner.Run(ctx, &run)
	if err != nil {
		return nil, err
	}

	if _, err := s.cache.Store(ctx, videoID, result.Text, result.Source, result.Language); err != nil {
		log.WithError(err).Warn("Failed to cache transcript")
	}
	s.commit(ctx, log, callerID, required, result.CostEstimate)

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	log.WithFields(logrus.Fields{
		"source":     result.Source,
		"method":     result.ModelOrMethod,
		"cost":       result.CostEstimate,
		"chars":      result.LengthChars,
		"elapsed_ms": result.ProcessingTimeMs,
	}).Info("Transcript acquired")
	return result, nil
}

// commit charges the measured cost. Only the upfront estimate was checked,
// so a larger measured cost is capped at what the caller has left.
func (s *Service) commit(ctx context.Context, log logrus.FieldLogger, callerID string, checked, measured int64) {
	charge := measured
	if measured > checked {
		decision, err := s.guard.CheckQuota(ctx, callerID, measured)
		if err != nil && decision != nil {
			charge = max(decision.Remaining, 0)
			log.WithFields(logrus.Fields{
				"measured_minutes":  measured,
				"charged_minutes":   charge,
				"remaining_minutes": decision.Remaining,
			}).Warn("Measured cost exceeds remaining quota, charging the remainder")
		}
	}
	if err := s.guard.Commit(ctx, callerID, charge); err != nil {
		log.WithError(err).WithField("minutes", charge).Error("Failed to record usage")
	}
}

// lookup returns a fresh cached result or nil. Cache errors are logged and
// treated as misses.
func (s *Service) lookup(ctx context.Context, log logrus.FieldLogger, videoID string, start time.Time) *models.TranscriptionResult {
	entry, fresh, err := s.cache.Lookup(ctx, videoID)
	if err != nil {
		log.WithError(err).Warn("Transcript cache lookup failed")
		return nil
	}
	if !fresh {
		return nil
	}
	result, err := cachedResult(entry, time.Since(start))
	if err != nil {
		log.WithError(err).Warn("Ignoring unusable cache entry")
		return nil
	}
	log.WithField("source", entry.Source).Debug("Serving cached transcript")
	return result
}

func cachedResult(entry *models.CacheEntry, elapsed time.Duration) (*models.TranscriptionResult, error) {
	result, err := models.NewTranscriptionResult(entry.VideoID, entry.Text, models.SourceCache, "cache:"+string(entry.Source), elapsed, 0)
	if err != nil {
		return nil, err
	}
	result.Language = entry.Language
	return result, nil
}

// Cached returns a fresh cached transcript without running any strategy
func (s *Service) Cached(ctx context.Context, videoID string) (*models.TranscriptionResult, error) {
	id, err := youtube.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	entry, fresh, err := s.cache.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, apperrors.NotFound("transcript", id)
	}
	return cachedResult(entry, 0)
}

// SubmitClientTranscript cleans and stores a transcript the client extracted
// itself. Nothing is charged since no server-side strategy ran.
func (s *Service) SubmitClientTranscript(ctx context.Context, videoID, text, language string) (*models.TranscriptionResult, error) {
	id, err := youtube.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	cleaned := transcript.Clean(text)
	if cleaned == "" {
		return nil, apperrors.ValidationError("transcript", "transcript is empty")
	}

	if _, err := s.cache.Store(ctx, id, cleaned, models.SourceClientFallback, language); err != nil {
		return nil, err
	}
	result, err := models.NewTranscriptionResult(id, cleaned, models.SourceClientFallback, "client-transcript", 0, 0)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "transcript is empty")
	}
	result.Language = language

	s.logger.WithFields(logrus.Fields{
		"video_id": id,
		"chars":    result.LengthChars,
	}).Info("Client transcript stored")
	return result, nil
}

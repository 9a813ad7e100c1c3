package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries = 3
	DefaultPriority   = 0
)

type service struct {
	repo     Repository
	logger   logrus.FieldLogger
	defaults []JobOption
}

// NewService creates a job service. defaults apply to every enqueued job
// before the per-call options.
func NewService(repo Repository, logger logrus.FieldLogger, defaults ...JobOption) Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &service{
		repo:     repo,
		logger:   logger.WithField("component", "jobs"),
		defaults: defaults,
	}
}

func (s *service) EnqueueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, opts ...JobOption) (*models.Job, error) {
	cfg := jobConfig{Priority: DefaultPriority, MaxRetries: DefaultMaxRetries}
	for _, opt := range s.defaults {
		opt(&cfg)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	job := &models.Job{
		Type:       jobType,
		Status:     models.JobStatusPending,
		Payload:    payload,
		Priority:   cfg.Priority,
		MaxRetries: cfg.MaxRetries,
		CreatedBy:  cfg.CreatedBy,
		VideoID:    payload.String(PayloadVideoID),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, apperrors.DatabaseError("create job", err)
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"type":     jobType,
		"video_id": job.VideoID,
	}).Debug("Enqueued job")
	return job, nil
}

// EnqueueTranscription queues an acquisition. A job for the same video that
// is still queued or running is returned instead of a new one.
func (s *service) EnqueueTranscription(ctx context.Context, req TranscriptionJob, opts ...JobOption) (*models.Job, error) {
	videoID, err := youtube.ParseVideoID(req.VideoID)
	if err != nil {
		return nil, err
	}
	req.VideoID = videoID
	if _, err := models.ParseStrategyHint(req.Strategy); err != nil {
		return nil, apperrors.ValidationError("strategy", err.Error())
	}

	existing, err := s.repo.LatestForVideo(ctx, models.JobTypeTranscript, videoID)
	switch {
	case err == nil && !existing.IsTerminal():
		s.logger.WithFields(logrus.Fields{
			"job_id":   existing.ID,
			"video_id": videoID,
			"status":   existing.Status,
		}).Debug("Transcript job already queued")
		return existing, nil
	case err != nil && !errors.Is(err, ErrJobNotFound):
		return nil, apperrors.DatabaseError("get job for video", err)
	}

	if req.CallerID != "" {
		opts = append([]JobOption{WithCreatedBy(req.CallerID)}, opts...)
	}
	return s.EnqueueJob(ctx, models.JobTypeTranscript, req.Payload(), opts...)
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*models.Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if errors.Is(err, ErrJobNotFound) {
		return nil, apperrors.NotFound("job", jobID).WithCause(err)
	}
	if err != nil {
		return nil, apperrors.DatabaseError("get job", err)
	}
	return job, nil
}

func (s *service) GetJobStatus(ctx context.Context, jobID uint) (models.JobStatus, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

func (s *service) GetJobForVideo(ctx context.Context, videoID string) (*models.Job, error) {
	job, err := s.repo.LatestForVideo(ctx, models.JobTypeTranscript, videoID)
	if errors.Is(err, ErrJobNotFound) {
		return nil, apperrors.NotFound("job for video", videoID).WithCause(err)
	}
	if err != nil {
		return nil, apperrors.DatabaseError("get job for video", err)
	}
	return job, nil
}

func (s *service) ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error) {
	job, err := s.repo.Claim(ctx, workerID, jobTypes)
	if errors.Is(err, ErrNoJobsAvailable) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"worker_id": workerID,
		"video_id":  job.VideoID,
		"attempt":   job.RetryCount + 1,
	}).Debug("Claimed job")
	return job, nil
}

func (s *service) UpdateProgress(ctx context.Context, jobID uint, progress int) error {
	return s.repo.SetProgress(ctx, jobID, progress)
}

func (s *service) CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error {
	if err := s.repo.Complete(ctx, jobID, result); err != nil {
		return err
	}
	s.logger.WithField("job_id", jobID).Debug("Job completed")
	return nil
}

// FailJob records an unclassified error as a system failure
func (s *service) FailJob(ctx context.Context, jobID uint, err error) error {
	return s.RecordFailure(ctx, jobID, models.JobFailure{
		Type:    models.ErrorTypeSystem,
		Code:    string(apperrors.GetCode(err)),
		Message: err.Error(),
	})
}

func (s *service) RecordFailure(ctx context.Context, jobID uint, failure models.JobFailure) error {
	job, err := s.repo.Fail(ctx, jobID, failure)
	if err != nil {
		return err
	}

	log := s.logger.WithFields(logrus.Fields{
		"job_id":     jobID,
		"video_id":   job.VideoID,
		"error_type": failure.Type,
		"code":       failure.Code,
	})
	if job.IsRetryable() {
		log.WithField("retry", fmt.Sprintf("%d/%d", job.RetryCount, job.MaxRetries)).Warn("Job failed, will retry: " + failure.Message)
	} else {
		log.Error("Job failed permanently: " + failure.Message)
	}
	return nil
}

func (s *service) ReleaseJob(ctx context.Context, jobID uint) error {
	if err := s.repo.Release(ctx, jobID); err != nil {
		return err
	}
	s.logger.WithField("job_id", jobID).Debug("Job released back to pending")
	return nil
}

func (s *service) CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}

	deleted, err := s.repo.DeleteFinishedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted":   deleted,
			"retention": retention.String(),
		}).Info("Deleted old jobs")
	}
	return deleted, nil
}

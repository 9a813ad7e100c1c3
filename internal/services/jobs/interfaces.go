package jobs

import (
	"context"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
)

// Service defines the business logic interface for job operations
type Service interface {
	EnqueueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, opts ...JobOption) (*models.Job, error)
	EnqueueTranscription(ctx context.Context, req TranscriptionJob, opts ...JobOption) (*models.Job, error)

	GetJob(ctx context.Context, jobID uint) (*models.Job, error)
	GetJobStatus(ctx context.Context, jobID uint) (models.JobStatus, error)
	GetJobForVideo(ctx context.Context, videoID string) (*models.Job, error)

	// Used by the worker pool
	ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error)
	UpdateProgress(ctx context.Context, jobID uint, progress int) error
	CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error
	FailJob(ctx context.Context, jobID uint, err error) error
	RecordFailure(ctx context.Context, jobID uint, failure models.JobFailure) error
	ReleaseJob(ctx context.Context, jobID uint) error

	CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error)
}

// TranscriptionJob is the payload of an async acquisition
type TranscriptionJob struct {
	VideoID            string
	Language           string
	Strategy           string
	MaxDurationSeconds int
	CallerID           string
	RequestID          string
}

// Payload keys of transcription jobs
const (
	PayloadVideoID     = "video_id"
	PayloadLanguage    = "language"
	PayloadStrategy    = "strategy"
	PayloadMaxDuration = "max_duration_seconds"
	PayloadCallerID    = "caller_id"
	PayloadRequestID   = "request_id"
)

// Payload renders the job as a JobPayload
func (t TranscriptionJob) Payload() models.JobPayload {
	return models.JobPayload{
		PayloadVideoID:     t.VideoID,
		PayloadLanguage:    t.Language,
		PayloadStrategy:    t.Strategy,
		PayloadMaxDuration: t.MaxDurationSeconds,
		PayloadCallerID:    t.CallerID,
		PayloadRequestID:   t.RequestID,
	}
}

// TranscriptionJobFromPayload reads a job payload back
func TranscriptionJobFromPayload(job *models.Job) TranscriptionJob {
	p := job.Payload
	return TranscriptionJob{
		VideoID:            p.String(PayloadVideoID),
		Language:           p.String(PayloadLanguage),
		Strategy:           p.String(PayloadStrategy),
		MaxDurationSeconds: p.Int(PayloadMaxDuration),
		CallerID:           p.String(PayloadCallerID),
		RequestID:          p.String(PayloadRequestID),
	}
}

type JobOption func(*jobConfig)

type jobConfig struct {
	Priority   int
	MaxRetries int
	CreatedBy  string
}

// WithPriority sets the claim order; higher runs first
func WithPriority(priority int) JobOption {
	return func(cfg *jobConfig) {
		cfg.Priority = priority
	}
}

// WithMaxRetries caps how many attempts a job gets
func WithMaxRetries(retries int) JobOption {
	return func(cfg *jobConfig) {
		cfg.MaxRetries = retries
	}
}

// WithCreatedBy records the caller that queued the job
func WithCreatedBy(createdBy string) JobOption {
	return func(cfg *jobConfig) {
		cfg.CreatedBy = createdBy
	}
}

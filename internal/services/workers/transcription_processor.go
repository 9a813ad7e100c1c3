package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/jobs"
	"github.com/matlukowski/readTube-sub000/internal/services/orchestrator"
	"github.com/matlukowski/readTube-sub000/internal/services/transcription"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TranscriptionProcessor processes transcript acquisition jobs
type TranscriptionProcessor struct {
	jobService           jobs.Service
	transcriptionService transcription.TranscriptionService
	logger               logrus.FieldLogger
}

// NewTranscriptionProcessor creates a new transcription processor
func NewTranscriptionProcessor(jobService jobs.Service, transcriptionService transcription.TranscriptionService, logger logrus.FieldLogger) *TranscriptionProcessor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TranscriptionProcessor{
		jobService:           jobService,
		transcriptionService: transcriptionService,
		logger:               logger,
	}
}

// CanProcess returns true if this processor can handle the job type
func (p *TranscriptionProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeTranscript
}

// ProcessJob runs the acquisition described by the job payload. The text is
// not copied into the job result; callers read it from the transcript cache.
func (p *TranscriptionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}

	payload := jobs.TranscriptionJobFromPayload(job)
	if payload.VideoID == "" {
		return models.NewJobError(models.ErrorTypePermanent, string(apperrors.ErrCodeValidation),
			"job payload has no video_id", "", nil)
	}

	hint, err := models.ParseStrategyHint(payload.Strategy)
	if err != nil {
		return models.NewJobError(models.ErrorTypePermanent, string(apperrors.ErrCodeValidation), err.Error(), "", err)
	}

	log := p.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"video_id":   payload.VideoID,
		"request_id": payload.RequestID,
	})

	if err := p.jobService.UpdateProgress(ctx, job.ID, 10); err != nil {
		log.WithError(err).Warn("Failed to update job progress")
	}

	req := &models.TranscriptionRequest{
		Video:              models.VideoRef{ID: payload.VideoID},
		PreferredLanguage:  payload.Language,
		MaxDurationSeconds: payload.MaxDurationSeconds,
		Strategy:           hint,
		CallerID:           payload.CallerID,
		RequestID:          payload.RequestID,
	}

	result, err := p.transcriptionService.Acquire(ctx, req)
	if err != nil {
		return classifyJobError(err)
	}

	jobResult := models.JobResult{
		"videoId":          result.VideoID,
		"source":           string(result.Source),
		"lengthChars":      result.LengthChars,
		"costEstimate":     result.CostEstimate,
		"modelOrMethod":    result.ModelOrMethod,
		"language":         result.Language,
		"cached":           result.Cached,
		"processingTimeMs": result.ProcessingTimeMs,
	}
	if err := p.jobService.CompleteJob(ctx, job.ID, jobResult); err != nil {
		return models.NewJobError(models.ErrorTypeSystem, string(apperrors.ErrCodeDatabaseQuery),
			"failed to complete job", "", err)
	}

	log.WithFields(logrus.Fields{
		"source": result.Source,
		"chars":  result.LengthChars,
	}).Info("Transcript job finished")
	return nil
}

// classifyJobError maps an acquisition error onto a job error. Permanent
// errors stop the job from being retried.
func classifyJobError(err error) *models.StructuredJobError {
	if failure, ok := orchestrator.AsFailure(err); ok {
		details := ""
		if b, mErr := json.Marshal(failure.Attempts); mErr == nil {
			details = string(b)
		}
		errorType := models.ErrorTypeTransient
		if failure.Code == apperrors.ErrCodeUnavailable || !failure.Retryable {
			errorType = models.ErrorTypePermanent
		}
		return models.NewJobError(errorType, string(failure.Code), failure.Message, details, err)
	}

	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeUnavailable,
		apperrors.ErrCodeQuotaExceeded,
		apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeTooLong:
		return models.NewJobError(models.ErrorTypePermanent, string(code), err.Error(), "", err)
	case apperrors.ErrCodeDatabaseQuery, apperrors.ErrCodeInternal:
		return models.NewJobError(models.ErrorTypeSystem, string(code), err.Error(), "", err)
	}
	return models.NewJobError(models.ErrorTypeTransient, string(code), err.Error(), "", err)
}

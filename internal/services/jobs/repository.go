package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrNoJobsAvailable = errors.New("no jobs available")
)

// Repository persists queued acquisitions
type Repository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uint) (*models.Job, error)
	LatestForVideo(ctx context.Context, jobType models.JobType, videoID string) (*models.Job, error)

	// Claim locks the best claimable job and hands it to workerID
	Claim(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error)
	SetProgress(ctx context.Context, id uint, progress int) error
	Complete(ctx context.Context, id uint, result models.JobResult) error
	Fail(ctx context.Context, id uint, failure models.JobFailure) (*models.Job, error)
	Release(ctx context.Context, id uint) error

	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) Get(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, notFound(err, "getting job")
	}
	return &job, nil
}

func (r *repository) LatestForVideo(ctx context.Context, jobType models.JobType, videoID string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("type = ? AND video_id = ?", jobType, videoID).
		Order("created_at DESC, id DESC").
		First(&job).Error
	if err != nil {
		return nil, notFound(err, "getting job for video")
	}
	return &job, nil
}

// claimable selects pending jobs and failed jobs with retries left
func claimable(jobTypes []models.JobType) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("status = ? OR (status = ? AND retry_count < max_retries)",
			models.JobStatusPending, models.JobStatusFailed)
		if len(jobTypes) > 0 {
			db = db.Where("type IN ?", jobTypes)
		}
		return db
	}
}

func (r *repository) Claim(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(claimable(jobTypes)).
			Order("priority DESC, created_at ASC, id ASC").
			Take(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoJobsAvailable
		}
		if err != nil {
			return fmt.Errorf("finding job to claim: %w", err)
		}

		// retry_count was bumped when the previous attempt failed
		now := time.Now()
		job.Status = models.JobStatusProcessing
		job.WorkerID = workerID
		job.StartedAt = &now
		job.Progress = 0
		return tx.Model(&job).Select("status", "worker_id", "started_at", "progress").Updates(&job).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) SetProgress(ctx context.Context, id uint, progress int) error {
	progress = min(max(progress, 0), 100)
	return r.update(ctx, "updating job progress",
		r.db.Where("id = ? AND status = ?", id, models.JobStatusProcessing),
		map[string]any{"progress": progress})
}

func (r *repository) Complete(ctx context.Context, id uint, result models.JobResult) error {
	now := time.Now()
	return r.update(ctx, "completing job", r.db.Where("id = ?", id), map[string]any{
		"status":       models.JobStatusCompleted,
		"progress":     100,
		"completed_at": &now,
		"result":       result,
		"worker_id":    "",
	})
}

// Fail records a failed attempt and returns the job in its new state
func (r *repository) Fail(ctx context.Context, id uint, failure models.JobFailure) (*models.Job, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job.Status = job.NextStatus(failure)
	job.RetryCount++
	job.LastFailedAt = &now
	job.WorkerID = ""
	job.Error = failure.Message
	job.ErrorType = string(failure.Type)
	job.ErrorCode = failure.Code
	job.ErrorDetails = failure.Details

	fields := []string{"status", "retry_count", "last_failed_at", "worker_id",
		"error", "error_type", "error_code", "error_details"}
	if job.Status == models.JobStatusPermanentlyFailed {
		job.CompletedAt = &now
		fields = append(fields, "completed_at")
	}

	if err := r.db.WithContext(ctx).Model(job).Select(fields).Updates(job).Error; err != nil {
		return nil, fmt.Errorf("failing job: %w", err)
	}
	return job, nil
}

// Release puts a processing job back in the queue untouched
func (r *repository) Release(ctx context.Context, id uint) error {
	return r.update(ctx, "releasing job",
		r.db.Where("id = ? AND status = ?", id, models.JobStatusProcessing),
		map[string]any{
			"status":     models.JobStatusPending,
			"worker_id":  "",
			"started_at": nil,
			"progress":   0,
		})
}

func (r *repository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	statuses := append([]models.JobStatus{models.JobStatusFailed}, models.FinishedJobStatuses...)
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("status IN ?", statuses).
		Delete(&models.Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting old jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// update applies fields to the rows matched by scope; no match is ErrJobNotFound
func (r *repository) update(ctx context.Context, op string, scope *gorm.DB, fields map[string]any) error {
	res := scope.WithContext(ctx).Model(&models.Job{}).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

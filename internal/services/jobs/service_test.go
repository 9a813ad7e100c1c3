package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Job{}))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	log, _ := test.NewNullLogger()
	return NewService(NewRepository(db), log), db
}

var transcriptTypes = []models.JobType{models.JobTypeTranscript}

func TestService_EnqueueTranscription(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueTranscription(ctx, TranscriptionJob{
		VideoID:            "https://youtu.be/dQw4w9WgXcQ",
		Language:           "de",
		Strategy:           "force-local",
		MaxDurationSeconds: 1800,
		CallerID:           "caller-1",
		RequestID:          "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.JobTypeTranscript, job.Type)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "dQw4w9WgXcQ", job.VideoID)
	assert.Equal(t, "caller-1", job.CreatedBy)

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	payload := TranscriptionJobFromPayload(stored)
	assert.Equal(t, TranscriptionJob{
		VideoID:            "dQw4w9WgXcQ",
		Language:           "de",
		Strategy:           "force-local",
		MaxDurationSeconds: 1800,
		CallerID:           "caller-1",
		RequestID:          "req-1",
	}, payload)
}

func TestService_DefaultOptions(t *testing.T) {
	db := setupTestDB(t)
	log, _ := test.NewNullLogger()
	svc := NewService(NewRepository(db), log, WithMaxRetries(1))
	ctx := context.Background()

	job, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, 1, job.MaxRetries)

	job, err = svc.EnqueueJob(ctx, models.JobTypeTranscript, models.JobPayload{}, WithMaxRetries(5))
	require.NoError(t, err)
	assert.Equal(t, 5, job.MaxRetries, "per-call options win over defaults")
}

func TestService_EnqueueTranscription_ReusesActiveJob(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	second, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	claimed, err := svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteJob(ctx, claimed.ID, models.JobResult{"source": "captions"}))

	third, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	latest, err := svc.GetJobForVideo(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, third.ID, latest.ID)
}

func TestService_EnqueueTranscription_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "not a video!"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	_, err = svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ", Strategy: "sometimes"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
}

func TestService_ClaimNextJob(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
	assert.ErrorIs(t, err, ErrNoJobsAvailable)

	low, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "aaaaaaaaaaa"})
	require.NoError(t, err)
	high, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "bbbbbbbbbbb"}, WithPriority(5))
	require.NoError(t, err)

	claimed, err := svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
	require.NoError(t, err)
	assert.Equal(t, high.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.Equal(t, "worker-1", claimed.WorkerID)

	claimed, err = svc.ClaimNextJob(ctx, "worker-2", transcriptTypes)
	require.NoError(t, err)
	assert.Equal(t, low.ID, claimed.ID)

	_, err = svc.ClaimNextJob(ctx, "worker-3", transcriptTypes)
	assert.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestService_ClaimNextJob_PriorityThenAge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var order []uint
	for _, tc := range []struct {
		videoID  string
		priority int
	}{
		{"aaaaaaaaaaa", 0},
		{"bbbbbbbbbbb", 1},
		{"ccccccccccc", 9},
		{"ddddddddddd", 1},
	} {
		job, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: tc.videoID}, WithPriority(tc.priority))
		require.NoError(t, err)
		order = append(order, job.ID)
	}

	var claimed []uint
	for range order {
		job, err := svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
		require.NoError(t, err)
		claimed = append(claimed, job.ID)
	}
	assert.Equal(t, []uint{order[2], order[1], order[3], order[0]}, claimed)
}

func TestService_RecordFailure(t *testing.T) {
	tests := []struct {
		name       string
		errorType  models.JobErrorType
		maxRetries int
		wantStatus models.JobStatus
		reclaim    bool
	}{
		{"transient failure is retried", models.ErrorTypeTransient, 3, models.JobStatusFailed, true},
		{"permanent failure ends the job", models.ErrorTypePermanent, 3, models.JobStatusPermanentlyFailed, false},
		{"last retry ends the job", models.ErrorTypeTransient, 1, models.JobStatusPermanentlyFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			job, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"}, WithMaxRetries(tt.maxRetries))
			require.NoError(t, err)
			_, err = svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
			require.NoError(t, err)

			require.NoError(t, svc.RecordFailure(ctx, job.ID, models.JobFailure{
				Type:    tt.errorType,
				Code:    "STRATEGIES_EXHAUSTED",
				Message: "nothing worked",
				Details: `[{"strategy":"captions"}]`,
			}))

			stored, err := svc.GetJob(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, 1, stored.RetryCount)
			assert.Equal(t, "STRATEGIES_EXHAUSTED", stored.ErrorCode)
			assert.Equal(t, string(tt.errorType), stored.ErrorType)
			assert.Empty(t, stored.WorkerID)

			claimed, err := svc.ClaimNextJob(ctx, "worker-2", transcriptTypes)
			if tt.reclaim {
				require.NoError(t, err)
				assert.Equal(t, job.ID, claimed.ID)
				assert.Equal(t, 1, claimed.RetryCount)
			} else {
				assert.ErrorIs(t, err, ErrNoJobsAvailable)
			}
		})
	}
}

func TestService_FailJob_UsesErrorCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	_, err = svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
	require.NoError(t, err)

	require.NoError(t, svc.FailJob(ctx, job.ID, apperrors.New(apperrors.ErrCodeDatabaseQuery, "disk full")))

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ErrorTypeSystem), stored.ErrorType)
	assert.Equal(t, string(apperrors.ErrCodeDatabaseQuery), stored.ErrorCode)
}

func TestService_ReleaseJob(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueTranscription(ctx, TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	_, err = svc.ClaimNextJob(ctx, "worker-1", transcriptTypes)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateProgress(ctx, job.ID, 40))

	require.NoError(t, svc.ReleaseJob(ctx, job.ID))

	status, err := svc.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, status)

	assert.ErrorIs(t, svc.ReleaseJob(ctx, job.ID), ErrJobNotFound)
}

func TestService_GetJob_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetJob(context.Background(), 42)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	assert.True(t, errors.Is(err, ErrJobNotFound))

	_, err = svc.GetJobForVideo(context.Background(), "dQw4w9WgXcQ")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestService_CleanupOldJobs(t *testing.T) {
	db := setupTestDB(t)
	log, hook := test.NewNullLogger()
	svc := NewService(NewRepository(db), log)
	ctx := context.Background()

	old := time.Now().Add(-10 * 24 * time.Hour)
	seed := []*models.Job{
		{Type: models.JobTypeTranscript, Status: models.JobStatusCompleted, VideoID: "aaaaaaaaaaa"},
		{Type: models.JobTypeTranscript, Status: models.JobStatusPermanentlyFailed, VideoID: "bbbbbbbbbbb"},
		{Type: models.JobTypeTranscript, Status: models.JobStatusPending, VideoID: "ccccccccccc"},
	}
	for _, job := range seed {
		job.CreatedAt = old
		require.NoError(t, db.Create(job).Error)
	}
	recent := &models.Job{Type: models.JobTypeTranscript, Status: models.JobStatusCompleted, VideoID: "ddddddddddd"}
	require.NoError(t, db.Create(recent).Error)

	deleted, err := svc.CleanupOldJobs(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.Job
	require.NoError(t, db.Order("id").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, "ccccccccccc", remaining[0].VideoID)
	assert.Equal(t, "ddddddddddd", remaining[1].VideoID)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, int64(2), hook.LastEntry().Data["deleted"])

	_, err = svc.CleanupOldJobs(ctx, 0)
	assert.Error(t, err)
}

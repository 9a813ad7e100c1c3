package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/jobs"
	"github.com/matlukowski/readTube-sub000/internal/services/orchestrator"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MockTranscriptionService struct {
	mock.Mock
}

func (m *MockTranscriptionService) Acquire(ctx context.Context, req *models.TranscriptionRequest) (*models.TranscriptionResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*models.TranscriptionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTranscriptionService) Cached(ctx context.Context, videoID string) (*models.TranscriptionResult, error) {
	args := m.Called(ctx, videoID)
	if r := args.Get(0); r != nil {
		return r.(*models.TranscriptionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTranscriptionService) SubmitClientTranscript(ctx context.Context, videoID, text, language string) (*models.TranscriptionResult, error) {
	args := m.Called(ctx, videoID, text, language)
	if r := args.Get(0); r != nil {
		return r.(*models.TranscriptionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newJobService(t *testing.T) jobs.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Job{}))
	t.Cleanup(func() { sqlDB.Close() })

	log, _ := test.NewNullLogger()
	return jobs.NewService(jobs.NewRepository(db), log)
}

func newTestWorker(t *testing.T, svc jobs.Service, acquirer *MockTranscriptionService) *Worker {
	t.Helper()
	log, _ := test.NewNullLogger()
	w := NewWorker("worker-test", svc, 10*time.Millisecond, log)
	w.RegisterProcessor(NewTranscriptionProcessor(svc, acquirer, log))
	return w
}

func TestWorker_ProcessNext_Completes(t *testing.T) {
	ctx := context.Background()
	svc := newJobService(t)
	acquirer := new(MockTranscriptionService)
	w := newTestWorker(t, svc, acquirer)

	job, err := svc.EnqueueTranscription(ctx, jobs.TranscriptionJob{
		VideoID:   "dQw4w9WgXcQ",
		Language:  "pl",
		Strategy:  "force-remote",
		CallerID:  "caller-1",
		RequestID: "req-9",
	})
	require.NoError(t, err)

	result, err := models.NewTranscriptionResult("dQw4w9WgXcQ", "hello there", models.SourceRemoteSpeech, "remote:best", 2*time.Second, 4)
	require.NoError(t, err)
	acquirer.On("Acquire", mock.Anything, mock.MatchedBy(func(req *models.TranscriptionRequest) bool {
		return req.Video.ID == "dQw4w9WgXcQ" &&
			req.PreferredLanguage == "pl" &&
			req.Strategy == models.StrategyForceRemote &&
			req.CallerID == "caller-1" &&
			req.RequestID == "req-9"
	})).Return(result, nil).Once()

	processed, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, "remote-speech", stored.Result["source"])
	assert.EqualValues(t, 11, stored.Result["lengthChars"])
	assert.EqualValues(t, 4, stored.Result["costEstimate"])
	assert.NotContains(t, stored.Result, "transcript")

	acquirer.AssertExpectations(t)
}

func TestWorker_ProcessNext_Empty(t *testing.T) {
	svc := newJobService(t)
	w := newTestWorker(t, svc, new(MockTranscriptionService))

	processed, err := w.ProcessNext(context.Background())
	assert.NoError(t, err)
	assert.False(t, processed)
}

func TestWorker_ProcessNext_NoProcessors(t *testing.T) {
	log, _ := test.NewNullLogger()
	w := NewWorker("idle", newJobService(t), time.Second, log)

	_, err := w.ProcessNext(context.Background())
	assert.Error(t, err)
}

func TestWorker_ProcessNext_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus models.JobStatus
		wantType   models.JobErrorType
		wantCode   string
	}{
		{
			name: "unavailable video",
			err: &orchestrator.Failure{
				Code:      apperrors.ErrCodeUnavailable,
				Message:   "video is private",
				Attempts:  []orchestrator.Attempt{{Strategy: orchestrator.StageCaptions, Outcome: orchestrator.OutcomeFailed, Code: apperrors.ErrCodeUnavailable}},
				Retryable: false,
			},
			wantStatus: models.JobStatusPermanentlyFailed,
			wantType:   models.ErrorTypePermanent,
			wantCode:   "UNAVAILABLE",
		},
		{
			name: "retryable exhaustion",
			err: &orchestrator.Failure{
				Code:      apperrors.ErrCodeStrategiesExhausted,
				Message:   "no strategy produced a transcript",
				Attempts:  []orchestrator.Attempt{{Strategy: orchestrator.StageCaptions, Outcome: orchestrator.OutcomeFailed, Code: apperrors.ErrCodeBotDetected}},
				Retryable: true,
			},
			wantStatus: models.JobStatusFailed,
			wantType:   models.ErrorTypeTransient,
			wantCode:   "STRATEGIES_EXHAUSTED",
		},
		{
			name:       "quota exceeded",
			err:        apperrors.QuotaExceeded("caller-1", 90, 60),
			wantStatus: models.JobStatusPermanentlyFailed,
			wantType:   models.ErrorTypePermanent,
			wantCode:   "QUOTA_EXCEEDED",
		},
		{
			name:       "unclassified error",
			err:        errors.New("boom"),
			wantStatus: models.JobStatusFailed,
			wantType:   models.ErrorTypeSystem,
			wantCode:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := newJobService(t)
			acquirer := new(MockTranscriptionService)
			w := newTestWorker(t, svc, acquirer)

			job, err := svc.EnqueueTranscription(ctx, jobs.TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
			require.NoError(t, err)
			acquirer.On("Acquire", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			processed, err := w.ProcessNext(ctx)
			assert.True(t, processed)
			assert.Error(t, err)

			stored, err := svc.GetJob(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, string(tt.wantType), stored.ErrorType)
			assert.Equal(t, tt.wantCode, stored.ErrorCode)
		})
	}
}

func TestClassifyJobError_AttemptDetails(t *testing.T) {
	failure := &orchestrator.Failure{
		Code:    apperrors.ErrCodeStrategiesExhausted,
		Message: "no strategy produced a transcript",
		Attempts: []orchestrator.Attempt{
			{Strategy: orchestrator.StageCaptions, Outcome: orchestrator.OutcomeFailed, Code: apperrors.ErrCodeNotFound},
			{Strategy: orchestrator.StageRemoteSpeech, Outcome: orchestrator.OutcomeSkipped, Code: apperrors.ErrCodeConfigRequired},
		},
	}

	jobErr := classifyJobError(failure)
	assert.Equal(t, models.ErrorTypePermanent, jobErr.Type)
	assert.Contains(t, jobErr.Details, `"strategy":"captions"`)
	assert.Contains(t, jobErr.Details, `"outcome":"skipped"`)
	assert.ErrorIs(t, jobErr, failure)
}

func TestWorkerPool_StartStop(t *testing.T) {
	ctx := context.Background()
	svc := newJobService(t)
	acquirer := new(MockTranscriptionService)
	log, _ := test.NewNullLogger()

	pool := NewWorkerPool(svc, 2, 5*time.Millisecond, log)
	pool.RegisterProcessor(NewTranscriptionProcessor(svc, acquirer, log))
	assert.Equal(t, 2, pool.Size())

	job, err := svc.EnqueueTranscription(ctx, jobs.TranscriptionJob{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	result, err := models.NewTranscriptionResult("dQw4w9WgXcQ", "captioned", models.SourceCaptions, "captions:en", time.Second, 1)
	require.NoError(t, err)
	acquirer.On("Acquire", mock.Anything, mock.Anything).Return(result, nil).Once()

	require.NoError(t, pool.Start(ctx))
	assert.Error(t, pool.Start(ctx))

	assert.Eventually(t, func() bool {
		status, err := svc.GetJobStatus(ctx, job.ID)
		return err == nil && status == models.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	pool.Stop()
	pool.Stop()
}

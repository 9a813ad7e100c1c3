package videos

import (
	"context"
	"testing"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/cache"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const videoID = "dQw4w9WgXcQ"

type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) Metadata(ctx context.Context, id string) (*youtube.VideoMetadata, error) {
	args := m.Called(ctx, id)
	meta, _ := args.Get(0).(*youtube.VideoMetadata)
	return meta, args.Error(1)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.VideoRef{}))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func sampleMetadata() *youtube.VideoMetadata {
	return &youtube.VideoMetadata{
		ID:              videoID,
		Title:           "Never Gonna Give You Up",
		Author:          "Rick Astley",
		DurationSeconds: 213,
		Status:          youtube.StatusOK,
		CaptionTracks:   []youtube.CaptionTrack{{LanguageCode: "en", BaseURL: "http://example/tt"}},
	}
}

func TestService_ResolveCreatesReference(t *testing.T) {
	ctx := context.Background()
	platform := new(MockPlatform)
	platform.On("Metadata", mock.Anything, videoID).Return(sampleMetadata(), nil).Once()

	svc := NewService(platform, NewRepository(setupTestDB(t)), nil, Options{})

	ref, err := svc.Resolve(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", ref.Title)
	assert.Equal(t, 213, ref.Duration())
	assert.True(t, ref.HasCaptions)

	// second resolve within the refresh window never calls the platform
	ref, err = svc.Resolve(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, "Rick Astley", ref.ChannelName)
	platform.AssertExpectations(t)
}

func TestService_ResolveRefreshesStaleMetadata(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	updated := sampleMetadata()
	updated.Title = "Renamed"

	platform := new(MockPlatform)
	platform.On("Metadata", mock.Anything, videoID).Return(sampleMetadata(), nil).Once()
	platform.On("Metadata", mock.Anything, videoID).Return(updated, nil).Once()

	svc := NewService(platform, NewRepository(setupTestDB(t)), nil, Options{RefreshTTL: time.Hour, Now: clock})

	_, err := svc.Resolve(ctx, videoID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	ref, err := svc.Resolve(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", ref.Title)
	platform.AssertExpectations(t)
}

func TestService_ResolveKeepsStoredReferenceOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	platform := new(MockPlatform)
	platform.On("Metadata", mock.Anything, videoID).Return(sampleMetadata(), nil).Once()
	platform.On("Metadata", mock.Anything, videoID).
		Return(nil, apperrors.New(apperrors.ErrCodeBotDetected, "challenge")).Once()

	svc := NewService(platform, NewRepository(setupTestDB(t)), nil, Options{RefreshTTL: time.Hour, Now: func() time.Time { return now }})

	_, err := svc.Resolve(ctx, videoID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	ref, err := svc.Resolve(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, videoID, ref.ID)
}

func TestService_ResolveUnavailable(t *testing.T) {
	platform := new(MockPlatform)
	platform.On("Metadata", mock.Anything, videoID).
		Return(nil, apperrors.Unavailable(videoID, "This video is private")).Once()

	svc := NewService(platform, NewRepository(setupTestDB(t)), nil, Options{})

	_, err := svc.Resolve(context.Background(), videoID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnavailable))
}

func TestService_ResolveRejectsBadID(t *testing.T) {
	svc := NewService(new(MockPlatform), NewRepository(setupTestDB(t)), nil, Options{})
	_, err := svc.Resolve(context.Background(), "short")
	assert.Error(t, err)
}

func TestService_MetadataIsMemoized(t *testing.T) {
	ctx := context.Background()
	memo := cache.NewMemoryCache(cache.MemoryOptions{})
	defer memo.Stop()

	platform := new(MockPlatform)
	platform.On("Metadata", mock.Anything, videoID).Return(sampleMetadata(), nil).Once()

	svc := NewService(platform, NewRepository(setupTestDB(t)), memo, Options{})

	first, err := svc.Metadata(ctx, videoID)
	require.NoError(t, err)
	second, err := svc.Metadata(ctx, videoID)
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Len(t, second.CaptionTracks, 1)
	platform.AssertExpectations(t)
}

func TestService_MetadataErrorsAreNotMemoized(t *testing.T) {
	ctx := context.Background()
	memo := cache.NewMemoryCache(cache.MemoryOptions{})
	defer memo.Stop()

	platform := new(MockPlatform)
	platform.On("Metadata", mock.Anything, videoID).
		Return(nil, apperrors.New(apperrors.ErrCodeExternalService, "boom")).Once()
	platform.On("Metadata", mock.Anything, videoID).Return(sampleMetadata(), nil).Once()

	svc := NewService(platform, NewRepository(setupTestDB(t)), memo, Options{})

	_, err := svc.Metadata(ctx, videoID)
	require.Error(t, err)
	_, err = svc.Metadata(ctx, videoID)
	require.NoError(t, err)
	platform.AssertExpectations(t)
}

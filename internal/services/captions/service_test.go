package captions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/retry"
	"github.com/matlukowski/readTube-sub000/pkg/transcript"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const videoID = "dQw4w9WgXcQ"

const srv1Body = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">[Music]</text>
<text start="2.6" dur="3.0">We&amp;#39;re no strangers to love</text>
<text start="5.6" dur="2.9">You know the rules (laughs) and so do I</text>
</transcript>`

type MockMetadataSource struct {
	mock.Mock
}

func (m *MockMetadataSource) Metadata(ctx context.Context, id string) (*youtube.VideoMetadata, error) {
	args := m.Called(ctx, id)
	meta, _ := args.Get(0).(*youtube.VideoMetadata)
	return meta, args.Error(1)
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func newTestService(meta MetadataSource) *Service {
	return NewService(meta, transcript.NewFetcher(transcript.FetchOptions{Timeout: 5 * time.Second}), Options{Retry: fastRetry()})
}

func metaWithTracks(tracks ...youtube.CaptionTrack) *youtube.VideoMetadata {
	return &youtube.VideoMetadata{ID: videoID, Status: youtube.StatusOK, DurationSeconds: 212, CaptionTracks: tracks}
}

func TestService_FetchCleansTimedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		_, _ = w.Write([]byte(srv1Body))
	}))
	defer server.Close()

	meta := new(MockMetadataSource)
	meta.On("Metadata", mock.Anything, videoID).Return(metaWithTracks(
		youtube.CaptionTrack{LanguageCode: "en", Kind: "asr", BaseURL: server.URL + "/api/timedtext?lang=en&kind=asr"},
	), nil)

	caps, err := newTestService(meta).Fetch(context.Background(), videoID, []string{"en"})
	require.NoError(t, err)

	assert.Equal(t, "We're no strangers to love You know the rules and so do I", caps.Text)
	assert.Equal(t, "en", caps.Language)
	assert.True(t, caps.AutoGenerated)
	assert.Equal(t, "captions:asr:en", caps.Method())
}

func TestService_FetchNoTracksIsNotFound(t *testing.T) {
	meta := new(MockMetadataSource)
	meta.On("Metadata", mock.Anything, videoID).Return(metaWithTracks(), nil)

	_, err := newTestService(meta).Fetch(context.Background(), videoID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestService_FetchSkipsEmptyTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "en" {
			w.WriteHeader(http.StatusOK) // token-gated tracks answer with nothing
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(srv1Body))
	}))
	defer server.Close()

	meta := new(MockMetadataSource)
	meta.On("Metadata", mock.Anything, videoID).Return(metaWithTracks(
		youtube.CaptionTrack{LanguageCode: "en", BaseURL: server.URL + "/api/timedtext?lang=en"},
		youtube.CaptionTrack{LanguageCode: "de", Kind: "asr", BaseURL: server.URL + "/api/timedtext?lang=de"},
	), nil)

	caps, err := newTestService(meta).Fetch(context.Background(), videoID, []string{"en"})
	require.NoError(t, err)
	assert.Equal(t, "de", caps.Language)
}

func TestService_FetchRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(srv1Body))
	}))
	defer server.Close()

	meta := new(MockMetadataSource)
	meta.On("Metadata", mock.Anything, videoID).Return(metaWithTracks(
		youtube.CaptionTrack{LanguageCode: "en", BaseURL: server.URL + "/api/timedtext?lang=en"},
	), nil)

	caps, err := newTestService(meta).Fetch(context.Background(), videoID, []string{"en"})
	require.NoError(t, err)
	assert.NotEmpty(t, caps.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestService_FetchGivesUpAfterRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	meta := new(MockMetadataSource)
	meta.On("Metadata", mock.Anything, videoID).Return(metaWithTracks(
		youtube.CaptionTrack{LanguageCode: "en", BaseURL: server.URL + "/api/timedtext?lang=en"},
	), nil)

	_, err := newTestService(meta).Fetch(context.Background(), videoID, []string{"en"})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestService_FetchUnavailablePassesThrough(t *testing.T) {
	meta := new(MockMetadataSource)
	meta.On("Metadata", mock.Anything, videoID).
		Return(nil, apperrors.Unavailable(videoID, "Video unavailable")).Once()

	_, err := newTestService(meta).Fetch(context.Background(), videoID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnavailable))
	meta.AssertNumberOfCalls(t, "Metadata", 1)
}

package transcript

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("lang") {
		case "en":
			w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
			_, _ = io.WriteString(w, `<?xml version="1.0"?><transcript><text start="0" dur="1">hi</text></transcript>`)
		case "empty":
			w.WriteHeader(http.StatusOK)
		case "gone":
			w.WriteHeader(http.StatusNotFound)
		case "busy":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewFetcher(FetchOptions{Timeout: 2 * time.Second})

	t.Run("success detects srv1", func(t *testing.T) {
		res, err := f.Fetch(context.Background(), srv.URL+"/api/timedtext?lang=en")
		require.NoError(t, err)
		assert.Equal(t, FormatSRV1, res.Format)
		assert.Positive(t, res.Size)
	})

	tests := []struct {
		lang string
		want apperrors.ErrorCode
	}{
		{"empty", apperrors.ErrCodeNotFound},
		{"gone", apperrors.ErrCodeNotFound},
		{"busy", apperrors.ErrCodeAPIRateLimit},
		{"broken", apperrors.ErrCodeExternalService},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), srv.URL+"/api/timedtext?lang="+tt.lang)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.GetCode(err))
		})
	}
}

func TestFetcher_RejectsOversizedTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nthis body is longer than the limit\n")
	}))
	defer srv.Close()

	f := NewFetcher(FetchOptions{MaxSize: 8})
	_, err := f.Fetch(context.Background(), srv.URL+"/track.vtt")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeExternalService))
}

func TestFetcher_EmptyURL(t *testing.T) {
	_, err := NewFetcher(DefaultFetchOptions()).Fetch(context.Background(), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput))
}

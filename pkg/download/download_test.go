package download

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediaServer(t *testing.T, payload []byte, requests *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		w.Header().Set("Content-Type", "audio/mp4")
		http.ServeContent(w, r, "audio.m4a", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func testOptions(chunk int64) Options {
	opts := DefaultOptions()
	opts.ChunkSize = chunk
	return opts
}

func TestRangeReader_StreamsInChunks(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 100) // 1000 bytes
	var requests int32
	server := mediaServer(t, payload, &requests)

	r := NewRangeReader(context.Background(), server.URL, int64(len(payload)), testOptions(256))
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int32(4), atomic.LoadInt32(&requests))
	assert.Equal(t, "audio/mp4", r.ContentType())
	assert.Equal(t, int64(len(payload)), r.BytesRead())
}

func TestRangeReader_LearnsSizeFromContentRange(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, 700)
	var requests int32
	server := mediaServer(t, payload, &requests)

	r := NewRangeReader(context.Background(), server.URL, 0, testOptions(300))
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, got, 700)
	assert.Equal(t, int64(700), r.Size())
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestRangeReader_ServerIgnoringRange(t *testing.T) {
	payload := []byte(strings.Repeat("a", 500))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/webm")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	r := NewRangeReader(context.Background(), server.URL, 0, testOptions(100))
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRangeReader_MaxBytes(t *testing.T) {
	payload := bytes.Repeat([]byte{1}, 1000)
	var requests int32
	server := mediaServer(t, payload, &requests)

	opts := testOptions(100)
	opts.MaxBytes = 250
	r := NewRangeReader(context.Background(), server.URL, 0, opts)
	defer r.Close()

	_, err := io.ReadAll(r)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeTooLong))
}

func TestRangeReader_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   apperrors.ErrorCode
	}{
		{http.StatusForbidden, apperrors.ErrCodeBotDetected},
		{http.StatusTooManyRequests, apperrors.ErrCodeBotDetected},
		{http.StatusInternalServerError, apperrors.ErrCodeExternalService},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			r := NewRangeReader(context.Background(), server.URL, 100, testOptions(50))
			_, err := r.Read(make([]byte, 10))
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.GetCode(err))
		})
	}
}

func TestRangeReader_RejectsNonAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>captcha</html>"))
	}))
	defer server.Close()

	r := NewRangeReader(context.Background(), server.URL, 0, testOptions(50))
	_, err := io.ReadAll(r)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNoAudioFormats))
}

func TestRangeReader_Progress(t *testing.T) {
	payload := bytes.Repeat([]byte{2}, 300)
	var requests int32
	server := mediaServer(t, payload, &requests)

	var last int64
	opts := testOptions(128)
	opts.ProgressFunc = func(downloaded, total int64) {
		last = downloaded
		assert.Equal(t, int64(300), total)
	}
	r := NewRangeReader(context.Background(), server.URL, 300, opts)
	defer r.Close()

	_, err := io.Copy(io.Discard, r)
	require.NoError(t, err)
	assert.Equal(t, int64(300), last)
}

func TestRangeReader_ReadAfterClose(t *testing.T) {
	r := NewRangeReader(context.Background(), "http://127.0.0.1:0", 10, testOptions(10))
	require.NoError(t, r.Close())
	_, err := r.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestParseContentRangeTotal(t *testing.T) {
	assert.Equal(t, int64(1234), parseContentRangeTotal("bytes 0-99/1234"))
	assert.Equal(t, int64(-1), parseContentRangeTotal("bytes 0-99/*"))
	assert.Equal(t, int64(-1), parseContentRangeTotal(""))
}

func TestIsAudioContentType(t *testing.T) {
	assert.True(t, isAudioContentType("audio/mp4"))
	assert.True(t, isAudioContentType("audio/webm; codecs=\"opus\""))
	assert.True(t, isAudioContentType("application/octet-stream"))
	assert.False(t, isAudioContentType("text/html; charset=utf-8"))
}

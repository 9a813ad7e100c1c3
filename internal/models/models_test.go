package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscriptionResult(t *testing.T) {
	t.Run("refuses blank text", func(t *testing.T) {
		res, err := NewTranscriptionResult("dQw4w9WgXcQ", "  \n\t ", SourceCaptions, "manual:en", time.Second, 4)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
		assert.Nil(t, res)
	})

	t.Run("populates every field", func(t *testing.T) {
		res, err := NewTranscriptionResult("dQw4w9WgXcQ", " zażółć gęślą ", SourceLocalSpeech, "whisper:base", 1500*time.Millisecond, 45)
		require.NoError(t, err)
		assert.Equal(t, "zażółć gęślą", res.Text)
		assert.Equal(t, 12, res.LengthChars)
		assert.Equal(t, int64(1500), res.ProcessingTimeMs)
		assert.Equal(t, int64(45), res.CostEstimate)
		assert.False(t, res.Cached)
	})

	t.Run("cache source marks cached", func(t *testing.T) {
		res, err := NewTranscriptionResult("dQw4w9WgXcQ", "hello", SourceCache, "cache", 0, 0)
		require.NoError(t, err)
		assert.True(t, res.Cached)
	})
}

func TestCostMinutes(t *testing.T) {
	tests := []struct {
		seconds int
		want    int64
	}{
		{0, 1},
		{1, 1},
		{60, 1},
		{61, 2},
		{45 * 60, 45},
		{3600, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CostMinutes(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestCacheEntry_IsFresh(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	entry := &CacheEntry{UpdatedAt: now.Add(-week + time.Minute)}
	assert.True(t, entry.IsFresh(week, now))

	entry.UpdatedAt = now.Add(-week)
	assert.False(t, entry.IsFresh(week, now), "exactly seven days old is stale")
}

func TestTranscriptionRequest_LanguageOrder(t *testing.T) {
	req := &TranscriptionRequest{PreferredLanguage: "pl", Languages: []string{"en", "PL"}}
	assert.Equal(t, []string{"pl", "en", "en-US"}, req.LanguageOrder([]string{"en", "en-US"}))
}

func TestParseStrategyHint(t *testing.T) {
	tests := []struct {
		in      string
		want    StrategyHint
		wantErr bool
	}{
		{"", StrategyAuto, false},
		{"auto", StrategyAuto, false},
		{"force-local", StrategyForceLocal, false},
		{"remote", StrategyForceRemote, false},
		{"parallel", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategyHint(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestVideoRef(t *testing.T) {
	_, err := NewVideoRef("too-short")
	assert.Error(t, err)

	ref, err := NewVideoRef("dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, 0, ref.Duration())

	now := time.Now()
	assert.True(t, ref.NeedsRefresh(time.Hour, now))
	refreshed := now.Add(-30 * time.Minute)
	ref.RefreshedAt = &refreshed
	assert.False(t, ref.NeedsRefresh(time.Hour, now))
}

func TestVideoRef_SetDuration(t *testing.T) {
	var ref VideoRef
	ref.SetDuration(213)
	require.NotNil(t, ref.DurationSeconds)
	assert.Equal(t, 213, ref.Duration())

	ref.SetDuration(0)
	assert.Nil(t, ref.DurationSeconds)
	assert.Equal(t, 0, ref.Duration())

	ref.SetDuration(-5)
	assert.Nil(t, ref.DurationSeconds)

	var missing *VideoRef
	assert.Equal(t, 0, missing.Duration())
}

func TestJobPayload_Scan(t *testing.T) {
	var p JobPayload
	require.NoError(t, p.Scan(`{"video_id":"dQw4w9WgXcQ"}`))
	assert.Equal(t, "dQw4w9WgXcQ", p["video_id"])

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)

	assert.Error(t, p.Scan(42))
}

func TestJobPayload_Fields(t *testing.T) {
	var p JobPayload
	require.NoError(t, p.Scan([]byte(`{"video_id":"dQw4w9WgXcQ","max_duration_seconds":900}`)))

	assert.Equal(t, "dQw4w9WgXcQ", p.String("video_id"))
	assert.Equal(t, 900, p.Int("max_duration_seconds"))
	assert.Equal(t, "", p.String("language"))
	assert.Equal(t, 0, JobPayload{"n": "x"}.Int("n"))
}

func TestJob_NextStatus(t *testing.T) {
	job := &Job{MaxRetries: 3, RetryCount: 0, Status: JobStatusProcessing}

	assert.Equal(t, JobStatusFailed, job.NextStatus(JobFailure{Type: ErrorTypeTransient}))
	assert.Equal(t, JobStatusPermanentlyFailed, job.NextStatus(JobFailure{Type: ErrorTypePermanent}))

	job.RetryCount = 2
	assert.Equal(t, JobStatusPermanentlyFailed, job.NextStatus(JobFailure{Type: ErrorTypeTransient}))
}

func TestJob_IsTerminal(t *testing.T) {
	assert.True(t, (&Job{Status: JobStatusCompleted}).IsTerminal())
	assert.True(t, (&Job{Status: JobStatusFailed, RetryCount: 3, MaxRetries: 3}).IsTerminal())
	assert.False(t, (&Job{Status: JobStatusFailed, RetryCount: 1, MaxRetries: 3}).IsTerminal())
	assert.False(t, (&Job{Status: JobStatusPending}).IsTerminal())
}

func TestUsageLedger_Remaining(t *testing.T) {
	l := &UsageLedger{MinutesUsed: 70, MinutesGranted: 60}
	assert.Equal(t, int64(-10), l.Remaining())
}

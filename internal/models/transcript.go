package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceStrategy names the strategy that produced a transcript
type SourceStrategy string

const (
	SourceCaptions       SourceStrategy = "captions"
	SourceLocalSpeech    SourceStrategy = "local-speech"
	SourceRemoteSpeech   SourceStrategy = "remote-speech"
	SourceClientFallback SourceStrategy = "client-fallback"
	SourceCache          SourceStrategy = "cache"
)

// Valid reports whether s is a known strategy
func (s SourceStrategy) Valid() bool {
	switch s {
	case SourceCaptions, SourceLocalSpeech, SourceRemoteSpeech, SourceClientFallback, SourceCache:
		return true
	}
	return false
}

// StrategyHint lets a caller override the configured speech order
type StrategyHint string

const (
	StrategyAuto        StrategyHint = "auto"
	StrategyForceRemote StrategyHint = "force-remote"
	StrategyForceLocal  StrategyHint = "force-local"
)

// ParseStrategyHint maps user input onto a hint; empty means auto.
func ParseStrategyHint(s string) (StrategyHint, error) {
	switch StrategyHint(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyForceRemote, "remote":
		return StrategyForceRemote, nil
	case StrategyForceLocal, "local":
		return StrategyForceLocal, nil
	}
	return "", errors.New("strategy must be one of auto, force-remote, force-local")
}

// DefaultMaxDurationSeconds caps audio acquisitions when the caller does not
const DefaultMaxDurationSeconds = 3600

// TranscriptionRequest is one in-flight acquisition. It is created per call
// and never shared between requests.
type TranscriptionRequest struct {
	Video              VideoRef
	PreferredLanguage  string
	Languages          []string
	MaxDurationSeconds int
	Strategy           StrategyHint
	ClientTranscript   string
	CallerID           string
	RequestID          string
}

// LanguageOrder returns the preferred language followed by the fallbacks,
// without duplicates.
func (r *TranscriptionRequest) LanguageOrder(fallbacks []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(lang string) {
		lang = strings.TrimSpace(lang)
		if lang == "" || seen[strings.ToLower(lang)] {
			return
		}
		seen[strings.ToLower(lang)] = true
		out = append(out, lang)
	}
	add(r.PreferredLanguage)
	for _, l := range r.Languages {
		add(l)
	}
	for _, l := range fallbacks {
		add(l)
	}
	return out
}

// EffectiveMaxDuration returns the duration ceiling in seconds
func (r *TranscriptionRequest) EffectiveMaxDuration() int {
	if r.MaxDurationSeconds <= 0 {
		return DefaultMaxDurationSeconds
	}
	return r.MaxDurationSeconds
}

// ErrEmptyTranscript is returned when a result would carry no text
var ErrEmptyTranscript = errors.New("transcript text is empty")

// TranscriptionResult is the canonical output of an acquisition
type TranscriptionResult struct {
	VideoID          string         `json:"videoId"`
	Text             string         `json:"transcript"`
	Source           SourceStrategy `json:"source"`
	LengthChars      int            `json:"lengthChars"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	ModelOrMethod    string         `json:"modelOrMethod"`
	CostEstimate     int64          `json:"costEstimate"`
	Language         string         `json:"language,omitempty"`
	Cached           bool           `json:"cached"`
}

// NewTranscriptionResult builds a result, refusing blank text so a result
// is never partially populated.
func NewTranscriptionResult(videoID, text string, source SourceStrategy, method string, elapsed time.Duration, costMinutes int64) (*TranscriptionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	return &TranscriptionResult{
		VideoID:          videoID,
		Text:             text,
		Source:           source,
		LengthChars:      utf8.RuneCountInString(text),
		ProcessingTimeMs: elapsed.Milliseconds(),
		ModelOrMethod:    method,
		CostEstimate:     costMinutes,
		Cached:           source == SourceCache,
	}, nil
}

// CostMinutes converts a duration in seconds into billable minutes,
// rounding up. Unknown durations cost one minute.
func CostMinutes(durationSeconds int) int64 {
	if durationSeconds <= 0 {
		return 1
	}
	return int64((durationSeconds + 59) / 60)
}

// CacheEntry is a persisted transcript keyed by video id
type CacheEntry struct {
	VideoID   string         `json:"videoId" gorm:"primaryKey;size:11"`
	Text      string         `json:"transcript" gorm:"type:text;not null"`
	Source    SourceStrategy `json:"source" gorm:"size:32"`
	Language  string         `json:"language,omitempty" gorm:"size:16"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"index"`
}

// TableName specifies the table name for GORM
func (CacheEntry) TableName() string {
	return "transcript_cache"
}

// IsFresh reports whether the entry is younger than window
func (e *CacheEntry) IsFresh(window time.Duration, now time.Time) bool {
	return now.Sub(e.UpdatedAt) < window
}

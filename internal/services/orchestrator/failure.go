package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// Stage is one strategy in the cascade
type Stage string

const (
	StageCaptions       Stage = "captions"
	StageRemoteSpeech   Stage = "remote-speech"
	StageLocalSpeech    Stage = "local-speech"
	StageClientFallback Stage = "client-fallback"
)

func (s Stage) isSpeech() bool {
	return s == StageRemoteSpeech || s == StageLocalSpeech
}

// Outcome of a single stage
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Attempt records how one stage ended
type Attempt struct {
	Strategy  Stage               `json:"strategy"`
	Outcome   Outcome             `json:"outcome"`
	Code      apperrors.ErrorCode `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
	ElapsedMs int64               `json:"elapsedMs"`
}

// Failure is the structured error returned when no stage produced a
// transcript. Its code is UNAVAILABLE when a stage proved the video can
// never be transcribed, STRATEGIES_EXHAUSTED otherwise.
type Failure struct {
	Code        apperrors.ErrorCode
	Message     string
	Attempts    []Attempt
	Suggestions []string
	Retryable   bool
	Cause       error
}

func (f *Failure) Error() string {
	tried := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		tried = append(tried, fmt.Sprintf("%s=%s", a.Strategy, a.Outcome))
	}
	return fmt.Sprintf("%s: %s [%s]", f.Code, f.Message, strings.Join(tried, ", "))
}

// Unwrap exposes an AppError carrying the failure code so apperrors helpers
// see through it
func (f *Failure) Unwrap() error {
	return apperrors.New(f.Code, f.Message).WithCause(f.Cause)
}

// AsFailure returns the Failure in err's chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func retryableCode(code apperrors.ErrorCode) bool {
	switch code {
	case apperrors.ErrCodeExternalService, apperrors.ErrCodeAPITimeout,
		apperrors.ErrCodeAPIRateLimit, apperrors.ErrCodeBotDetected:
		return true
	}
	return false
}

// suggestions turns attempt codes into actionable hints for the caller
func suggestions(attempts []Attempt) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, a := range attempts {
		switch {
		case a.Code == apperrors.ErrCodeUnavailable:
			add("The video is private, removed or region-locked; no strategy can transcribe it")
		case a.Code == apperrors.ErrCodeTooLong:
			add("Raise maxDurationSeconds or choose a shorter video")
		case a.Code == apperrors.ErrCodePayloadTooLarge:
			add("The audio exceeds the remote service upload limit; use strategy force-local")
		case a.Code == apperrors.ErrCodeNoAudioFormats:
			add("The video exposes no audio-only stream; only captions or a client transcript can work")
		case a.Code == apperrors.ErrCodeBotDetected || a.Code == apperrors.ErrCodeAPIRateLimit:
			add("The video platform is throttling requests; retry in a few minutes")
		case a.Code == apperrors.ErrCodeAPITimeout:
			add("A strategy timed out; retrying later may succeed")
		case a.Strategy == StageRemoteSpeech && a.Code == apperrors.ErrCodeConfigRequired:
			add("Configure speech.remote.api_key to enable remote transcription")
		case a.Strategy == StageLocalSpeech && a.Code == apperrors.ErrCodeConfigRequired:
			add("Install ffmpeg and whisper-cli and place models in speech.local.model_dir to enable local transcription")
		case a.Strategy == StageClientFallback && a.Code == apperrors.ErrCodeNotFound:
			add("Resubmit with clientTranscript extracted in the browser")
		}
	}
	return out
}

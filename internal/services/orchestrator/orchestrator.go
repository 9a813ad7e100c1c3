// Package orchestrator runs the transcript strategy cascade: captions, then
// audio with remote or local speech, then a client-supplied transcript.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/audio"
	"github.com/matlukowski/readTube-sub000/internal/services/captions"
	"github.com/matlukowski/readTube-sub000/internal/services/speech"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/transcript"
	"github.com/sirupsen/logrus"
)

// Speech preferences
const (
	PreferAuto   = "auto"
	PreferRemote = "remote"
	PreferLocal  = "local"
)

// CaptionSource fetches platform captions
type CaptionSource interface {
	Fetch(ctx context.Context, videoID string, languages []string) (*captions.Captions, error)
}

// StageTimeouts bounds each stage; zero means only the request ceiling applies
type StageTimeouts struct {
	Captions       time.Duration
	RemoteSpeech   time.Duration
	LocalSpeech    time.Duration
	ClientFallback time.Duration
}

func (t StageTimeouts) forStage(s Stage) time.Duration {
	switch s {
	case StageCaptions:
		return t.Captions
	case StageRemoteSpeech:
		return t.RemoteSpeech
	case StageLocalSpeech:
		return t.LocalSpeech
	case StageClientFallback:
		return t.ClientFallback
	}
	return 0
}

// Options configures the cascade
type Options struct {
	Prefer            string
	RemoteMaxDuration time.Duration
	RequestTimeout    time.Duration
	StageTimeouts     StageTimeouts
	DefaultLanguages  []string
	Logger            logrus.FieldLogger
}

// Orchestrator runs one request through the cascade. Stages run strictly in
// sequence; a later stage starts only after the previous one failed.
type Orchestrator struct {
	captions CaptionSource
	audio    audio.Extractor
	remote   speech.Transcriber
	local    speech.Transcriber
	opts     Options
	logger   logrus.FieldLogger
}

// New creates an orchestrator. Nil transcribers are treated as not configured.
func New(captionSource CaptionSource, extractor audio.Extractor, remote, local speech.Transcriber, opts Options) *Orchestrator {
	if opts.Prefer == "" {
		opts.Prefer = PreferAuto
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		captions: captionSource,
		audio:    extractor,
		remote:   remote,
		local:    local,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// stageResult is what a successful stage hands back
type stageResult struct {
	text            string
	method          string
	language        string
	durationSeconds int
}

// Plan returns the stage order for req
func (o *Orchestrator) Plan(req *models.TranscriptionRequest) []Stage {
	speechOrder := []Stage{StageLocalSpeech, StageRemoteSpeech}
	if o.remoteFirst(req) {
		speechOrder = []Stage{StageRemoteSpeech, StageLocalSpeech}
	}
	stages := []Stage{StageCaptions}
	stages = append(stages, speechOrder...)
	return append(stages, StageClientFallback)
}

func (o *Orchestrator) remoteFirst(req *models.TranscriptionRequest) bool {
	switch req.Strategy {
	case models.StrategyForceRemote:
		return true
	case models.StrategyForceLocal:
		return false
	}

	switch o.opts.Prefer {
	case PreferRemote:
		return true
	case PreferLocal:
		return false
	}

	if o.remote == nil || o.remote.Available() != nil {
		return false
	}
	duration := time.Duration(req.Video.Duration()) * time.Second
	return o.opts.RemoteMaxDuration <= 0 || duration <= o.opts.RemoteMaxDuration
}

// Run executes the cascade and returns the first successful result or a
// *Failure describing every stage tried
func (o *Orchestrator) Run(ctx context.Context, req *models.TranscriptionRequest) (*models.TranscriptionResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	log := o.logger.WithFields(logrus.Fields{
		"video_id":   req.Video.ID,
		"request_id": req.RequestID,
	})

	var (
		attempts    []Attempt
		speechBlock apperrors.ErrorCode
	)

	for _, stage := range o.Plan(req) {
		stageLog := log.WithField("stage", stage)

		if stage.isSpeech() && speechBlock != "" {
			attempts = append(attempts, o.skip(stageLog, stage, speechBlock, "audio cannot be used for this video"))
			continue
		}
		if stage != StageClientFallback && ctx.Err() != nil {
			attempts = append(attempts, o.skip(stageLog, stage, apperrors.ErrCodeAPITimeout, "request deadline reached"))
			continue
		}

		stageLog.Debug("Stage started")
		stageStart := time.Now()
		res, err := o.runStage(ctx, stage, req)
		elapsed := time.Since(stageStart)

		if err == nil {
			attempts = append(attempts, Attempt{Strategy: stage, Outcome: OutcomeSuccess, ElapsedMs: elapsed.Milliseconds()})
			stageLog.WithFields(logrus.Fields{
				"outcome":    OutcomeSuccess,
				"elapsed_ms": elapsed.Milliseconds(),
				"method":     res.method,
			}).Info("Stage succeeded")
			return o.result(req, stage, res, time.Since(start))
		}

		attempt := attemptFromError(stage, err, elapsed)
		attempts = append(attempts, attempt)
		stageLog.WithError(err).WithFields(logrus.Fields{
			"outcome":    attempt.Outcome,
			"code":       attempt.Code,
			"elapsed_ms": attempt.ElapsedMs,
		}).Warn("Stage did not produce a transcript")

		switch {
		case apperrors.IsFatal(err):
			return nil, o.fail(log, apperrors.ErrCodeUnavailable, "video is unavailable", attempts, err, start)
		case blocksSpeech(err):
			speechBlock = attempt.Code
		}
	}

	return nil, o.fail(log, apperrors.ErrCodeStrategiesExhausted, "all transcript strategies failed", attempts, nil, start)
}

func (o *Orchestrator) skip(log logrus.FieldLogger, stage Stage, code apperrors.ErrorCode, msg string) Attempt {
	log.WithFields(logrus.Fields{
		"outcome":    OutcomeSkipped,
		"code":       code,
		"elapsed_ms": 0,
	}).Info("Stage skipped")
	return Attempt{Strategy: stage, Outcome: OutcomeSkipped, Code: code, Message: msg}
}

func (o *Orchestrator) fail(log logrus.FieldLogger, code apperrors.ErrorCode, msg string, attempts []Attempt, cause error, start time.Time) *Failure {
	f := &Failure{
		Code:        code,
		Message:     msg,
		Attempts:    attempts,
		Suggestions: suggestions(attempts),
		Cause:       cause,
	}
	if code != apperrors.ErrCodeUnavailable {
		for _, a := range attempts {
			if a.Outcome == OutcomeFailed && retryableCode(a.Code) {
				f.Retryable = true
				break
			}
		}
	}
	log.WithFields(logrus.Fields{
		"outcome":    "failed",
		"code":       code,
		"stages":     len(attempts),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Warn("Transcript acquisition failed")
	return f
}

func (o *Orchestrator) result(req *models.TranscriptionRequest, stage Stage, res *stageResult, elapsed time.Duration) (*models.TranscriptionResult, error) {
	duration := req.Video.Duration()
	if duration <= 0 {
		duration = res.durationSeconds
	}
	result, err := models.NewTranscriptionResult(req.Video.ID, res.text, models.SourceStrategy(stage), res.method, elapsed, models.CostMinutes(duration))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeEmptyResult, "stage returned blank text")
	}
	result.Language = res.language
	return result, nil
}

// attemptFromError classifies a stage error. Misconfigured stages count as
// skipped; everything else is a failure that falls through.
func attemptFromError(stage Stage, err error, elapsed time.Duration) Attempt {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	outcome := OutcomeFailed
	if code == apperrors.ErrCodeConfigRequired {
		outcome = OutcomeSkipped
	}
	msg := err.Error()
	if appErr, ok := apperrors.As(err); ok {
		msg = appErr.Message
	}
	return Attempt{
		Strategy:  stage,
		Outcome:   outcome,
		Code:      code,
		Message:   msg,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, req *models.TranscriptionRequest) (*stageResult, error) {
	parent := ctx
	if timeout := o.opts.StageTimeouts.forStage(stage); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		res *stageResult
		err error
	)
	switch stage {
	case StageCaptions:
		res, err = o.runCaptions(ctx, req)
	case StageRemoteSpeech:
		res, err = o.runSpeech(ctx, o.remote, "remote speech", req)
	case StageLocalSpeech:
		res, err = o.runSpeech(ctx, o.local, "local speech", req)
	case StageClientFallback:
		res, err = o.runClientFallback(req)
	default:
		err = apperrors.Newf(apperrors.ErrCodeInternal, "unknown stage %q", stage)
	}

	// a stage deadline is that stage's failure and falls through
	if err != nil && ctx.Err() != nil && !apperrors.IsFatal(err) {
		budget := o.opts.StageTimeouts.forStage(stage)
		if parent.Err() != nil || budget <= 0 {
			budget = o.opts.RequestTimeout
		}
		return nil, apperrors.TimeoutError(string(stage), budget.String()).WithCause(err)
	}
	return res, err
}

func (o *Orchestrator) runCaptions(ctx context.Context, req *models.TranscriptionRequest) (*stageResult, error) {
	if o.captions == nil {
		return nil, apperrors.Misconfigured("captions", "caption source")
	}
	caps, err := o.captions.Fetch(ctx, req.Video.ID, req.LanguageOrder(o.opts.DefaultLanguages))
	if err != nil {
		return nil, err
	}
	return &stageResult{
		text:            caps.Text,
		method:          caps.Method(),
		language:        caps.Language,
		durationSeconds: int(caps.Duration.Seconds()),
	}, nil
}

func (o *Orchestrator) runSpeech(ctx context.Context, tr speech.Transcriber, component string, req *models.TranscriptionRequest) (*stageResult, error) {
	if tr == nil {
		return nil, apperrors.Misconfigured(component, "transcriber")
	}
	// checked before any network traffic
	if err := tr.Available(); err != nil {
		return nil, err
	}
	if o.audio == nil {
		return nil, apperrors.Misconfigured(component, "audio source")
	}

	stream, err := o.audio.GetAudioStream(ctx, req.Video.ID, req.EffectiveMaxDuration())
	if err != nil {
		return nil, &extractorError{err: err}
	}
	defer stream.Close()

	t, err := tr.Transcribe(ctx, stream, speech.Options{Language: req.PreferredLanguage})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Text) == "" {
		return nil, apperrors.New(apperrors.ErrCodeEmptyResult, "speech engine returned no text")
	}

	method := t.Engine
	if t.Model != "" {
		method += ":" + t.Model
	}
	return &stageResult{
		text:            t.Text,
		method:          method,
		language:        t.Language,
		durationSeconds: stream.DurationSeconds,
	}, nil
}

// extractorError marks a failure to obtain audio, as opposed to a failure of
// the engine that was given it
type extractorError struct {
	err error
}

func (e *extractorError) Error() string { return e.err.Error() }

func (e *extractorError) Unwrap() error { return e.err }

// blocksSpeech reports whether err means no speech engine can get usable
// audio for this video. Engine-specific limits never block the other engine.
func blocksSpeech(err error) bool {
	var ee *extractorError
	if !errors.As(err, &ee) {
		return false
	}
	code := apperrors.GetCode(ee.err)
	return code == apperrors.ErrCodeTooLong || code == apperrors.ErrCodeNoAudioFormats
}

func (o *Orchestrator) runClientFallback(req *models.TranscriptionRequest) (*stageResult, error) {
	text := transcript.Clean(req.ClientTranscript)
	if text == "" {
		return nil, apperrors.NotFound("client transcript", req.Video.ID).
			WithDetail("suggestion", "resubmit with clientTranscript")
	}
	return &stageResult{
		text:     text,
		method:   "client-transcript",
		language: req.PreferredLanguage,
	}, nil
}

package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/services/audio"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/retry"
	"github.com/sirupsen/logrus"
)

// Remote job states
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

// RemoteOptions configures the remote transcription client
type RemoteOptions struct {
	APIKey         string
	BaseURL        string
	SpeechModel    string
	HTTPClient     *http.Client
	MinPoll        time.Duration
	MaxPoll        time.Duration
	PollPerMB      time.Duration
	GrowthAfter    int
	GrowthFactor   float64
	MaxWait        time.Duration
	MaxUploadBytes int64
	Upload         retry.Policy
	Logger         logrus.FieldLogger
}

// RemoteTranscriber uploads audio to a hosted transcription API, submits a
// job and polls it until it settles
type RemoteTranscriber struct {
	opts   RemoteOptions
	client *http.Client
	logger logrus.FieldLogger
}

// NewRemoteTranscriber creates a remote transcriber
func NewRemoteTranscriber(opts RemoteOptions) *RemoteTranscriber {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.assemblyai.com"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.SpeechModel == "" {
		opts.SpeechModel = "best"
	}
	if opts.MinPoll <= 0 {
		opts.MinPoll = 3 * time.Second
	}
	if opts.MaxPoll < opts.MinPoll {
		opts.MaxPoll = max(10*time.Second, opts.MinPoll)
	}
	if opts.GrowthAfter <= 0 {
		opts.GrowthAfter = 3
	}
	if opts.GrowthFactor < 1 {
		opts.GrowthFactor = 1.2
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Minute
	}
	if opts.Upload.MaxAttempts <= 0 {
		opts.Upload = retry.DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &RemoteTranscriber{opts: opts, client: client, logger: opts.Logger}
}

// Name implements Transcriber
func (t *RemoteTranscriber) Name() string {
	return EngineRemote
}

// Available reports a missing API key
func (t *RemoteTranscriber) Available() error {
	if strings.TrimSpace(t.opts.APIKey) == "" {
		return apperrors.Misconfigured("remote speech", "speech.remote.api_key")
	}
	return nil
}

// PollInterval returns the wait before poll attempt (1-based) for an upload
// of sizeBytes. Larger files start slower; after GrowthAfter attempts the
// interval grows geometrically up to MaxPoll.
func (t *RemoteTranscriber) PollInterval(sizeBytes int64, attempt int) time.Duration {
	mb := float64(sizeBytes) / (1 << 20)
	interval := t.opts.MinPoll + time.Duration(mb*float64(t.opts.PollPerMB))
	interval = min(max(interval, t.opts.MinPoll), t.opts.MaxPoll)
	if attempt > t.opts.GrowthAfter {
		grown := float64(interval) * math.Pow(t.opts.GrowthFactor, float64(attempt-t.opts.GrowthAfter))
		interval = time.Duration(min(grown, float64(t.opts.MaxPoll)))
	}
	return interval
}

// Transcribe implements Transcriber
func (t *RemoteTranscriber) Transcribe(ctx context.Context, stream *audio.AudioStream, opts Options) (*Transcript, error) {
	if err := t.Available(); err != nil {
		return nil, err
	}
	if stream == nil || stream.Body == nil {
		return nil, apperrors.New(apperrors.ErrCodeNoAudioFormats, "no audio stream to transcribe")
	}
	log := t.logger.WithField("video_id", stream.VideoID)

	payload, err := t.buffer(ctx, stream)
	if err != nil {
		return nil, err
	}

	uploadURL, err := retry.Do(ctx, t.uploadPolicy(log), func(ctx context.Context, attempt int) (string, error) {
		return t.upload(ctx, payload)
	})
	if err != nil {
		return nil, err
	}

	jobID, err := t.submit(ctx, uploadURL, opts.Language)
	if err != nil {
		return nil, err
	}
	log = log.WithField("remote_job", jobID)
	log.WithField("bytes", len(payload)).Info("Remote transcription submitted")

	job, err := t.poll(ctx, jobID, int64(len(payload)), log)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(job.Text)
	if text == "" {
		text = job.utteranceText()
	}
	if text == "" {
		return nil, apperrors.New(apperrors.ErrCodeEmptyResult, "remote engine returned no text").
			WithDetail("remote_job", jobID)
	}

	language := job.LanguageCode
	if language == "" {
		language = opts.Language
	}
	return &Transcript{
		Text:         text,
		Language:     language,
		Model:        t.opts.SpeechModel,
		Engine:       EngineRemote,
		AudioSeconds: job.AudioDuration,
	}, nil
}

// buffer collects the stream so uploads can be retried
func (t *RemoteTranscriber) buffer(ctx context.Context, stream *audio.AudioStream) ([]byte, error) {
	acc := NewChunkAccumulator(t.opts.MaxUploadBytes, 0)
	go func() {
		_, _ = acc.ReadFrom(stream.Body)
	}()

	payload, err := acc.Wait(ctx)
	if err != nil {
		// unblock the producer
		_ = stream.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if apperrors.Is(err, apperrors.ErrCodeTooLong) {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodePayloadTooLarge,
				"audio exceeds the %d byte upload limit", t.opts.MaxUploadBytes)
		}
		return nil, err
	}
	if len(payload) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeNoAudioFormats, "audio stream was empty")
	}
	return payload, nil
}

func (t *RemoteTranscriber) uploadPolicy(log logrus.FieldLogger) retry.Policy {
	p := t.opts.Upload
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait_ms": wait.Milliseconds(),
		}).Warn("Audio upload failed, retrying")
	}
	return p
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

func (t *RemoteTranscriber) upload(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.BaseURL+"/v2/upload", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build upload request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := t.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", apperrors.New(apperrors.ErrCodeExternalService, "upload response carried no url")
	}
	return out.UploadURL, nil
}

type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeechModel       string `json:"speech_model,omitempty"`
	LanguageCode      string `json:"language_code,omitempty"`
	LanguageDetection bool   `json:"language_detection,omitempty"`
}

type remoteJob struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Text          string  `json:"text"`
	Error         string  `json:"error"`
	LanguageCode  string  `json:"language_code"`
	AudioDuration float64 `json:"audio_duration"`
	Utterances    []struct {
		Text string `json:"text"`
	} `json:"utterances"`
}

func (j *remoteJob) utteranceText() string {
	parts := make([]string, 0, len(j.Utterances))
	for _, u := range j.Utterances {
		if s := strings.TrimSpace(u.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (t *RemoteTranscriber) submit(ctx context.Context, audioURL, language string) (string, error) {
	body := submitRequest{
		AudioURL:          audioURL,
		SpeechModel:       t.opts.SpeechModel,
		LanguageCode:      language,
		LanguageDetection: language == "",
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to encode transcription request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.BaseURL+"/v2/transcript", bytes.NewReader(raw))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build transcription request")
	}
	req.Header.Set("Content-Type", "application/json")

	var job remoteJob
	if err := t.do(req, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", apperrors.New(apperrors.ErrCodeExternalService, "transcription response carried no id")
	}
	return job.ID, nil
}

func (t *RemoteTranscriber) poll(ctx context.Context, jobID string, size int64, log logrus.FieldLogger) (*remoteJob, error) {
	started := time.Now()
	for attempt := 1; ; attempt++ {
		job, err := t.status(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case statusCompleted:
			log.WithFields(logrus.Fields{
				"polls":      attempt,
				"elapsed_ms": time.Since(started).Milliseconds(),
			}).Info("Remote transcription completed")
			return job, nil
		case statusError:
			msg := job.Error
			if msg == "" {
				msg = "unknown error"
			}
			return nil, apperrors.Newf(apperrors.ErrCodeExternalService, "remote transcription failed: %s", msg).
				WithDetail("remote_job", jobID)
		case statusQueued, statusProcessing:
		default:
			return nil, apperrors.Newf(apperrors.ErrCodeExternalService, "unexpected remote status %q", job.Status)
		}

		wait := t.PollInterval(size, attempt)
		if time.Since(started)+wait > t.opts.MaxWait {
			return nil, apperrors.TimeoutError("remote transcription", t.opts.MaxWait.String()).
				WithDetail("remote_job", jobID).
				WithDetail("polls", attempt)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (t *RemoteTranscriber) status(ctx context.Context, jobID string) (*remoteJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.BaseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build status request")
	}
	var job remoteJob
	if err := t.do(req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// do sends an authorized request and decodes a JSON response
func (t *RemoteTranscriber) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", t.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.ExternalServiceError("remote speech", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Misconfigured("remote speech", "a valid speech.remote.api_key").
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimitError("remote speech", resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.New(apperrors.ErrCodeExternalService,
			fmt.Sprintf("remote speech returned HTTP %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "invalid response from remote speech")
	}
	return nil
}

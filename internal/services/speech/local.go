package speech

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/services/audio"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/ffmpeg"
	"github.com/sirupsen/logrus"
)

// Decoder turns a compressed audio stream into mono s16le PCM
type Decoder interface {
	DecodePCM(ctx context.Context, input io.Reader, opts ffmpeg.DecodeOptions) (io.ReadCloser, error)
}

type binaryChecker interface {
	ValidateBinaries() error
}

type availabilityChecker interface {
	Available() error
}

// LocalOptions configures the local transcriber
type LocalOptions struct {
	Enabled  bool
	Window   time.Duration
	Overlap  time.Duration
	Selector *ModelSelector
	Logger   logrus.FieldLogger
}

// LocalTranscriber decodes audio with ffmpeg and feeds fixed windows to a
// local engine, merging the per-window text at the seams
type LocalTranscriber struct {
	decoder  Decoder
	engine   Engine
	registry *ModelRegistry
	opts     LocalOptions
	logger   logrus.FieldLogger
}

// NewLocalTranscriber creates a local transcriber
func NewLocalTranscriber(decoder Decoder, engine Engine, registry *ModelRegistry, opts LocalOptions) *LocalTranscriber {
	if opts.Window <= 0 {
		opts.Window = 20 * time.Second
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Window {
		opts.Overlap = 2 * time.Second
	}
	if opts.Selector == nil {
		opts.Selector = DefaultModelSelector()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &LocalTranscriber{
		decoder:  decoder,
		engine:   engine,
		registry: registry,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Name implements Transcriber
func (t *LocalTranscriber) Name() string {
	return EngineLocal
}

// Available reports missing binaries or a disabled engine
func (t *LocalTranscriber) Available() error {
	if !t.opts.Enabled {
		return apperrors.Misconfigured("local speech", "speech.local.enabled")
	}
	if c, ok := t.decoder.(binaryChecker); ok {
		if err := c.ValidateBinaries(); err != nil {
			return apperrors.Misconfigured("local speech", "ffmpeg binary").WithCause(err)
		}
	}
	if c, ok := t.engine.(availabilityChecker); ok {
		if err := c.Available(); err != nil {
			return err
		}
	}
	return nil
}

// Transcribe implements Transcriber
func (t *LocalTranscriber) Transcribe(ctx context.Context, stream *audio.AudioStream, opts Options) (*Transcript, error) {
	if err := t.Available(); err != nil {
		return nil, err
	}
	if stream == nil || stream.Body == nil {
		return nil, apperrors.New(apperrors.ErrCodeNoAudioFormats, "no audio stream to transcribe")
	}

	size := opts.ModelSize
	if size == "" {
		size = t.opts.Selector.Select(time.Duration(stream.DurationSeconds) * time.Second)
	}
	model, err := t.registry.Get(ctx, size)
	if err != nil {
		return nil, err
	}

	log := t.logger.WithFields(logrus.Fields{
		"video_id": stream.VideoID,
		"model":    size,
	})

	pcm, err := t.decoder.DecodePCM(ctx, stream.Body, ffmpeg.DecodeOptions{Label: stream.VideoID})
	if err != nil {
		if errors.Is(err, ffmpeg.ErrFFmpegNotFound) {
			return nil, apperrors.Misconfigured("local speech", "ffmpeg binary").WithCause(err)
		}
		return nil, apperrors.ExternalServiceError("ffmpeg", err)
	}
	defer pcm.Close()

	windower, err := NewWindower(pcm, t.opts.Window, t.opts.Overlap, ffmpeg.SampleRate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid window settings")
	}

	var merger seamMerger
	start := time.Now()
	windows := 0
	for {
		win, err := windower.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, decodeError(ctx, err)
		}

		text, err := t.engine.Transcribe(ctx, model, win.PCM, ffmpeg.SampleRate, opts.Language)
		if err != nil {
			return nil, err
		}
		merger.Add(text)
		windows++

		log.WithFields(logrus.Fields{
			"window":   win.Index,
			"start_ms": win.Start.Milliseconds(),
		}).Debug("Transcribed window")
	}

	audioSeconds := ffmpeg.PCMDuration(windower.Consumed(), ffmpeg.SampleRate, 1)
	text := merger.String()
	log.WithFields(logrus.Fields{
		"windows":       windows,
		"audio_seconds": audioSeconds,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	}).Info("Local transcription finished")

	if text == "" {
		return nil, apperrors.New(apperrors.ErrCodeEmptyResult, "local engine produced no text")
	}
	return &Transcript{
		Text:         text,
		Language:     opts.Language,
		Model:        size,
		Engine:       EngineLocal,
		AudioSeconds: audioSeconds,
	}, nil
}

func decodeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ffmpeg.ErrNoAudio) {
		return apperrors.Wrap(err, apperrors.ErrCodeNoAudioFormats, "stream contained no decodable audio")
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.ExternalServiceError("ffmpeg", err)
}

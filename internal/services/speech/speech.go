// Package speech turns audio streams into text, either with a local
// whisper.cpp engine or through a remote transcription API.
package speech

import (
	"context"

	"github.com/matlukowski/readTube-sub000/internal/services/audio"
)

// Engine names
const (
	EngineLocal  = "local"
	EngineRemote = "remote"
)

// Options tune a single transcription
type Options struct {
	Language  string // empty lets the engine detect it
	ModelSize string // overrides duration-based model selection
}

// Transcript is the text produced from one audio stream
type Transcript struct {
	Text         string
	Language     string
	Model        string
	Engine       string
	AudioSeconds float64
}

// Transcriber converts an open audio stream into text. Implementations own
// reading the stream but not closing it.
type Transcriber interface {
	Name() string
	// Available reports a CONFIG_REQUIRED AppError when the transcriber
	// cannot run, without touching the network
	Available() error
	Transcribe(ctx context.Context, stream *audio.AudioStream, opts Options) (*Transcript, error)
}

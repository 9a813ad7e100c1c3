package ffmpeg

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrFFmpegNotFound    = errors.New("ffmpeg binary not found")
	ErrProcessingTimeout = errors.New("audio processing timeout")
	ErrNoAudio           = errors.New("decoder produced no audio")
)

// ProcessingError represents an error during audio processing
type ProcessingError struct {
	Operation string // The operation that failed (e.g., "pcm_decode")
	Source    string // What was being processed
	Err       error  // The underlying error
	Stderr    string // stderr output from ffmpeg
}

func (e *ProcessingError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffmpeg %s failed for %s: %v (stderr: %s)", e.Operation, e.Source, e.Err, e.Stderr)
	}
	return fmt.Sprintf("ffmpeg %s failed for %s: %v", e.Operation, e.Source, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(operation, source string, err error, stderr string) *ProcessingError {
	return &ProcessingError{
		Operation: operation,
		Source:    source,
		Err:       err,
		Stderr:    stderr,
	}
}

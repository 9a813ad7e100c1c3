package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matlukowski/readTube-sub000/pkg/download"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/matlukowski/readTube-sub000/pkg/ffmpeg"
)

// Engine transcribes one window of mono s16le PCM
type Engine interface {
	Transcribe(ctx context.Context, model *Model, pcm []byte, sampleRate int, language string) (string, error)
}

// commandResult is the outcome of one process execution
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// WhisperCLI runs the whisper.cpp command line tool on each window
type WhisperCLI struct {
	binary  string
	threads int
	tempDir string
	runner  commandRunner
}

// NewWhisperCLI creates an engine using the given binary
func NewWhisperCLI(binary string, threads int, tempDir string) *WhisperCLI {
	if binary == "" {
		binary = "whisper-cli"
	}
	if threads <= 0 {
		threads = 4
	}
	return &WhisperCLI{
		binary:  binary,
		threads: threads,
		tempDir: tempDir,
		runner:  &execRunner{},
	}
}

// Available checks the binary is on PATH
func (w *WhisperCLI) Available() error {
	if _, err := exec.LookPath(w.binary); err != nil {
		return apperrors.Misconfigured("local speech", "whisper binary "+w.binary)
	}
	return nil
}

func (w *WhisperCLI) args(model *Model, wavPath, language string) []string {
	args := []string{
		"-m", model.Path,
		"-f", wavPath,
		"-t", strconv.Itoa(w.threads),
		"-nt",
		"-np",
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	return args
}

// Transcribe writes the window to a temporary WAV file and runs whisper on it
func (w *WhisperCLI) Transcribe(ctx context.Context, model *Model, pcm []byte, sampleRate int, language string) (string, error) {
	f, err := download.CreateTempFile(w.tempDir, "window", ".wav")
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create window file")
	}
	path := f.Name()
	defer download.CleanupTempFile(path)

	if err := ffmpeg.WriteWAV(f, pcm, sampleRate, 1); err != nil {
		_ = f.Close()
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to write window file")
	}
	if err := f.Close(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to write window file")
	}

	res, err := w.runner.Run(ctx, w.binary, w.args(model, path, language)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternalService, "whisper failed").
			WithDetail("exit_code", res.ExitCode).
			WithDetail("stderr", truncate(res.Stderr, 512))
	}
	return strings.TrimSpace(joinLines(res.Stdout)), nil
}

// joinLines flattens whisper's per-segment output lines
func joinLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const (
	// SampleRate is the PCM rate speech engines expect
	SampleRate = 16000
	// BytesPerSample for s16le
	BytesPerSample = 2

	maxStderr = 8 << 10
)

// FFmpeg wraps the ffmpeg binary
type FFmpeg struct {
	ffmpegPath string
	timeout    time.Duration
}

// New creates a new FFmpeg instance. A zero timeout means the caller's
// context alone bounds decoding.
func New(ffmpegPath string, timeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
	}
}

// ValidateBinaries checks if ffmpeg is available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	return nil
}

// DecodeOptions controls PCM output
type DecodeOptions struct {
	SampleRate int // Default: 16000
	Channels   int // Default: 1
	// InputFormat forces the demuxer (e.g. "mp4", "webm"); empty lets ffmpeg probe
	InputFormat string
	// Label names the source in errors
	Label string
}

func (o DecodeOptions) args() []string {
	rate := o.SampleRate
	if rate <= 0 {
		rate = SampleRate
	}
	channels := o.Channels
	if channels <= 0 {
		channels = 1
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if o.InputFormat != "" {
		args = append(args, "-f", o.InputFormat)
	}
	return append(args,
		"-i", "pipe:0",
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"pipe:1",
	)
}

// DecodePCM pipes compressed audio from input through ffmpeg and returns the
// decoder's stdout: signed 16-bit little-endian PCM. The audio never touches
// disk. Read reports decoder failures once stdout is drained; Close stops
// the process early.
func (f *FFmpeg) DecodePCM(ctx context.Context, input io.Reader, opts DecodeOptions) (io.ReadCloser, error) {
	var cancel context.CancelFunc = func() {}
	if f.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, opts.args()...)
	cmd.Stdin = input
	stderr := &limitedBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, NewProcessingError("pcm_decode", opts.Label, err, "")
	}
	if err := cmd.Start(); err != nil {
		cancel()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
		}
		return nil, NewProcessingError("pcm_decode", opts.Label, err, "")
	}

	return &pcmReader{
		ctx:    ctx,
		cancel: cancel,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		label:  opts.Label,
	}, nil
}

type pcmReader struct {
	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *limitedBuffer
	label  string

	total    int64
	waitOnce sync.Once
	waitErr  error
}

func (r *pcmReader) Read(p []byte) (int, error) {
	n, err := r.stdout.Read(p)
	r.total += int64(n)
	if err == io.EOF {
		if werr := r.wait(); werr != nil {
			return n, werr
		}
		if r.total == 0 {
			return n, NewProcessingError("pcm_decode", r.label, ErrNoAudio, r.stderr.String())
		}
	}
	return n, err
}

func (r *pcmReader) Close() error {
	_ = r.stdout.Close()
	r.cancel()
	err := r.wait()
	// killing a decoder we stopped reading from is expected
	if r.total > 0 && r.ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *pcmReader) wait() error {
	r.waitOnce.Do(func() {
		err := r.cmd.Wait()
		switch {
		case err == nil:
		case errors.Is(r.ctx.Err(), context.DeadlineExceeded):
			r.waitErr = NewProcessingError("pcm_decode", r.label, ErrProcessingTimeout, r.stderr.String())
		default:
			r.waitErr = NewProcessingError("pcm_decode", r.label, err, r.stderr.String())
		}
	})
	return r.waitErr
}

// limitedBuffer keeps the first limit bytes of ffmpeg's stderr
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

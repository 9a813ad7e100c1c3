package speech

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matlukowski/readTube-sub000/pkg/ffmpeg"
)

// Window is one slice of mono s16le PCM
type Window struct {
	Index int
	Start time.Duration
	PCM   []byte
	// Final is set when the stream ended inside this window
	Final bool
}

// Duration returns the window length
func (w *Window) Duration(sampleRate int) time.Duration {
	return time.Duration(ffmpeg.PCMDuration(int64(len(w.PCM)), sampleRate, 1) * float64(time.Second))
}

// Windower cuts a PCM stream into fixed windows where each window repeats
// the last overlap of the previous one. Only one window is held at a time.
type Windower struct {
	r            io.Reader
	sampleRate   int
	windowBytes  int
	overlapBytes int

	prev     []byte
	consumed int64
	index    int
	done     bool
}

// NewWindower validates 0 <= overlap < window
func NewWindower(r io.Reader, window, overlap time.Duration, sampleRate int) (*Windower, error) {
	if sampleRate <= 0 {
		sampleRate = ffmpeg.SampleRate
	}
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("window (%s) must be positive and longer than overlap (%s)", window, overlap)
	}
	return &Windower{
		r:            r,
		sampleRate:   sampleRate,
		windowBytes:  durationBytes(window, sampleRate),
		overlapBytes: durationBytes(overlap, sampleRate),
	}, nil
}

func durationBytes(d time.Duration, sampleRate int) int {
	samples := int(d.Seconds() * float64(sampleRate))
	return samples * ffmpeg.BytesPerSample
}

// Next returns the next window or io.EOF
func (w *Windower) Next() (*Window, error) {
	if w.done {
		return nil, io.EOF
	}

	var carry []byte
	if w.index > 0 && len(w.prev) >= w.overlapBytes {
		carry = w.prev[len(w.prev)-w.overlapBytes:]
	}

	fresh := make([]byte, w.windowBytes-len(carry))
	n, err := io.ReadFull(w.r, fresh)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		w.done = true
	case err != nil:
		return nil, err
	}
	n -= n % ffmpeg.BytesPerSample
	if n == 0 {
		w.done = true
		return nil, io.EOF
	}

	pcm := make([]byte, 0, len(carry)+n)
	pcm = append(pcm, carry...)
	pcm = append(pcm, fresh[:n]...)

	start := w.consumed - int64(len(carry))
	w.consumed += int64(n)

	win := &Window{
		Index: w.index,
		Start: w.offset(start),
		PCM:   pcm,
		Final: w.done,
	}
	w.prev = pcm
	w.index++
	return win, nil
}

func (w *Windower) offset(bytes int64) time.Duration {
	samples := bytes / ffmpeg.BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(w.sampleRate)
}

// Consumed returns the number of distinct PCM bytes read so far
func (w *Windower) Consumed() int64 {
	return w.consumed
}

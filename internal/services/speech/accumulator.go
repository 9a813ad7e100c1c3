package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

const accumulatorChunk = 256 << 10

// ChunkAccumulator collects a chunked stream into one bounded buffer for
// consumers that need the whole payload at once. A producer calls AddChunk
// and Finish; consumers call Wait or Result.
type ChunkAccumulator struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	max      int64
	expected int64
	complete bool
	err      error
	done     chan struct{}
}

// NewChunkAccumulator bounds the buffer at maxBytes (0 = unbounded). When
// expected is positive the accumulator completes on its own once that many
// bytes arrived.
func NewChunkAccumulator(maxBytes, expected int64) *ChunkAccumulator {
	return &ChunkAccumulator{
		max:      maxBytes,
		expected: expected,
		done:     make(chan struct{}),
	}
}

// AddChunk appends p. Exceeding the bound fails the accumulator with TOO_LONG.
func (a *ChunkAccumulator) AddChunk(p []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.complete {
		if a.err != nil {
			return a.err
		}
		return errors.New("chunk added after completion")
	}
	if a.max > 0 && int64(a.buf.Len()+len(p)) > a.max {
		a.finishLocked(apperrors.Newf(apperrors.ErrCodeTooLong, "audio payload exceeds %d bytes", a.max))
		return a.err
	}
	a.buf.Write(p)
	if a.expected > 0 && int64(a.buf.Len()) >= a.expected {
		a.finishLocked(nil)
	}
	return nil
}

// Finish marks the stream as ended; err records a producer failure
func (a *ChunkAccumulator) Finish(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.complete {
		a.finishLocked(err)
	}
}

func (a *ChunkAccumulator) finishLocked(err error) {
	a.complete = true
	a.err = err
	close(a.done)
}

// IsComplete reports whether the payload is final
func (a *ChunkAccumulator) IsComplete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.complete
}

// Len returns the bytes collected so far
func (a *ChunkAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Len()
}

// Result returns the payload once complete
func (a *ChunkAccumulator) Result() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.complete {
		return nil, errors.New("accumulator is not complete")
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.buf.Bytes(), nil
}

// Wait blocks until the payload is complete or ctx is done
func (a *ChunkAccumulator) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-a.done:
		return a.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadFrom feeds r into the accumulator in fixed-size chunks and finishes it
func (a *ChunkAccumulator) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	chunk := make([]byte, accumulatorChunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if addErr := a.AddChunk(chunk[:n]); addErr != nil {
				return total, addErr
			}
		}
		if err == io.EOF {
			a.Finish(nil)
			return total, nil
		}
		if err != nil {
			a.Finish(err)
			return total, err
		}
		if a.IsComplete() {
			return total, nil
		}
	}
}

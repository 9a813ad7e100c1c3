package speech

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkAccumulator_CompletesOnExpectedSize(t *testing.T) {
	acc := NewChunkAccumulator(0, 6)

	require.NoError(t, acc.AddChunk([]byte("abc")))
	assert.False(t, acc.IsComplete())
	_, err := acc.Result()
	assert.Error(t, err)

	require.NoError(t, acc.AddChunk([]byte("def")))
	assert.True(t, acc.IsComplete())

	got, err := acc.Result()
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))
	assert.Error(t, acc.AddChunk([]byte("g")))
}

func TestChunkAccumulator_Bound(t *testing.T) {
	acc := NewChunkAccumulator(4, 0)
	require.NoError(t, acc.AddChunk([]byte("abc")))

	err := acc.AddChunk([]byte("de"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeTooLong))
	assert.True(t, acc.IsComplete())

	_, err = acc.Result()
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeTooLong))
}

func TestChunkAccumulator_ReadFrom(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, accumulatorChunk*2+10)
	acc := NewChunkAccumulator(0, 0)

	n, err := acc.ReadFrom(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := acc.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestChunkAccumulator_WaitForProducer(t *testing.T) {
	acc := NewChunkAccumulator(0, 0)
	go func() {
		_ = acc.AddChunk([]byte("part one "))
		time.Sleep(10 * time.Millisecond)
		_ = acc.AddChunk([]byte("part two"))
		acc.Finish(nil)
	}()

	got, err := acc.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "part one part two", string(got))
}

func TestChunkAccumulator_ProducerFailure(t *testing.T) {
	acc := NewChunkAccumulator(0, 0)
	boom := errors.New("connection reset")
	acc.Finish(boom)
	acc.Finish(nil)

	_, err := acc.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestChunkAccumulator_WaitCancelled(t *testing.T) {
	acc := NewChunkAccumulator(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := acc.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

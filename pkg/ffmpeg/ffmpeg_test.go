package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f := New("", 30*time.Second)
	assert.Equal(t, "ffmpeg", f.ffmpegPath)
	assert.Equal(t, 30*time.Second, f.timeout)
}

func TestDecodeOptions_Args(t *testing.T) {
	args := strings.Join(DecodeOptions{InputFormat: "webm"}.args(), " ")
	assert.Contains(t, args, "-f webm -i pipe:0")
	assert.Contains(t, args, "-f s16le")
	assert.Contains(t, args, "-ac 1 -ar 16000 pipe:1")
}

func TestValidateBinaries_Missing(t *testing.T) {
	err := New("definitely-not-ffmpeg-binary", 0).ValidateBinaries()
	assert.True(t, errors.Is(err, ErrFFmpegNotFound))
}

func TestDecodePCM_MissingBinary(t *testing.T) {
	_, err := New("definitely-not-ffmpeg-binary", 0).DecodePCM(context.Background(), strings.NewReader(""), DecodeOptions{})
	assert.True(t, errors.Is(err, ErrFFmpegNotFound))
}

// Integration test - only runs if ffmpeg is available
func TestDecodePCM_WAVRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skipf("FFmpeg binary not available: %v", err)
	}

	// one second of a 16 kHz square wave
	pcm := make([]byte, SampleRate*BytesPerSample)
	for i := 0; i < SampleRate; i++ {
		v := int16(8000)
		if (i/40)%2 == 0 {
			v = -8000
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	var wav bytes.Buffer
	require.NoError(t, WriteWAV(&wav, pcm, SampleRate, 1))

	r, err := New("ffmpeg", 30*time.Second).DecodePCM(context.Background(), &wav, DecodeOptions{Label: "square"})
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.InDelta(t, 1.0, PCMDuration(int64(len(out)), SampleRate, 1), 0.05)
}

func TestDecodePCM_GarbageInput(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skipf("FFmpeg binary not available: %v", err)
	}

	r, err := New("ffmpeg", 30*time.Second).DecodePCM(context.Background(), strings.NewReader("not audio at all"), DecodeOptions{Label: "garbage"})
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	var perr *ProcessingError
	assert.True(t, errors.As(err, &perr))
	_ = r.Close()
}

func TestWriteWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm, 16000, 1))

	b := buf.Bytes()
	require.Len(t, b, 44+len(pcm))
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(b[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(b[28:32]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(b[34:36]))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(b[40:44]))
	assert.Equal(t, pcm, b[44:])
}

func TestPCMDuration(t *testing.T) {
	assert.Equal(t, 2.0, PCMDuration(64000, 16000, 1))
	assert.Equal(t, 1.0, PCMDuration(64000, 16000, 2))
}

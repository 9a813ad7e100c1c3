package ffmpeg

import (
	"encoding/binary"
	"io"
)

// WriteWAV writes s16le PCM with a canonical 44-byte RIFF header
func WriteWAV(w io.Writer, pcm []byte, sampleRate, channels int) error {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	byteRate := sampleRate * channels * BytesPerSample
	blockAlign := channels * BytesPerSample

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + len(pcm)),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // PCM chunk size
		uint16(1),  // PCM format
		uint16(channels),
		uint32(sampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(BytesPerSample * 8),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(len(pcm)),
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	_, err := w.Write(pcm)
	return err
}

// PCMDuration returns the playback length of s16le PCM in seconds
func PCMDuration(bytes int64, sampleRate, channels int) float64 {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	return float64(bytes) / float64(sampleRate*channels*BytesPerSample)
}

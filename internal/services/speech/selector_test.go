package speech

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelSelector_Select(t *testing.T) {
	s := DefaultModelSelector()

	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"unknown duration", 0, "tiny"},
		{"short clip", 90 * time.Second, "tiny"},
		{"just under three minutes", 179 * time.Second, "tiny"},
		{"three minutes", 3 * time.Minute, "base"},
		{"ten minutes", 10 * time.Minute, "base"},
		{"just over ten minutes", 10*time.Minute + time.Second, "tiny"},
		{"lecture", 45 * time.Minute, "tiny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Select(tt.duration))
		})
	}
}

func TestNewModelSelector_Validation(t *testing.T) {
	_, err := NewModelSelector(10*time.Minute, 3*time.Minute, "tiny", "base", "tiny")
	assert.Error(t, err)

	_, err = NewModelSelector(0, time.Minute, "tiny", "base", "tiny")
	assert.Error(t, err)

	_, err = NewModelSelector(time.Minute, 2*time.Minute, "tiny", "", "tiny")
	assert.Error(t, err)

	s, err := NewModelSelector(time.Minute, 5*time.Minute, "small", "medium", "base")
	require.NoError(t, err)
	assert.Equal(t, "small", s.Select(30*time.Second))
	assert.Equal(t, "medium", s.Select(2*time.Minute))
	assert.Equal(t, "base", s.Select(time.Hour))
}

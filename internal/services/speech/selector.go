package speech

import (
	"fmt"
	"time"
)

// ModelSelector maps audio duration onto a model size. The mapping is a
// step function: short audio gets the short model, medium audio the medium
// model, and anything longer the long model, which is normally a fast one
// to bound wall-clock time.
type ModelSelector struct {
	shortBelow  time.Duration
	mediumUpTo  time.Duration
	shortModel  string
	mediumModel string
	longModel   string
}

// NewModelSelector validates 0 < short < long
func NewModelSelector(short, long time.Duration, shortModel, mediumModel, longModel string) (*ModelSelector, error) {
	if short <= 0 || long <= short {
		return nil, fmt.Errorf("model thresholds must satisfy 0 < short (%s) < long (%s)", short, long)
	}
	if shortModel == "" || mediumModel == "" || longModel == "" {
		return nil, fmt.Errorf("model names must not be empty")
	}
	return &ModelSelector{
		shortBelow:  short,
		mediumUpTo:  long,
		shortModel:  shortModel,
		mediumModel: mediumModel,
		longModel:   longModel,
	}, nil
}

// DefaultModelSelector is <3m tiny, 3-10m base, >10m tiny
func DefaultModelSelector() *ModelSelector {
	s, _ := NewModelSelector(3*time.Minute, 10*time.Minute, "tiny", "base", "tiny")
	return s
}

// Select returns the model for d. Unknown durations (d <= 0) get the long
// model since they may be arbitrarily long.
func (s *ModelSelector) Select(d time.Duration) string {
	switch {
	case d <= 0:
		return s.longModel
	case d < s.shortBelow:
		return s.shortModel
	case d <= s.mediumUpTo:
		return s.mediumModel
	default:
		return s.longModel
	}
}

package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Model is a loaded speech model
type Model struct {
	Size     string
	Path     string
	LoadedAt time.Time
}

// ModelLoader loads one model size
type ModelLoader interface {
	Load(ctx context.Context, size string) (*Model, error)
}

// ModelRegistry keeps each model size loaded at most once for the life of
// the process. Concurrent first requests for the same size share one load.
type ModelRegistry struct {
	loader ModelLoader
	logger logrus.FieldLogger

	mu     sync.RWMutex
	models map[string]*Model
	group  singleflight.Group
	loads  atomic.Int64
}

// NewModelRegistry creates a registry backed by loader
func NewModelRegistry(loader ModelLoader, logger logrus.FieldLogger) *ModelRegistry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ModelRegistry{
		loader: loader,
		logger: logger,
		models: make(map[string]*Model),
	}
}

// Get returns the model for size, loading it on first use
func (r *ModelRegistry) Get(ctx context.Context, size string) (*Model, error) {
	if m, ok := r.cached(size); ok {
		return m, nil
	}

	// the load outlives any single waiter so a cancelled caller does not
	// fail the others sharing it
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(size, func() (any, error) {
		if m, ok := r.cached(size); ok {
			return m, nil
		}
		start := time.Now()
		m, err := r.loader.Load(loadCtx, size)
		if err != nil {
			return nil, err
		}
		r.loads.Add(1)
		r.mu.Lock()
		r.models[size] = m
		r.mu.Unlock()
		r.logger.WithFields(logrus.Fields{
			"model":      size,
			"path":       m.Path,
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Info("Speech model loaded")
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *ModelRegistry) cached(size string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[size]
	return m, ok
}

// Loads returns how many loads actually ran
func (r *ModelRegistry) Loads() int64 {
	return r.loads.Load()
}

// Loaded lists the sizes currently held
func (r *ModelRegistry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sizes := make([]string, 0, len(r.models))
	for size := range r.models {
		sizes = append(sizes, size)
	}
	return sizes
}

// FileModelLoader resolves whisper.cpp ggml model files in a directory
type FileModelLoader struct {
	Dir string
	Now func() time.Time
}

// ModelPath returns the file a size maps to, e.g. models/ggml-base.bin
func (l *FileModelLoader) ModelPath(size string) string {
	return filepath.Join(l.Dir, fmt.Sprintf("ggml-%s.bin", size))
}

// Load checks the model file exists and is readable
func (l *FileModelLoader) Load(ctx context.Context, size string) (*Model, error) {
	if size == "" {
		return nil, apperrors.ValidationError("model", "model size is required")
	}
	path := l.ModelPath(size)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return nil, apperrors.Misconfigured("local speech", "model file "+path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Misconfigured("local speech", "readable model file "+path)
	}
	_ = f.Close()

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return &Model{Size: size, Path: path, LoadedAt: now()}, nil
}

package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/matlukowski/readTube-sub000/pkg/download"
	"github.com/sirupsen/logrus"
)

// JobCleaner deletes finished jobs past their retention
type JobCleaner interface {
	CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error)
}

// Options configures the cleanup loop
type Options struct {
	TempDir      string
	MaxTempAge   time.Duration
	Interval     time.Duration
	JobRetention time.Duration
}

// Report summarises one cleanup pass
type Report struct {
	TempFilesRemoved int
	JobsDeleted      int64
}

// Service removes stale decode temp files and expired jobs
type Service struct {
	opts   Options
	jobs   JobCleaner
	logger logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. jobs may be nil when the job
// queue is disabled.
func NewService(opts Options, jobs JobCleaner, logger logrus.FieldLogger) *Service {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}
	if opts.MaxTempAge <= 0 {
		opts.MaxTempAge = 6 * time.Hour
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		opts:   opts,
		jobs:   jobs,
		logger: logger.WithField("component", "cleanup"),
	}
}

// Start runs one pass immediately and then one per interval until Stop or
// ctx is done
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.RunOnce(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.logger.Info("Cleanup service stopped")
				return
			}
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"interval":      s.opts.Interval.String(),
		"max_temp_age":  s.opts.MaxTempAge.String(),
		"job_retention": s.opts.JobRetention.String(),
	}).Info("Cleanup service started")
}

// Stop stops the cleanup service and waits for the loop to exit
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// RunOnce performs a single cleanup pass
func (s *Service) RunOnce(ctx context.Context) Report {
	var report Report

	if s.opts.TempDir != "" {
		removed, err := download.CleanupOldTempFiles(s.opts.TempDir, s.opts.MaxTempAge)
		if err != nil {
			s.logger.WithError(err).Warn("Temp file cleanup failed")
		}
		report.TempFilesRemoved = removed
	}

	if s.jobs != nil && s.opts.JobRetention > 0 {
		deleted, err := s.jobs.CleanupOldJobs(ctx, s.opts.JobRetention)
		if err != nil {
			s.logger.WithError(err).Warn("Job cleanup failed")
		}
		report.JobsDeleted = deleted
	}

	if report.TempFilesRemoved > 0 || report.JobsDeleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"temp_files": report.TempFilesRemoved,
			"jobs":       report.JobsDeleted,
		}).Info("Cleanup pass finished")
	}
	return report
}

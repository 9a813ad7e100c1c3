package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/jobs"
	"github.com/sirupsen/logrus"
)

// JobProcessor defines the interface for processing different job types
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	CanProcess(jobType models.JobType) bool
}

// knownJobTypes lists every job type a processor may claim
var knownJobTypes = []models.JobType{
	models.JobTypeTranscript,
}

// Worker represents a background worker that processes jobs
type Worker struct {
	id           string
	jobService   jobs.Service
	processors   []JobProcessor
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	pollInterval time.Duration
	logger       logrus.FieldLogger
}

// NewWorker creates a new worker instance
func NewWorker(id string, jobService jobs.Service, pollInterval time.Duration, logger logrus.FieldLogger) *Worker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		id:           id,
		jobService:   jobService,
		processors:   make([]JobProcessor, 0),
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
		logger:       logger.WithField("worker_id", id),
	}
}

// ID returns the worker id stored on claimed jobs
func (w *Worker) ID() string {
	return w.id
}

// RegisterProcessor registers a job processor
func (w *Worker) RegisterProcessor(processor JobProcessor) {
	w.processors = append(w.processors, processor)
}

// Start starts the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.logger.Info("Worker starting")
	defer w.logger.Info("Worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			// drain the queue before waiting for the next tick
			for {
				processed, err := w.ProcessNext(ctx)
				if err != nil {
					w.logger.WithError(err).Warn("Error processing job")
				}
				if !processed || ctx.Err() != nil {
					break
				}
				select {
				case <-w.stopChan:
					return
				default:
				}
			}
		}
	}
}

func (w *Worker) supportedTypes() []models.JobType {
	var types []models.JobType
	for _, jobType := range knownJobTypes {
		for _, p := range w.processors {
			if p.CanProcess(jobType) {
				types = append(types, jobType)
				break
			}
		}
	}
	return types
}

// ProcessNext claims and processes one job. It reports whether a job was
// claimed.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	supportedTypes := w.supportedTypes()
	if len(supportedTypes) == 0 {
		return false, fmt.Errorf("no job processors registered")
	}

	job, err := w.jobService.ClaimNextJob(ctx, w.id, supportedTypes)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJobsAvailable) {
			return false, nil
		}
		return false, err
	}

	log := w.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"type":     job.Type,
		"video_id": job.VideoID,
	})
	log.Info("Claimed job")

	var processor JobProcessor
	for _, p := range w.processors {
		if p.CanProcess(job.Type) {
			processor = p
			break
		}
	}
	if processor == nil {
		if relErr := w.jobService.ReleaseJob(ctx, job.ID); relErr != nil {
			log.WithError(relErr).Error("Failed to release job")
		}
		return true, fmt.Errorf("no processor found for job type %s", job.Type)
	}

	start := time.Now()
	err = processor.ProcessJob(ctx, job)
	if err != nil {
		// record the failure even when ctx was cancelled mid-job
		failCtx := context.WithoutCancel(ctx)

		var structuredErr *models.StructuredJobError
		var failErr error
		if errors.As(err, &structuredErr) {
			failErr = w.jobService.RecordFailure(failCtx, job.ID, models.JobFailure{
				Type:    structuredErr.Type,
				Code:    structuredErr.Code,
				Message: structuredErr.Message,
				Details: structuredErr.Details,
			})
		} else {
			failErr = w.jobService.FailJob(failCtx, job.ID, err)
		}
		if failErr != nil {
			log.WithError(failErr).Error("Failed to mark job as failed")
		}
		return true, fmt.Errorf("job %d processing failed: %w", job.ID, err)
	}

	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("Completed job")
	return true, nil
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers    []*Worker
	jobService jobs.Service
	logger     logrus.FieldLogger
	mu         sync.RWMutex
	started    bool
}

// NewWorkerPool creates a new worker pool. Worker ids carry a per-process
// suffix so jobs claimed by a previous run can be told apart.
func NewWorkerPool(jobService jobs.Service, workerCount int, pollInterval time.Duration, logger logrus.FieldLogger) *WorkerPool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	pool := &WorkerPool{
		jobService: jobService,
		workers:    make([]*Worker, workerCount),
		logger:     logger,
	}

	instance := uuid.NewString()[:8]
	for i := 0; i < workerCount; i++ {
		workerID := fmt.Sprintf("worker-%s-%d", instance, i+1)
		pool.workers[i] = NewWorker(workerID, jobService, pollInterval, logger)
	}

	return pool
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// RegisterProcessor registers a processor with all workers
func (p *WorkerPool) RegisterProcessor(processor JobProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, worker := range p.workers {
		worker.RegisterProcessor(processor)
	}
}

// Start starts all workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	p.logger.WithField("workers", len(p.workers)).Info("Starting worker pool")

	for _, worker := range p.workers {
		worker.Start(ctx)
	}

	p.started = true
	return nil
}

// Stop stops all workers gracefully
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.logger.Info("Stopping worker pool")

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.started = false
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of a queued acquisition
type JobStatus string

const (
	JobStatusPending           JobStatus = "pending"
	JobStatusProcessing        JobStatus = "processing"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusFailed            JobStatus = "failed"
	JobStatusPermanentlyFailed JobStatus = "permanently_failed"
	JobStatusCancelled         JobStatus = "cancelled"
)

// FinishedJobStatuses are the states a job never leaves
var FinishedJobStatuses = []JobStatus{
	JobStatusCompleted,
	JobStatusPermanentlyFailed,
	JobStatusCancelled,
}

type JobType string

const (
	JobTypeTranscript JobType = "transcript_acquisition"
)

// JobErrorType decides whether a failed job goes back to the queue
type JobErrorType string

const (
	ErrorTypePermanent JobErrorType = "permanent" // private video, quota, bad input
	ErrorTypeTransient JobErrorType = "transient" // every strategy failed this time
	ErrorTypeSystem    JobErrorType = "system"    // database or worker trouble
)

// StructuredJobError is returned by processors so the worker can record a
// classified failure instead of a bare message
type StructuredJobError struct {
	Type     JobErrorType
	Code     string
	Message  string
	Details  string
	Original error
}

func (e *StructuredJobError) Error() string {
	return e.Message
}

func (e *StructuredJobError) Unwrap() error {
	return e.Original
}

// NewJobError creates a structured job error
func NewJobError(errorType JobErrorType, code, message, details string, originalErr error) *StructuredJobError {
	return &StructuredJobError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Details:  details,
		Original: originalErr,
	}
}

// Job is one queued transcript acquisition
type Job struct {
	gorm.Model
	Type         JobType    `json:"type" gorm:"not null;index:idx_jobs_type_status"`
	Status       JobStatus  `json:"status" gorm:"default:'pending';index:idx_jobs_status_priority"`
	Payload      JobPayload `json:"payload" gorm:"type:json"`
	Priority     int        `json:"priority" gorm:"default:0;index:idx_jobs_status_priority"`
	MaxRetries   int        `json:"max_retries" gorm:"default:3"`
	RetryCount   int        `json:"retry_count" gorm:"default:0"`
	Progress     int        `json:"progress" gorm:"default:0"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	LastFailedAt *time.Time `json:"last_failed_at"`
	WorkerID     string     `json:"worker_id,omitempty"`
	Result       JobResult  `json:"result,omitempty" gorm:"type:json"`

	// Last failure. ErrorCode carries the pipeline code (UNAVAILABLE,
	// STRATEGIES_EXHAUSTED, ...) and ErrorDetails the strategies tried.
	Error        string `json:"error,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`

	CreatedBy string `json:"created_by,omitempty" gorm:"index"`
	VideoID   string `json:"video_id,omitempty" gorm:"index;size:11"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobFailure is what gets recorded when an attempt fails
type JobFailure struct {
	Type    JobErrorType
	Code    string
	Message string
	Details string
}

// NextStatus returns the state a job moves to after failing with f.
// Permanent failures and exhausted retries end the job.
func (j *Job) NextStatus(f JobFailure) JobStatus {
	if f.Type == ErrorTypePermanent || j.RetryCount+1 >= j.MaxRetries {
		return JobStatusPermanentlyFailed
	}
	return JobStatusFailed
}

// IsRetryable reports whether a failed job will be claimed again
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// IsTerminal reports whether the job is done, one way or another
func (j *Job) IsTerminal() bool {
	for _, s := range FinishedJobStatuses {
		if j.Status == s {
			return true
		}
	}
	return j.Status == JobStatusFailed && !j.IsRetryable()
}

// JobPayload holds the acquisition request of a job
type JobPayload map[string]any

func (p JobPayload) Value() (driver.Value, error) { return marshalColumn(p) }

func (p *JobPayload) Scan(value any) error { return scanColumn(value, (*map[string]any)(p)) }

// String returns a string field, or "" when absent
func (p JobPayload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns a numeric field. JSON numbers come back as float64.
func (p JobPayload) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// JobResult holds the summary of a finished acquisition
type JobResult map[string]any

func (r JobResult) Value() (driver.Value, error) { return marshalColumn(r) }

func (r *JobResult) Scan(value any) error { return scanColumn(value, (*map[string]any)(r)) }

func marshalColumn(m map[string]any) (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func scanColumn(value any, dst *map[string]any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*dst = map[string]any{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	return json.Unmarshal(raw, dst)
}

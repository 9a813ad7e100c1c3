package types

import (
	"time"

	"github.com/matlukowski/readTube-sub000/internal/services/orchestrator"
)

// Status constants for API responses
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusQueued = "queued"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error           string                 `json:"error"`
	Code            string                 `json:"code"`
	Details         map[string]interface{} `json:"details,omitempty"`
	Troubleshooting *Troubleshooting       `json:"troubleshooting,omitempty"`
	RequestID       string                 `json:"requestId,omitempty"`
}

// Troubleshooting lists what the cascade tried before giving up
type Troubleshooting struct {
	StrategiesTried []orchestrator.Attempt `json:"strategiesTried"`
	Suggestions     []string               `json:"suggestions"`
	Retryable       bool                   `json:"retryable"`
}

// TranscriptRequest is the body of POST /api/v1/transcripts
type TranscriptRequest struct {
	VideoID            string   `json:"videoId" binding:"required" example:"dQw4w9WgXcQ"`
	Language           string   `json:"language" example:"en"`
	Languages          []string `json:"languages,omitempty"`
	Strategy           string   `json:"strategy,omitempty" example:"auto" enums:"auto,force-remote,force-local"`
	MaxDurationSeconds int      `json:"maxDurationSeconds,omitempty" example:"3600" minimum:"0"`
	ClientTranscript   string   `json:"clientTranscript,omitempty"`
}

// ClientTranscriptRequest is the body of POST /api/v1/transcripts/{videoId}/client
type ClientTranscriptRequest struct {
	Transcript string `json:"transcript" binding:"required"`
	Language   string `json:"language,omitempty" example:"en"`
}

// TranscriptResponse carries one transcript
type TranscriptResponse struct {
	VideoID          string `json:"videoId" example:"dQw4w9WgXcQ"`
	Transcript       string `json:"transcript"`
	Source           string `json:"source" example:"captions"`
	LengthChars      int    `json:"lengthChars" example:"5321"`
	ProcessingTimeMs int64  `json:"processingTimeMs" example:"812"`
	ModelOrMethod    string `json:"modelOrMethod" example:"captions:en"`
	CostEstimate     int64  `json:"costEstimate" example:"4"`
	Language         string `json:"language,omitempty" example:"en"`
	Cached           bool   `json:"cached"`
	RequestID        string `json:"requestId,omitempty"`
}

// JobResponse reports an async acquisition
type JobResponse struct {
	JobID       uint                   `json:"jobId" example:"17"`
	VideoID     string                 `json:"videoId" example:"dQw4w9WgXcQ"`
	Status      string                 `json:"status" example:"pending"`
	Progress    int                    `json:"progress" example:"10"`
	RetryCount  int                    `json:"retryCount"`
	Result      map[string]interface{} `json:"result,omitempty"`
	ErrorCode   string                 `json:"errorCode,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// UsageResponse is a caller's ledger
type UsageResponse struct {
	CallerID       string `json:"callerId" example:"anonymous"`
	MinutesUsed    int64  `json:"minutesUsed" example:"12"`
	MinutesGranted int64  `json:"minutesGranted" example:"60"`
	Remaining      int64  `json:"remaining" example:"48"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string            `json:"status" example:"ok"`
	Timestamp string            `json:"timestamp"`
	Database  map[string]string `json:"database"`
	Platform  interface{}       `json:"platform,omitempty"`
	Cache     interface{}       `json:"cache,omitempty"`
	Workers   int               `json:"workers"`
}

// VersionResponse describes the running binary
type VersionResponse struct {
	Name      string `json:"name" example:"readTube API"`
	Version   string `json:"version" example:"1.0.0"`
	GitCommit string `json:"gitCommit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
	Status    string `json:"status" example:"running"`
}

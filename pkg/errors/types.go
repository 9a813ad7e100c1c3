package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigRequired ErrorCode = "CONFIG_REQUIRED" // misconfiguration: missing credentials or binaries

	// Database errors
	ErrCodeDatabaseQuery ErrorCode = "DATABASE_QUERY"

	// Resource errors
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeUnavailable    ErrorCode = "UNAVAILABLE" // private, deleted or region-locked video
	ErrCodeNoAudioFormats ErrorCode = "NO_AUDIO_FORMATS"
	ErrCodeTooLong        ErrorCode = "TOO_LONG"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// External service errors
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE"
	ErrCodeAPITimeout      ErrorCode = "API_TIMEOUT"
	ErrCodeAPIRateLimit    ErrorCode = "API_RATE_LIMIT"
	ErrCodeBotDetected     ErrorCode = "BOT_DETECTED"
	ErrCodeEmptyResult     ErrorCode = "EMPTY_RESULT"
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE" // over a provider's upload limit

	// Accounting errors
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// Pipeline errors
	ErrCodeStrategiesExhausted ErrorCode = "STRATEGIES_EXHAUSTED"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	HTTPCode int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// GetHTTPCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}
	return getDefaultHTTPCode(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Cause:    cause,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(cause error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(cause, code, fmt.Sprintf(format, args...))
}

// kind is what the rest of the system needs to know about a code
type kind struct {
	status    int
	retryable bool // another attempt at the same call may succeed
	fatal     bool // no other strategy can succeed either
}

var kinds = map[ErrorCode]kind{
	ErrCodeNotFound:            {status: http.StatusNotFound},
	ErrCodeUnavailable:         {status: http.StatusNotFound, fatal: true},
	ErrCodeNoAudioFormats:      {status: http.StatusNotFound},
	ErrCodeValidation:          {status: http.StatusBadRequest},
	ErrCodeInvalidInput:        {status: http.StatusBadRequest},
	ErrCodeQuotaExceeded:       {status: http.StatusPaymentRequired},
	ErrCodeAPIRateLimit:        {status: http.StatusTooManyRequests, retryable: true},
	ErrCodeBotDetected:         {status: http.StatusTooManyRequests, retryable: true},
	ErrCodeAPITimeout:          {status: http.StatusGatewayTimeout, retryable: true},
	ErrCodeExternalService:     {status: http.StatusBadGateway, retryable: true},
	ErrCodeTooLong:             {status: http.StatusUnprocessableEntity},
	ErrCodeStrategiesExhausted: {status: http.StatusUnprocessableEntity},
	ErrCodeEmptyResult:         {status: http.StatusUnprocessableEntity},
	ErrCodePayloadTooLarge:     {status: http.StatusRequestEntityTooLarge},
	ErrCodeConfigRequired:      {status: http.StatusServiceUnavailable},
}

// HTTPStatus returns the default HTTP status code for an error code
func HTTPStatus(code ErrorCode) int {
	return getDefaultHTTPCode(code)
}

func getDefaultHTTPCode(code ErrorCode) int {
	if k, ok := kinds[code]; ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// NotFound creates a not found error
func NotFound(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// Unavailable marks a video that no strategy can recover
func Unavailable(videoID, reason string) *AppError {
	return New(ErrCodeUnavailable, fmt.Sprintf("video %s is unavailable: %s", videoID, reason)).
		WithDetail("video_id", videoID).
		WithDetail("reason", reason)
}

// ValidationError creates a validation error
func ValidationError(field string, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// DatabaseError creates a database error
func DatabaseError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithDetail("operation", operation)
}

// ExternalServiceError creates an external service error
func ExternalServiceError(service string, cause error) *AppError {
	return Wrap(cause, ErrCodeExternalService, fmt.Sprintf("external service '%s' error", service)).
		WithDetail("service", service)
}

// Misconfigured reports a stage that cannot run because a dependency is not configured
func Misconfigured(component, missing string) *AppError {
	return New(ErrCodeConfigRequired, fmt.Sprintf("%s is not configured: missing %s", component, missing)).
		WithDetail("component", component).
		WithDetail("missing", missing)
}

// TimeoutError creates a timeout error
func TimeoutError(operation string, timeout string) *AppError {
	return New(ErrCodeAPITimeout, fmt.Sprintf("operation '%s' timed out after %s", operation, timeout)).
		WithDetail("operation", operation).
		WithDetail("timeout", timeout)
}

// RateLimitError creates a rate limit error
func RateLimitError(resource string, limit string) *AppError {
	return New(ErrCodeAPIRateLimit, fmt.Sprintf("rate limit exceeded for '%s': %s", resource, limit)).
		WithDetail("resource", resource).
		WithDetail("limit", limit)
}

// QuotaExceeded creates a quota error carrying the remaining balance
func QuotaExceeded(callerID string, required, remaining int64) *AppError {
	return Newf(ErrCodeQuotaExceeded, "quota exceeded: %d minutes required, %d remaining", required, remaining).
		WithDetail("caller_id", callerID).
		WithDetail("required_minutes", required).
		WithDetail("remaining_minutes", remaining)
}

// As returns the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if an error is of a specific type
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.GetHTTPCode()
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether another attempt at the same operation may succeed
func IsRetryable(err error) bool {
	return kinds[GetCode(err)].retryable
}

// IsFatal reports whether no strategy can recover from err
func IsFatal(err error) bool {
	return kinds[GetCode(err)].fatal
}

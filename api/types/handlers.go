package types

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/internal/services/orchestrator"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// Context keys set by middleware
const (
	RequestIDKey = "request_id"
	CallerIDKey  = "caller_id"

	RequestIDHeader = "X-Request-ID"
	CallerIDHeader  = "X-Caller-ID"
)

// RequestID returns the id assigned by the request id middleware
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// CallerID returns the trusted caller header, empty when absent
func CallerID(c *gin.Context) string {
	if id := c.GetString(CallerIDKey); id != "" {
		return id
	}
	return c.GetHeader(CallerIDHeader)
}

// ParseUintParam extracts and parses a URL parameter as uint
// Returns the parsed value and sends error response if parsing fails
func ParseUintParam(c *gin.Context, paramName string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil {
		SendError(c, apperrors.ValidationError(paramName, "must be a positive integer"))
		return 0, false
	}
	return uint(value), true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		SendError(c, apperrors.New(apperrors.ErrCodeInvalidInput, "Invalid request body").
			WithDetail("reason", err.Error()))
		return false
	}
	return true
}

// NewErrorResponse renders err with the status it maps to. Cascade failures
// carry the attempts made and suggestions.
func NewErrorResponse(err error) (int, ErrorResponse) {
	if failure, ok := orchestrator.AsFailure(err); ok {
		attempts := failure.Attempts
		if attempts == nil {
			attempts = []orchestrator.Attempt{}
		}
		suggestions := failure.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		return apperrors.HTTPStatus(failure.Code), ErrorResponse{
			Error: failure.Message,
			Code:  string(failure.Code),
			Troubleshooting: &Troubleshooting{
				StrategiesTried: attempts,
				Suggestions:     suggestions,
				Retryable:       failure.Retryable,
			},
		}
	}

	if appErr, ok := apperrors.As(err); ok {
		return appErr.GetHTTPCode(), ErrorResponse{
			Error:   appErr.Message,
			Code:    string(appErr.Code),
			Details: appErr.Details,
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
		Code:  string(apperrors.ErrCodeInternal),
	}
}

// SendError writes err as an ErrorResponse and aborts the chain
func SendError(c *gin.Context, err error) {
	status, body := NewErrorResponse(err)
	body.RequestID = RequestID(c)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeNotFound, "captions not found")
	assert.Equal(t, "NOT_FOUND: captions not found", err.Error())

	wrapped := Wrap(fmt.Errorf("dial tcp: refused"), ErrCodeExternalService, "watch page")
	assert.Contains(t, wrapped.Error(), "caused by: dial tcp: refused")
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	base := Unavailable("abcdefghijk", "private")
	wrapped := fmt.Errorf("captions stage: %w", base)

	assert.True(t, Is(wrapped, ErrCodeUnavailable))
	assert.True(t, IsFatal(wrapped))
	assert.Equal(t, ErrCodeUnavailable, GetCode(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPCode(wrapped))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", New(ErrCodeExternalService, "x"), true},
		{"timeout", New(ErrCodeAPITimeout, "x"), true},
		{"bot check", New(ErrCodeBotDetected, "x"), true},
		{"rate limit", New(ErrCodeAPIRateLimit, "x"), true},
		{"not found", New(ErrCodeNotFound, "x"), false},
		{"unavailable", New(ErrCodeUnavailable, "x"), false},
		{"empty result", New(ErrCodeEmptyResult, "x"), false},
		{"plain error", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDefaultHTTPCodes(t *testing.T) {
	assert.Equal(t, http.StatusPaymentRequired, HTTPStatus(ErrCodeQuotaExceeded))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrCodeStrategiesExhausted))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeInternal))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeInvalidInput))
}

func TestQuotaExceededDetails(t *testing.T) {
	err := QuotaExceeded("caller-1", 45, 10)
	assert.Equal(t, int64(45), err.Details["required_minutes"])
	assert.Equal(t, int64(10), err.Details["remaining_minutes"])
	assert.Equal(t, http.StatusPaymentRequired, err.GetHTTPCode())
}

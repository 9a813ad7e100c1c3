package usage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUsage struct {
	mock.Mock
}

func (m *MockUsage) Ledger(ctx context.Context, callerID string) (*models.UsageLedger, error) {
	args := m.Called(ctx, callerID)
	if l := args.Get(0); l != nil {
		return l.(*models.UsageLedger), args.Error(1)
	}
	return nil, args.Error(1)
}

func serve(deps *types.Dependencies, caller string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
	if caller != "" {
		c.Request.Header.Set(types.CallerIDHeader, caller)
	}
	Get(deps)(c)
	return w
}

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("caller ledger", func(t *testing.T) {
		usage := new(MockUsage)
		usage.On("Ledger", mock.Anything, "team-a").
			Return(&models.UsageLedger{CallerID: "team-a", MinutesUsed: 12, MinutesGranted: 60}, nil)

		w := serve(&types.Dependencies{Usage: usage}, "team-a")

		assert.Equal(t, http.StatusOK, w.Code)
		var body types.UsageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, types.UsageResponse{CallerID: "team-a", MinutesUsed: 12, MinutesGranted: 60, Remaining: 48}, body)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		usage := new(MockUsage)
		usage.On("Ledger", mock.Anything, "anonymous").
			Return(&models.UsageLedger{CallerID: "anonymous", MinutesGranted: 60}, nil)

		w := serve(&types.Dependencies{Usage: usage}, "")

		assert.Equal(t, http.StatusOK, w.Code)
		usage.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		usage := new(MockUsage)
		usage.On("Ledger", mock.Anything, "team-a").Return(nil, errors.New("redis down"))

		w := serve(&types.Dependencies{Usage: usage}, "team-a")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("no ledger configured", func(t *testing.T) {
		w := serve(&types.Dependencies{}, "team-a")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

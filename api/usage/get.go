package usage

import (
	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/internal/services/transcription"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// Get returns the caller's ledger
// @Summary      Get caller usage
// @Description  Minutes used and granted for the caller named by X-Caller-ID (anonymous when absent)
// @Tags         usage
// @Produce      json
// @Param        X-Caller-ID header string false "Caller id"
// @Success      200 {object} types.UsageResponse
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/v1/usage [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Usage == nil {
			types.SendError(c, apperrors.Misconfigured("usage ledger", "usage.backend"))
			return
		}

		caller := types.CallerID(c)
		if caller == "" {
			caller = transcription.AnonymousCaller
		}

		ledger, err := deps.Usage.Ledger(c.Request.Context(), caller)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.UsageResponse{
			CallerID:       ledger.CallerID,
			MinutesUsed:    ledger.MinutesUsed,
			MinutesGranted: ledger.MinutesGranted,
			Remaining:      ledger.Remaining(),
		})
	}
}

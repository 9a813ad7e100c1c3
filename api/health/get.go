package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
)

// Get handles health check requests
// @Summary      Health check
// @Description  Database connectivity, platform and cache counters, worker count
// @Tags         health
// @Produce      json
// @Success      200 {object} types.HealthResponse
// @Failure      503 {object} types.HealthResponse "Database unhealthy"
// @Router       /health [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := types.HealthResponse{
			Status:    types.StatusOK,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Database:  getDatabaseStatus(deps),
		}
		status := http.StatusOK
		if response.Database["status"] == "unhealthy" {
			response.Status = types.StatusError
			status = http.StatusServiceUnavailable
		}

		if deps != nil {
			if deps.Platform != nil {
				response.Platform = deps.Platform.Stats()
			}
			if deps.Cache != nil {
				response.Cache = deps.Cache.Stats()
			}
			if deps.WorkerPool != nil {
				response.Workers = deps.WorkerPool.Size()
			}
		}

		c.JSON(status, response)
	}
}

// getDatabaseStatus returns the database connection status
func getDatabaseStatus(deps *types.Dependencies) map[string]string {
	if deps == nil || deps.DB == nil || deps.DB.DB == nil {
		return map[string]string{"status": "not configured"}
	}

	if err := deps.DB.HealthCheck(); err != nil {
		return map[string]string{"status": "unhealthy", "error": err.Error()}
	}

	return map[string]string{"status": "healthy"}
}

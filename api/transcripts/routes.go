package transcripts

import (
	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
)

// RegisterRoutes registers transcript routes. The job routes are registered
// before /:videoId so "jobs" is never taken for a video id.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Post(deps))
	router.POST("/jobs", PostJob(deps))
	router.GET("/jobs/:id", GetJob(deps))
	router.GET("/:videoId", Get(deps))
	router.POST("/:videoId/client", PostClient(deps))
}

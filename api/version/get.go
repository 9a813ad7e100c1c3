package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
)

// Get handles version requests
// @Summary      Service version
// @Tags         health
// @Produce      json
// @Success      200 {object} types.VersionResponse
// @Router       / [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	version := "dev"
	var build types.BuildInfo
	if deps != nil {
		build = deps.Build
		if build.Version != "" {
			version = build.Version
		}
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.VersionResponse{
			Name:      "readTube API",
			Version:   version,
			GitCommit: build.GitCommit,
			BuildTime: build.BuildTime,
			Status:    "running",
		})
	}
}

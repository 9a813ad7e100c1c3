package usage

import (
	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
)

// RegisterRoutes registers usage routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", Get(deps))
}

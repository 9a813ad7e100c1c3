package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/matlukowski/readTube-sub000/api/health"
	"github.com/matlukowski/readTube-sub000/api/transcripts"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/api/usage"
	"github.com/matlukowski/readTube-sub000/api/version"
	_ "github.com/matlukowski/readTube-sub000/docs/swagger"
	"github.com/matlukowski/readTube-sub000/pkg/config"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// RouteOptions carries the shared rate limiter state
type RouteOptions struct {
	RateLimits         config.RateLimitConfig
	RateLimiters       *sync.Map
	CleanupStop        chan struct{}
	CleanupInitialized *sync.Once
}

func (o RouteOptions) limit(rps, burst int) gin.HandlerFunc {
	if !o.RateLimits.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return PerClientRateLimit(o.RateLimiters, o.CleanupStop, o.CleanupInitialized, rps, burst)
}

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, opts RouteOptions) error {
	if deps == nil {
		return fmt.Errorf("dependencies are nil")
	}
	if deps.TranscriptionService == nil {
		return fmt.Errorf("transcription service is not configured")
	}
	if opts.RateLimiters == nil {
		opts.RateLimiters = &sync.Map{}
	}
	if opts.CleanupInitialized == nil {
		opts.CleanupInitialized = &sync.Once{}
	}
	if opts.CleanupStop == nil {
		opts.CleanupStop = make(chan struct{})
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")

	// Transcript acquisition can run for minutes, so it gets the tighter limit
	transcriptGroup := v1.Group("/transcripts")
	transcriptGroup.Use(opts.limit(opts.RateLimits.TranscriptsRPS, opts.RateLimits.TranscriptsBurst))
	transcripts.RegisterRoutes(transcriptGroup, deps)

	usageGroup := v1.Group("/usage")
	usageGroup.Use(opts.limit(opts.RateLimits.DefaultRPS, opts.RateLimits.DefaultBurst))
	usage.RegisterRoutes(usageGroup, deps)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendError(c, apperrors.NotFound("endpoint", c.Request.URL.Path))
	}
}

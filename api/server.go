package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/pkg/config"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	logger             logrus.FieldLogger
	serverConfig       config.ServerConfig
	rateLimitConfig    config.RateLimitConfig
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, rateLimits config.RateLimitConfig, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	engine := gin.New()

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = 1 << 20
	}

	return &Server{
		engine:          engine,
		logger:          logger,
		serverConfig:    cfg,
		rateLimitConfig: rateLimits,
		rateLimiters:    &sync.Map{},
		cleanupStop:     make(chan struct{}),
		dependencies:    &types.Dependencies{},
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:        engine,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
	}
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	return s.setupRoutes()
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(RequestID())
	s.engine.Use(Recovery(s.logger))
	s.engine.Use(Logger(s.logger))
	s.engine.Use(CORS())

	if s.serverConfig.MaxRequestBytes > 0 {
		s.engine.Use(RequestSizeLimitWithSize(s.serverConfig.MaxRequestBytes))
	} else {
		s.engine.Use(RequestSizeLimit())
	}
}

// setupRoutes delegates to the main route registration
func (s *Server) setupRoutes() error {
	return RegisterRoutes(s.engine, s.dependencies, RouteOptions{
		RateLimits:         s.rateLimitConfig,
		RateLimiters:       s.rateLimiters,
		CleanupStop:        s.cleanupStop,
		CleanupInitialized: &s.cleanupInitialized,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	s.stopOnce.Do(func() { close(s.cleanupStop) })

	return s.httpServer.Shutdown(ctx)
}

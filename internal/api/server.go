// Package api exposes the mapping engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/cache"
	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/middleware"
	"github.com/specialty-map-server/internal/overrides"
	"github.com/specialty-map-server/internal/service"
	"github.com/specialty-map-server/internal/taxonomy"
)

// Engine is the mapping surface the server exposes.
type Engine interface {
	MapSpecialty(ctx context.Context, input domain.RawInput) (*domain.Decision, error)
	MapSpecialties(ctx context.Context, inputs []domain.RawInput) ([]*domain.Decision, error)
	Suggestions(ctx context.Context, input domain.RawInput, limit int) (*domain.Decision, error)
}

// Deps holds the collaborators the server serves with. Store, Cache, and
// Adapters are optional; Refresh rebuilds the engine after an override is
// appended.
type Deps struct {
	Engine   Engine
	Index    *taxonomy.Index
	Store    overrides.Store
	Cache    *cache.DecisionCache
	Adapters *service.AdapterRegistry
	Refresh  func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	config *domain.Config
	logger *logrus.Logger
	deps   Deps
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(config *domain.Config, logger *logrus.Logger, deps Deps) *Server {
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	if config.Server.RateLimit > 0 {
		router.Use(middleware.RateLimit(config.Server.RateLimit, config.Server.RateBurst))
	}

	server := &Server{
		config: config,
		logger: logger,
		deps:   deps,
		router: router,
	}

	server.setupRoutes()

	return server
}

// Router returns the underlying gin engine. Used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(s.config.Server.APIKey))
	{
		v1.POST("/map", s.handleMap)
		v1.POST("/map/batch", s.handleMapBatch)
		v1.GET("/suggestions", s.handleSuggestions)
		v1.GET("/specialties", s.handleListSpecialties)
		v1.GET("/overrides", s.handleListOverrides)
		v1.POST("/overrides", s.handleSaveOverride)
		v1.GET("/cache/stats", s.handleCacheStats)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"taxonomy":  s.deps.Index.Version(),
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

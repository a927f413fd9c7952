// Package http exposes the purchase request workflow over a JSON API.
// Handlers stay thin and translate requests into engine and service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-workflow/internal/application/service"
	"github.com/garyjia/procurement-workflow/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports component status keyed by component name
type HealthFunc func(ctx context.Context) map[string]string

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string
	CORSOrigins  []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	engine workflow.Engine,
	requests service.RequestService,
	exports service.ExportService,
	health HealthFunc,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(engine, requests, exports, health, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(s.config.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = s.config.CORSOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	s.router.Use(cors.New(corsConfig))
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.config.JWTSecret))
	{
		api.POST("/requests", h.SubmitRequest)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.PUT("/requests/:id", h.ResubmitRequest)
		api.POST("/requests/:id/cancel", h.CancelRequest)
		api.POST("/requests/:id/approve", h.ApproveRequest)
		api.POST("/requests/:id/reject", h.RejectRequest)
		api.POST("/requests/:id/request-info", h.RequestInfo)

		api.GET("/stats", h.GetStats)
		api.POST("/metadata", h.PreviewMetadata)

		admin := api.Group("/admin")
		{
			admin.POST("/requests/:id/purchase", h.MarkPurchased)
			admin.POST("/requests/:id/retry-cart", h.RetryCart)
			admin.GET("/orders", h.ListOrders)
			admin.GET("/orders/export", h.ExportOrders)
		}
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Package api implements the HTTP API for the ingestion service.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

const readHeaderTimeout = 10 * time.Second

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(
	log logger.Interface,
	ingestHandler *IngestHandler,
	healthHandler *HealthHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/health", healthHandler.Check)

	v1 := router.Group("/api/v1")
	v1.POST("/ingest", ingestHandler.RunFull)
	v1.POST("/ingest/drives", ingestHandler.RunDrives)
	v1.POST("/ingest/pages", ingestHandler.RunPages)

	return router
}

// NewHTTPServer builds the HTTP server around the configured router.
func NewHTTPServer(
	cfg config.ServerConfig,
	log logger.Interface,
	ingestHandler *IngestHandler,
	healthHandler *HealthHandler,
) *http.Server {
	router := SetupRouter(log, ingestHandler, healthHandler)

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// loggingMiddleware logs each HTTP request after it completes.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status_code", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start))
	}
}

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshaikhIntervision/Brinkmann/internal/auth"
	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// Runner triggers ingestion runs. Implemented by ingest.Orchestrator.
type Runner interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
	RunDrives(ctx context.Context) (*domain.RunSummary, error)
	RunPages(ctx context.Context) (*domain.RunSummary, error)
}

// IngestHandler handles ingestion trigger requests. Runs execute
// synchronously on the request; the caller sees the final summary.
type IngestHandler struct {
	runner Runner
	log    logger.Interface
}

// NewIngestHandler creates an ingestion handler.
func NewIngestHandler(runner Runner, log logger.Interface) *IngestHandler {
	return &IngestHandler{runner: runner, log: log}
}

// RunFull handles POST /api/v1/ingest
func (h *IngestHandler) RunFull(c *gin.Context) {
	h.respond(c, "ingestion completed")(h.runner.Run(c.Request.Context()))
}

// RunDrives handles POST /api/v1/ingest/drives
func (h *IngestHandler) RunDrives(c *gin.Context) {
	h.respond(c, "drive ingestion completed")(h.runner.RunDrives(c.Request.Context()))
}

// RunPages handles POST /api/v1/ingest/pages
func (h *IngestHandler) RunPages(c *gin.Context) {
	h.respond(c, "page scraping completed")(h.runner.RunPages(c.Request.Context()))
}

// respond maps a run result onto an HTTP response. Run errors map to 502;
// a credential failure hides the upstream detail.
func (h *IngestHandler) respond(c *gin.Context, status string) func(*domain.RunSummary, error) {
	return func(summary *domain.RunSummary, err error) {
		if err != nil {
			h.log.Error("ingestion run failed", "error", err)
			var authErr *auth.AuthError
			if errors.As(err, &authErr) {
				c.JSON(http.StatusBadGateway, gin.H{"error": "credential refresh failed"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"summary": summary,
		})
	}
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

const healthCheckTimeout = 5 * time.Second

// StoreChecker verifies object store connectivity.
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports service liveness: database and object store
// reachability. Either dependency may be nil when the deployment does not
// carry it.
type HealthHandler struct {
	db    *sqlx.DB
	store StoreChecker
	log   logger.Interface
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db *sqlx.DB, store StoreChecker, log logger.Interface) *HealthHandler {
	return &HealthHandler{db: db, store: store, log: log}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Error("database health check failed", "error", err)
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			h.log.Error("object store health check failed", "error", err)
			checks["object_store"] = "unreachable"
			healthy = false
		} else {
			checks["object_store"] = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

// Package health serves the liveness endpoint, pinging the stores the API cannot run without.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/pkg/response"
)

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// Handler runs every probe under a shared timeout.
type Handler struct {
	probes  map[string]Probe
	timeout time.Duration
	logger  *zap.Logger
}

// NewHandler creates a health handler. A zero timeout means two seconds.
func NewHandler(probes map[string]Probe, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{probes: probes, timeout: timeout, logger: logger}
}

// Check handles GET /health. Any failing probe turns the answer into 503.
func (h *Handler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	healthy := true
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			h.logger.Warn("health probe failed", zap.String("probe", name), zap.Error(err))
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Data: gin.H{"status": "degraded", "checks": checks}, Error: "dependency unavailable"})
		return
	}
	response.OK(c, gin.H{"status": "ok", "checks": checks})
}

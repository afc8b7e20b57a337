package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping           func() error
	isShuttingDown func() bool
}

// NewHealthHandler accepts nil for either probe.
func NewHealthHandler(ping func() error, isShuttingDown func() bool) *HealthHandler {
	return &HealthHandler{ping: ping, isShuttingDown: isShuttingDown}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports not_ready while the process drains or the registration store is unreachable.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.isShuttingDown != nil && h.isShuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "shutting down"})
		return
	}

	if h.ping != nil {
		if err := h.ping(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "store unreachable"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}

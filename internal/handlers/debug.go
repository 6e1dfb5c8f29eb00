package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-probe", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		requestID := requestIDFromContext(c)
		emitter.Emit(c.Request.Context(), "INFO", "audit probe", requestID, userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestID})
	})
}

package monitoring

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthServer struct {
	monitor *Monitor
}

func NewHealthServer(monitor *Monitor) *HealthServer {
	return &HealthServer{monitor: monitor}
}

// Register mounts /health and /status on r.
func (h *HealthServer) Register(r gin.IRoutes) {
	r.GET("/health", h.healthHandler)
	r.GET("/status", h.statusHandler)
}

func (h *HealthServer) healthHandler(c *gin.Context) {
	if h.monitor.IsHealthy() {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "summary": h.monitor.GetStatusSummary()})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "summary": h.monitor.GetStatusSummary()})
}

func (h *HealthServer) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

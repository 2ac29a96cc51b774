package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics       *service.MetricsService
	notifications *service.NotificationService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, notifications *service.NotificationService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, notifications: notifications}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.notifications != nil {
		body["queue_depth"] = h.notifications.QueueDepth()
	}
	c.JSON(http.StatusOK, body)
}

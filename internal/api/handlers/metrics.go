package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler struct {
	registry *prometheus.Registry
}

// NewMetricsHandler creates a MetricsHandler for the given registry.
func NewMetricsHandler(registry *prometheus.Registry) *MetricsHandler {
	return &MetricsHandler{registry: registry}
}

// RegisterPublicRoutes registers the metrics route without authentication.
func (h *MetricsHandler) RegisterPublicRoutes(r *gin.Engine) {
	handler := promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
	r.GET("/metrics", gin.WrapH(handler))
}

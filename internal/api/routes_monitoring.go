package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshapi/freshapi/internal/app"
)

func registerMetricsRoutes(r *gin.Engine, cfg app.PrometheusConfig) {
	if !cfg.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}

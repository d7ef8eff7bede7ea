package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/monitoring"
)

// Health reports overall readiness without the per-check breakdown.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.EvaluateReadiness(requestContext(c))
		c.JSON(reportStatus(report), gin.H{
			"success":    report.Success,
			"status":     report.Status,
			"checked_at": time.Now().UTC(),
		})
	}
}

// HealthLive serves GET /health/live.
func HealthLive(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateLiveness(requestContext(c)))
	}
}

// HealthReady serves GET /health/ready.
func HealthReady(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateReadiness(requestContext(c)))
	}
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(reportStatus(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}

func reportStatus(report monitoring.HealthReport) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

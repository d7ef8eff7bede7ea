package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/handlers"
	"github.com/freshapi/freshapi/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB) {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.DatabaseCheck(db))
	manager.RegisterReadiness(monitoring.VocabularyCheck(db))

	registerHealthEndpoints(r, manager)
	registerHealthEndpoints(r.Group("/api"), manager)
}

func registerHealthEndpoints(router gin.IRouter, manager *monitoring.HealthManager) {
	router.GET("/health", handlers.Health(manager))
	router.GET("/health/live", handlers.HealthLive(manager))
	router.GET("/health/ready", handlers.HealthReady(manager))
}

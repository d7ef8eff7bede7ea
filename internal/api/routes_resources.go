package api

import (
	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/handlers"
	"github.com/freshapi/freshapi/internal/middleware"
)

func registerResourceRoutes(api *gin.RouterGroup, handler *handlers.ResourceHandler, guard *guards.Guard, resource string) {
	resources := api.Group("/resources")
	resources.Use(middleware.RequireAdmin(guard, resource))
	{
		resources.GET("", handler.List)
		resources.POST("", handler.Create)
		resources.POST("/:name/permissions", handler.CreatePermission)
	}
}

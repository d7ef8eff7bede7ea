package api

import (
	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/handlers"
	"github.com/freshapi/freshapi/internal/middleware"
)

func registerPermissionRoutes(api *gin.RouterGroup, handler *handlers.PermissionHandler, guard *guards.Guard, resource string) {
	perms := api.Group("/permissions")
	{
		perms.GET("/my", handler.MyPermissions)
		perms.GET("/registry", middleware.RequireAdmin(guard, resource), handler.Registry)
		perms.POST("/:id/activate", middleware.RequireAdmin(guard, resource), handler.Activate)
		perms.POST("/:id/deactivate", middleware.RequireAdmin(guard, resource), handler.Deactivate)
	}
}

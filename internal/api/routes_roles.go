package api

import (
	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/handlers"
	"github.com/freshapi/freshapi/internal/middleware"
)

func registerRoleRoutes(api *gin.RouterGroup, handler *handlers.RoleHandler, guard *guards.Guard, resource string) {
	roles := api.Group("/roles")
	roles.Use(middleware.RequireAdmin(guard, resource))
	{
		roles.GET("", handler.List)
		roles.POST("", handler.Create)
		roles.PATCH("/:id", handler.Update)
		roles.POST("/:id/activate", handler.Activate)
		roles.POST("/:id/deactivate", handler.Deactivate)
		roles.PUT("/:id/permissions/:permissionID", handler.AssignPermission)
		roles.DELETE("/:id/permissions/:permissionID", handler.RemovePermission)
	}
}

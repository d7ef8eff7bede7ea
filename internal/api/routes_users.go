package api

import (
	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/handlers"
	"github.com/freshapi/freshapi/internal/middleware"
	"github.com/freshapi/freshapi/internal/permissions"
)

// Per-user routes only check user_management here; the service adds the
// hierarchy check against the target.
func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, guard *guards.Guard, resource string) {
	manage := middleware.RequirePermission(guard, resource, permissions.ActionUserManagement)

	users := api.Group("/users")
	{
		users.GET("", manage, handler.List)
		// Users may read their own permissions; the service decides.
		users.GET("/:id/permissions", handler.Permissions)
		users.PUT("/:id/role", manage, handler.AssignRole)
		users.POST("/:id/permissions/:permissionID/grant", manage, handler.Grant)
		users.POST("/:id/permissions/:permissionID/deny", manage, handler.Deny)
		users.POST("/:id/permissions/:permissionID/revoke", manage, handler.Revoke)
		users.DELETE("/:id/permissions/:permissionID", manage, handler.Clear)
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/pkg/response"
)

// RequirePermission aborts the request unless the caller holds action on resource.
func RequirePermission(guard *guards.Guard, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := guard.RequirePermission(c.Request.Context(), resource, action); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequirePermission for the admin action.
func RequireAdmin(guard *guards.Guard, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := guard.RequireAdmin(c.Request.Context(), resource); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

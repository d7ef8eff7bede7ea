package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/permissions"
)

// Loaders attaches a fresh set of permission loaders to every request. The
// loaders live exactly as long as the request, so no permission answer is
// cached across requests.
func Loaders(resolver *permissions.Resolver, opts permissions.LoaderOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		loaders := permissions.NewLoaders(ctx, resolver, opts)
		c.Request = c.Request.WithContext(permissions.WithLoaders(ctx, loaders))
		c.Next()
	}
}

package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestContext returns the request context, which carries the caller
// identity and permission loaders attached by middleware.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// pathID returns a trimmed path parameter. An empty id is passed through so
// the service guard still runs before the lookup reports NotFound.
func pathID(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}

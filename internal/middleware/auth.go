package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/pkg/errors"
	"github.com/freshapi/freshapi/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// Auth enforces JWT authentication using the supplied JWT service. The verified
// identity is stored on the request context so guards below the HTTP layer can
// read it.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(iauth.WithIdentity(c.Request.Context(), claims.Identity()))

		c.Next()
	}
}

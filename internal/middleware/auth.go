package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/roster/internal/auth"
	appErrors "github.com/rosterhq/roster/pkg/errors"
	"github.com/rosterhq/roster/pkg/response"
)

// ContextUserIDKey is the gin context key holding the authenticated user id.
const ContextUserIDKey = "auth.user_id"

// Auth validates the bearer token and stores the caller's identity in the
// request context.
func Auth(jwt *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateSignInToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

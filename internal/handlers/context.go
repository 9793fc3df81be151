package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/rosterhq/roster/internal/middleware"
)

// currentUserID extracts the authenticated user's id from the request
// context, returning an empty string for unauthenticated requests.
func currentUserID(c *gin.Context) string {
	value, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
)

// RequireRole returns a middleware that allows callers holding any of the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := auth.From(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		for _, r := range roles {
			if a.HasRole(r) {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Forbidden")
		c.Abort()
	}
}

package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
)

// RoleLoader returns a user's role tags; nil on failure.
type RoleLoader interface {
	Roles(ctx context.Context, userID uuid.UUID) []models.Role
}

// SessionConfig configures session parsing.
type SessionConfig struct {
	JWT        *auth.JWTService
	CookieName string
	Roles      RoleLoader
}

// Session returns a middleware that requires a valid session and sets the auth context.
func Session(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, cfg) {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalSession sets the auth context when a valid session is present and never rejects.
func OptionalSession(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, cfg)
		c.Next()
	}
}

func authenticate(c *gin.Context, cfg SessionConfig) bool {
	token := sessionToken(c, cfg.CookieName)
	if token == "" {
		return false
	}
	claims, err := cfg.JWT.Validate(token)
	if err != nil {
		return false
	}
	var roles []models.Role
	if cfg.Roles != nil {
		roles = cfg.Roles.Roles(c.Request.Context(), claims.UserID)
	}
	auth.Set(c, &auth.Context{UserID: claims.UserID, Email: claims.Email, Roles: roles})
	return true
}

// sessionToken reads the session cookie, falling back to an Authorization bearer header.
func sessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/models"
)

// ContextKey is the gin context key holding the request's *Context.
const ContextKey = "auth_context"

// Context is the authenticated caller, threaded through every handler.
type Context struct {
	UserID uuid.UUID
	Email  string
	Roles  []models.Role
}

// HasRole reports whether the caller holds role r.
func (a *Context) HasRole(r models.Role) bool {
	for _, have := range a.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Set stores the auth context on the gin context.
func Set(c *gin.Context, a *Context) { c.Set(ContextKey, a) }

// From returns the auth context, if the request is authenticated.
func From(c *gin.Context) (*Context, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	a, ok := v.(*Context)
	return a, ok && a != nil
}

// MustFrom returns the auth context and panics when absent; use behind the session middleware.
func MustFrom(c *gin.Context) *Context {
	a, ok := From(c)
	if !ok {
		panic("auth: no auth context on request")
	}
	return a
}

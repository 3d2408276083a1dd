package access

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
)

// ContextDecision is the gin context key holding the granting Decision.
const ContextDecision = "access_decision"

// SubjectOf converts an auth context into a resolver subject.
func SubjectOf(a *auth.Context) Subject {
	return Subject{UserID: a.UserID, Roles: a.Roles}
}

// Check resolves access for the current request. On deny it writes 401/403,
// aborts, and returns false.
func (r *Resolver) Check(c *gin.Context, res Resource, capability models.Capability) bool {
	a, ok := auth.From(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		c.Abort()
		return false
	}
	d := r.Resolve(c.Request.Context(), SubjectOf(a), res, capability)
	if !d.Granted {
		response.Forbidden(c, "Forbidden")
		c.Abort()
		return false
	}
	c.Set(ContextDecision, d)
	return true
}

// Require returns a middleware that checks capability on the resource whose id is the
// named path parameter.
func (r *Resolver) Require(kind Kind, param string, capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(param))
		if err != nil {
			response.BadRequest(c, "invalid "+string(kind)+" id")
			c.Abort()
			return
		}
		if !r.Check(c, Resource{Kind: kind, ID: id}, capability) {
			return
		}
		c.Next()
	}
}

// RequireAny is Require for a list of capabilities; the first one granted admits the request.
func (r *Resolver) RequireAny(kind Kind, param string, capabilities ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(param))
		if err != nil {
			response.BadRequest(c, "invalid "+string(kind)+" id")
			c.Abort()
			return
		}
		a, ok := auth.From(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		res := Resource{Kind: kind, ID: id}
		for _, capability := range capabilities {
			if d := r.Resolve(c.Request.Context(), SubjectOf(a), res, capability); d.Granted {
				c.Set(ContextDecision, d)
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Forbidden")
		c.Abort()
	}
}

// DecisionFrom returns the decision recorded by Check, if any.
func DecisionFrom(c *gin.Context) (Decision, bool) {
	v, ok := c.Get(ContextDecision)
	if !ok {
		return Decision{}, false
	}
	d, ok := v.(Decision)
	return d, ok
}

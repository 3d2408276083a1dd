package access

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/models"
)

// Resolver answers access questions by loading facts from a Store and
// applying Decide. Lookup failures deny.
type Resolver struct {
	store  Store
	logger *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve decides whether sub may exercise c on res.
func (r *Resolver) Resolve(ctx context.Context, sub Subject, res Resource, c models.Capability) Decision {
	if sub.UserID == uuid.Nil {
		return denied
	}
	// Superadmin needs no resource lookup.
	if sub.HasRole(models.RoleSuperadmin) {
		return Decide(sub, Facts{}, c)
	}
	facts, err := r.store.Facts(ctx, res, sub.UserID)
	if err != nil {
		r.logger.Warn("access lookup failed, denying",
			zap.String("resource", res.String()),
			zap.String("user_id", sub.UserID.String()),
			zap.String("capability", string(c)),
			zap.Error(err))
		return denied
	}
	return Decide(sub, facts, c)
}

// ResolveUser is Resolve for callers that only have a user id; roles are loaded first.
func (r *Resolver) ResolveUser(ctx context.Context, userID uuid.UUID, res Resource, c models.Capability) Decision {
	roles, err := r.store.UserRoles(ctx, userID)
	if err != nil {
		r.logger.Warn("role lookup failed, continuing without roles", zap.String("user_id", userID.String()), zap.Error(err))
		roles = nil
	}
	return r.Resolve(ctx, Subject{UserID: userID, Roles: roles}, res, c)
}

// Roles returns the user's role tags, or nil when they cannot be read.
func (r *Resolver) Roles(ctx context.Context, userID uuid.UUID) []models.Role {
	roles, err := r.store.UserRoles(ctx, userID)
	if err != nil {
		r.logger.Warn("role lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	return roles
}

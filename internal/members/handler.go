// Package members serves the membership endpoints shared by organizers and venues.
package members

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
)

// Store is the membership persistence used by Handler.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Member, error)
	AddByEmail(ctx context.Context, tenantID uuid.UUID, email, role string, perms models.Permissions) (*models.Member, error)
	Update(ctx context.Context, tenantID, userID uuid.UUID, role string, perms models.Permissions) (*models.Member, error)
	Remove(ctx context.Context, tenantID, userID uuid.UUID) error
}

// AddRequest is the body for POST /<tenant>/:id/members.
type AddRequest struct {
	Email       string             `json:"email" binding:"required,email"`
	Role        string             `json:"role"`
	Permissions models.Permissions `json:"permissions"`
}

// UpdateRequest is the body for PUT /<tenant>/:id/members/:user_id.
type UpdateRequest struct {
	Role        string             `json:"role"`
	Permissions models.Permissions `json:"permissions"`
}

// Handler serves member endpoints. Routes are expected behind an access check on :id.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a members handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /<tenant>/:id/members.
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("list members failed", zap.Error(err))
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, list)
}

// Add handles POST /<tenant>/:id/members.
func (h *Handler) Add(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "valid email required")
		return
	}
	role, ok := memberRole(req.Role)
	if !ok {
		response.BadRequest(c, "role must be admin or staff")
		return
	}
	m, err := h.store.AddByEmail(c.Request.Context(), tenantID, req.Email, role, req.Permissions)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(c, "no user with that email")
		case errors.Is(err, ErrAlreadyMember):
			response.Conflict(c, "user is already a member")
		default:
			h.logger.Error("add member failed", zap.Error(err))
			response.Internal(c, "failed to add member")
		}
		return
	}
	response.Created(c, m)
}

// Update handles PUT /<tenant>/:id/members/:user_id.
func (h *Handler) Update(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	role, ok := memberRole(req.Role)
	if !ok {
		response.BadRequest(c, "role must be admin or staff")
		return
	}
	m, err := h.store.Update(c.Request.Context(), tenantID, userID, role, req.Permissions)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "member not found")
			return
		}
		h.logger.Error("update member failed", zap.Error(err))
		response.Internal(c, "failed to update member")
		return
	}
	response.OK(c, m)
}

// Remove handles DELETE /<tenant>/:id/members/:user_id.
func (h *Handler) Remove(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	if err := h.store.Remove(c.Request.Context(), tenantID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "member not found")
			return
		}
		response.Internal(c, "failed to remove member")
		return
	}
	response.NoContent(c)
}

func memberRole(role string) (string, bool) {
	switch role {
	case "":
		return models.MemberRoleStaff, true
	case models.MemberRoleAdmin, models.MemberRoleStaff:
		return role, true
	}
	return "", false
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

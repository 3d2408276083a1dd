package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
	"github.com/crowdstack/backend/pkg/utils"
)

// UserStore is the persistence the auth handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	Roles(ctx context.Context, userID uuid.UUID) ([]models.Role, error)
	AddRole(ctx context.Context, userID uuid.UUID, role models.Role) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role models.Role) error
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	// Role optionally self-assigns one non-privileged role at signup.
	Role string `json:"role"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RoleRequest is the body for POST /admin/users/:id/roles.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// TokenResponse is the auth response with the session token.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  UserStore
	jwt    *JWTService
	cookie CookieConfig
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users UserStore, jwt *JWTService, cookie CookieConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, cookie: cookie, logger: logger}
}

var selfAssignableRoles = map[string]models.Role{
	"event_organizer": models.RoleEventOrganizer,
	"venue_admin":     models.RoleVenueAdmin,
	"dj":              models.RoleDJ,
	"promoter":        models.RolePromoter,
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var role models.Role
	if req.Role != "" {
		r, ok := selfAssignableRoles[req.Role]
		if !ok {
			response.BadRequest(c, "invalid role")
			return
		}
		role = r
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	ctx := c.Request.Context()
	user, err := h.users.Create(ctx, req.Email, hash, req.FullName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, "email already registered")
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	var roles []models.Role
	if role != "" {
		if err := h.users.AddRole(ctx, user.ID, role); err != nil {
			h.logger.Error("assign signup role failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		} else {
			roles = []models.Role{role}
		}
	}

	token, err := h.startSession(c, user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic(roles)})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	roles, err := h.users.Roles(ctx, user.ID)
	if err != nil {
		h.logger.Warn("load roles at login failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
	token, err := h.startSession(c, user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic(roles)})
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	response.NoContent(c)
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	a := MustFrom(c)
	user, err := h.users.GetByID(c.Request.Context(), a.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Unauthorized(c, "session user no longer exists")
			return
		}
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, user.ToPublic(a.Roles))
}

// List handles GET /admin/users (superadmin).
func (h *Handler) List(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// GrantRole handles POST /admin/users/:id/roles (superadmin).
func (h *Handler) GrantRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "role required")
		return
	}
	role := models.Role(req.Role)
	if !models.ValidRole(role) {
		response.BadRequest(c, "invalid role")
		return
	}
	ctx := c.Request.Context()
	if _, err := h.users.GetByID(ctx, userID); err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if err := h.users.AddRole(ctx, userID, role); err != nil {
		response.Internal(c, "failed to grant role")
		return
	}
	h.logger.Info("role granted",
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
		zap.String("granted_by", MustFrom(c).UserID.String()))
	response.Created(c, gin.H{"user_id": userID, "role": role})
}

// RevokeRole handles DELETE /admin/users/:id/roles/:role (superadmin).
func (h *Handler) RevokeRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	role := models.Role(c.Param("role"))
	if !models.ValidRole(role) {
		response.BadRequest(c, "invalid role")
		return
	}
	a := MustFrom(c)
	if role == models.RoleSuperadmin && userID == a.UserID {
		response.BadRequest(c, "cannot revoke your own superadmin role")
		return
	}
	if err := h.users.RemoveRole(c.Request.Context(), userID, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "role not held")
			return
		}
		response.Internal(c, "failed to revoke role")
		return
	}
	response.NoContent(c)
}

func (h *Handler) startSession(c *gin.Context, user *models.User) (string, error) {
	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		h.logger.Error("generate session token failed", zap.Error(err))
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.jwt.TTL().Seconds()), "/", "", h.cookie.Secure, true)
	return token, nil
}

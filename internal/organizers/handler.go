package organizers

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
)

// Slug must be lowercase alphanumeric and hyphens only, 2–64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Store is the organizer persistence used by Handler.
type Store interface {
	Create(ctx context.Context, name, slug string, createdBy uuid.UUID) (*models.Organizer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organizer, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organizer, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Organizer, error)
}

// Handler handles organizer HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an organizers handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// CreateRequest is the body for POST /organizers.
type CreateRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// UpdateRequest is the body for PUT /organizers/:id.
type UpdateRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /organizers. The caller becomes creator and full_admin member.
func (h *Handler) Create(c *gin.Context) {
	a := auth.MustFrom(c)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	body.Slug = strings.ToLower(strings.TrimSpace(body.Slug))
	if !slugRegex.MatchString(body.Slug) {
		response.BadRequest(c, "slug must be 2–64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 255 {
		response.BadRequest(c, "name must be 1–255 characters")
		return
	}
	o, err := h.store.Create(c.Request.Context(), body.Name, body.Slug, a.UserID)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			response.Conflict(c, "An organizer with this slug already exists")
			return
		}
		h.logger.Error("create organizer failed", zap.Error(err))
		response.Internal(c, "failed to create organizer")
		return
	}
	response.Created(c, o)
}

// Get handles GET /organizers/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organizer id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Organizer not found")
			return
		}
		response.Internal(c, "failed to load organizer")
		return
	}
	response.OK(c, o)
}

// ListMine handles GET /organizers.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.store.ListForUser(c.Request.Context(), auth.MustFrom(c).UserID)
	if err != nil {
		response.Internal(c, "failed to load organizers")
		return
	}
	response.OK(c, list)
}

// Update handles PUT /organizers/:id. Requires edit_events on the organizer.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organizer id")
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		response.BadRequest(c, "name required")
		return
	}
	o, err := h.store.UpdateName(c.Request.Context(), id, strings.TrimSpace(body.Name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Organizer not found")
			return
		}
		response.Internal(c, "failed to update organizer")
		return
	}
	response.OK(c, o)
}

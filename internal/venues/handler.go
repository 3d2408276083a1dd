package venues

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

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Store is the venue persistence used by Handler.
type Store interface {
	Create(ctx context.Context, v *models.Venue) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Venue, error)
	Update(ctx context.Context, id uuid.UUID, name, address string) (*models.Venue, error)
	PendingEvents(ctx context.Context, venueID uuid.UUID) ([]models.Event, error)
}

// Handler handles venue HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a venues handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// CreateRequest is the body for POST /venues.
type CreateRequest struct {
	Name    string `json:"name" binding:"required"`
	Slug    string `json:"slug" binding:"required"`
	Address string `json:"address"`
}

// UpdateRequest is the body for PUT /venues/:id.
type UpdateRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// Create handles POST /venues.
func (h *Handler) Create(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	v := &models.Venue{
		Name:      strings.TrimSpace(body.Name),
		Slug:      strings.ToLower(strings.TrimSpace(body.Slug)),
		Address:   strings.TrimSpace(body.Address),
		CreatedBy: auth.MustFrom(c).UserID,
	}
	if !slugRegex.MatchString(v.Slug) {
		response.BadRequest(c, "slug must be 2–64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	if v.Name == "" {
		response.BadRequest(c, "name required")
		return
	}
	if err := h.store.Create(c.Request.Context(), v); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			response.Conflict(c, "A venue with this slug already exists")
			return
		}
		h.logger.Error("create venue failed", zap.Error(err))
		response.Internal(c, "failed to create venue")
		return
	}
	response.Created(c, v)
}

// Get handles GET /venues/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	v, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Venue not found")
			return
		}
		response.Internal(c, "failed to load venue")
		return
	}
	response.OK(c, v)
}

// ListMine handles GET /venues.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.store.ListForUser(c.Request.Context(), auth.MustFrom(c).UserID)
	if err != nil {
		response.Internal(c, "failed to load venues")
		return
	}
	response.OK(c, list)
}

// Update handles PUT /venues/:id. Requires edit_venue.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		response.BadRequest(c, "name required")
		return
	}
	v, err := h.store.Update(c.Request.Context(), id, strings.TrimSpace(body.Name), strings.TrimSpace(body.Address))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Venue not found")
			return
		}
		response.Internal(c, "failed to update venue")
		return
	}
	response.OK(c, v)
}

// PendingEvents handles GET /venues/:id/pending-events. Requires approve_events.
func (h *Handler) PendingEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	list, err := h.store.PendingEvents(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load pending events")
		return
	}
	response.OK(c, list)
}

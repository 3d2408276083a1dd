// Package events serves event creation, listing, venue approval, ownership
// transfer and flyer upload.
package events

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/access"
	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/response"
	"github.com/crowdstack/backend/pkg/storage"
)

// Store is the event persistence used by Handler.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListPublicUpcoming(ctx context.Context, since time.Time, limit int) ([]models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, id uuid.UUID, ch Changes) (*models.Event, error)
	SetVenueApproval(ctx context.Context, id uuid.UUID, status models.VenueApprovalStatus) (*models.Event, error)
	IsOrganizerMember(ctx context.Context, organizerID, userID uuid.UUID) (bool, error)
	TransferOwner(ctx context.Context, id, newOwner uuid.UUID) error
	SetFlyer(ctx context.Context, id uuid.UUID, url, key string) (string, error)
}

// ObjectStore holds uploaded flyers.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	Delete(ctx context.Context, key string) error
	GeneratePresignedDownloadURL(ctx context.Context, key string) (string, error)
}

const publicListLimit = 100

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)
var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Handler handles event HTTP endpoints.
type Handler struct {
	store    Store
	resolver *access.Resolver
	objects  ObjectStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates an events handler. objects may be nil when S3 is not configured.
func NewHandler(store Store, resolver *access.Resolver, objects ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, resolver: resolver, objects: objects, logger: logger, now: time.Now}
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	OrganizerID string  `json:"organizer_id" binding:"required,uuid"`
	VenueID     *string `json:"venue_id"`
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	StartsAt    string  `json:"starts_at" binding:"required"`
	EndsAt      *string `json:"ends_at"`
	Capacity    int     `json:"capacity" binding:"min=0"`
}

// UpdateRequest is the body for PATCH /events/:id.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	StartsAt    *string `json:"starts_at"`
	EndsAt      *string `json:"ends_at"`
	Capacity    *int    `json:"capacity"`
}

// VenueApprovalRequest is the body for POST /events/:id/venue-approval.
type VenueApprovalRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransferRequest is the body for POST /events/:id/transfer.
type TransferRequest struct {
	NewOwnerUserID string `json:"new_owner_user_id" binding:"required,uuid"`
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func slugFor(name string) string {
	base := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}
	if base == "" {
		base = "event"
	}
	return base + "-" + uuid.NewString()[:8]
}

// Create handles POST /events. Requires edit_events on the organizer.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	organizerID := uuid.MustParse(req.OrganizerID)
	if !h.resolver.Check(c, access.Organizer(organizerID), models.CapEditEvents) {
		return
	}
	a := auth.MustFrom(c)

	e := &models.Event{
		OrganizerID:         organizerID,
		Name:                strings.TrimSpace(req.Name),
		Description:         req.Description,
		Capacity:            req.Capacity,
		OwnerUserID:         a.UserID,
		CreatedBy:           a.UserID,
		VenueApprovalStatus: models.VenueApprovalNotRequired,
	}
	var err error
	if e.StartsAt, err = parseTime(req.StartsAt); err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil || t.Before(e.StartsAt) {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		e.EndsAt = &t
	}
	e.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if e.Slug == "" {
		e.Slug = slugFor(e.Name)
	} else if !slugRegex.MatchString(e.Slug) {
		response.BadRequest(c, "slug must be 2–64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	if req.VenueID != nil && *req.VenueID != "" {
		venueID, err := uuid.Parse(*req.VenueID)
		if err != nil {
			response.BadRequest(c, "invalid venue_id")
			return
		}
		e.VenueID = &venueID
		e.VenueApprovalStatus = models.VenueApprovalPending
		// A creator who can approve for the venue approves implicitly.
		if h.resolver.Resolve(c.Request.Context(), access.SubjectOf(a), access.Venue(venueID), models.CapApproveEvents).Granted {
			e.VenueApprovalStatus = models.VenueApprovalApproved
		}
	}

	if err := h.store.Create(c.Request.Context(), e); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			response.Conflict(c, "An event with this slug already exists")
			return
		}
		h.logger.Error("create event failed", zap.Error(err), zap.String("organizer_id", organizerID.String()))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Get handles GET /events/:id. Events not yet visible require edit_events.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	if !e.Visible() {
		if _, ok := auth.From(c); !ok {
			response.NotFound(c, "event not found")
			return
		}
		if !h.resolver.Check(c, access.Event(id), models.CapEditEvents) {
			return
		}
	}
	response.OK(c, e)
}

// ListPublic handles GET /events.
func (h *Handler) ListPublic(c *gin.Context) {
	list, err := h.store.ListPublicUpcoming(c.Request.Context(), h.now(), publicListLimit)
	if err != nil {
		response.Internal(c, "failed to load events")
		return
	}
	response.OK(c, list)
}

// ListByOrganizer handles GET /organizers/:id/events. Requires edit_events on the organizer.
func (h *Handler) ListByOrganizer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organizer id")
		return
	}
	list, err := h.store.ListByOrganizer(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load events")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /events/:id. Requires edit_events; rejected once closed out.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ch := Changes{Description: req.Description, Capacity: req.Capacity}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			response.BadRequest(c, "name cannot be empty")
			return
		}
		ch.Name = &name
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		response.BadRequest(c, "capacity cannot be negative")
		return
	}
	if req.StartsAt != nil {
		t, err := parseTime(*req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		ch.StartsAt = &t
	}
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		ch.EndsAt = &t
	}
	if ch.StartsAt != nil && ch.EndsAt != nil && ch.EndsAt.Before(*ch.StartsAt) {
		response.BadRequest(c, "ends_at must not be before starts_at")
		return
	}
	e, err := h.store.Update(c.Request.Context(), id, ch)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "event not found")
		case errors.Is(err, ErrInvalidWindow):
			response.BadRequest(c, "ends_at must not be before starts_at")
		case errors.Is(err, ErrLocked):
			response.Conflict(c, "event is closed out")
		default:
			h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", id.String()))
			response.Internal(c, "failed to update event")
		}
		return
	}
	response.OK(c, e)
}

// VenueApproval handles POST /events/:id/venue-approval. Requires approve_events on the event's venue.
func (h *Handler) VenueApproval(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req VenueApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status required")
		return
	}
	status := models.VenueApprovalStatus(req.Status)
	if status != models.VenueApprovalApproved && status != models.VenueApprovalRejected {
		response.BadRequest(c, "status must be approved or rejected")
		return
	}
	ctx := c.Request.Context()
	e, err := h.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	if e.VenueID == nil {
		response.BadRequest(c, "event has no venue")
		return
	}
	if !h.resolver.Check(c, access.Venue(*e.VenueID), models.CapApproveEvents) {
		return
	}
	e, err = h.store.SetVenueApproval(ctx, id, status)
	if err != nil {
		response.Internal(c, "failed to update approval")
		return
	}
	h.logger.Info("venue approval recorded",
		zap.String("event_id", id.String()),
		zap.String("status", string(status)),
		zap.String("by", auth.MustFrom(c).UserID.String()))
	response.OK(c, e)
}

// Transfer handles POST /events/:id/transfer. Requires full_admin on the event.
func (h *Handler) Transfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "new_owner_user_id required")
		return
	}
	newOwner := uuid.MustParse(req.NewOwnerUserID)
	ctx := c.Request.Context()
	e, err := h.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	ok, err := h.store.IsOrganizerMember(ctx, e.OrganizerID, newOwner)
	if err != nil {
		response.Internal(c, "failed to check new owner")
		return
	}
	if !ok {
		response.BadRequest(c, "new owner must be a member of the event's organizer")
		return
	}
	if err := h.store.TransferOwner(ctx, id, newOwner); err != nil {
		response.Internal(c, "failed to transfer event")
		return
	}
	e.OwnerUserID = newOwner
	response.OK(c, e)
}

// UploadFlyer handles POST /events/:id/flyer (multipart, field "file"). Requires edit_events.
func (h *Handler) UploadFlyer(c *gin.Context) {
	if h.objects == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file size exceeds 10MB limit")
		return
	}
	if !storage.ValidateImageType(file.Header.Get("Content-Type"), file.Filename) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images allowed")
		return
	}
	contentType := storage.ContentTypeForFilename(file.Filename)

	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	ctx := c.Request.Context()
	key := storage.FlyerKey(id.String(), uuid.NewString()[:8], file.Filename)
	url, err := h.objects.Upload(ctx, key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("event_id", id.String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	oldKey, err := h.store.SetFlyer(ctx, id, url, key)
	if err != nil {
		h.cleanup(key)
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("save flyer failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to save flyer")
		return
	}
	if oldKey != "" && oldKey != key {
		h.cleanup(oldKey)
	}
	response.OK(c, gin.H{"flyer_url": url, "s3_key": key})
}

// FlyerDownload handles GET /events/:id/flyer/download. Requires edit_events.
// Returns a short-lived link to the original upload.
func (h *Handler) FlyerDownload(c *gin.Context) {
	if h.objects == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	if e.FlyerKey == "" {
		response.NotFound(c, "event has no flyer")
		return
	}
	url, err := h.objects.GeneratePresignedDownloadURL(c.Request.Context(), e.FlyerKey)
	if err != nil {
		h.logger.Error("presign flyer failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to sign download url")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// cleanup deletes an object best-effort, outliving the request context.
func (h *Handler) cleanup(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.objects.Delete(ctx, key); err != nil {
		h.logger.Warn("flyer cleanup failed", zap.String("key", key), zap.Error(err))
	}
}


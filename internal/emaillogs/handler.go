// Package emaillogs exposes the delivery log of transactional mail.
package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/internal/registrations"
	"github.com/crowdstack/backend/pkg/queue"
	"github.com/crowdstack/backend/pkg/response"
)

// Store lists email logs.
type Store interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, status string) ([]*models.EmailLog, error)
}

// Registrations looks up the registration and event a resend targets.
type Registrations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	EventVisibility(ctx context.Context, eventID uuid.UUID) (bool, string, error)
}

// Mailer enqueues email jobs.
type Mailer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	store  Store
	regs   Registrations
	mailer Mailer
	logger *zap.Logger
}

// NewHandler creates an email logs handler. mailer may be nil, which disables resend.
func NewHandler(store Store, regs Registrations, mailer Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, regs: regs, mailer: mailer, logger: logger}
}

// ListByEvent handles GET /events/:id/emails?status=sent|failed. Requires view_reports.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	status := c.Query("status")
	if status != "" && !models.ValidEmailLogStatus(status) {
		response.BadRequest(c, "status must be sent or failed")
		return
	}
	logs, err := h.store.ListByEvent(c.Request.Context(), eventID, status)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// ResendRequest is the body for POST /events/:id/emails/resend.
type ResendRequest struct {
	RegistrationID string `json:"registration_id" binding:"required,uuid"`
}

// Resend handles POST /events/:id/emails/resend. Requires edit_events.
func (h *Handler) Resend(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var body ResendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "registration_id required")
		return
	}
	if h.mailer == nil {
		response.ServiceUnavailable(c, "email queue not configured")
		return
	}
	ctx := c.Request.Context()
	reg, err := h.regs.GetByID(ctx, uuid.MustParse(body.RegistrationID))
	if err != nil || reg.EventID != eventID {
		response.NotFound(c, "registration not found")
		return
	}
	_, name, err := h.regs.EventVisibility(ctx, eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := h.mailer.EnqueueEmail(ctx, registrations.ConfirmationEmail(reg, name)); err != nil {
		h.logger.Error("enqueue resend failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		response.Internal(c, "failed to queue email")
		return
	}
	response.OK(c, gin.H{"message": "resend queued"})
}

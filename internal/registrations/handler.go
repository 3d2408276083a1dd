// Package registrations handles public event registration, QR passes and
// door check-in.
package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/access"
	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/internal/realtime"
	"github.com/crowdstack/backend/pkg/queue"
	"github.com/crowdstack/backend/pkg/response"
	"github.com/crowdstack/backend/pkg/utils"
)

// Store is the registration persistence used by Handler.
type Store interface {
	EventInfo(ctx context.Context, eventID uuid.UUID) (EventInfo, error)
	ReferralPromoter(ctx context.Context, eventID uuid.UUID, code string) (*uuid.UUID, error)
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationEntry, error)
	CheckIn(ctx context.Context, reg *models.Registration, by uuid.UUID) (*models.Checkin, error)
	GetCheckin(ctx context.Context, id uuid.UUID) (*models.Checkin, error)
	Undo(ctx context.Context, ch *models.Checkin, by uuid.UUID) (*models.Checkin, error)
	Stats(ctx context.Context, eventID uuid.UUID) (Stats, error)
}

// Mailer enqueues transactional email.
type Mailer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Feed publishes door feed updates.
type Feed interface {
	Publish(eventID uuid.UUID, event string, payload interface{})
}

// RegisterRequest is the body for POST /events/:id/register.
type RegisterRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Ref   string `json:"ref"`
}

// CheckInRequest is the body for POST /events/:id/checkins.
type CheckInRequest struct {
	Pass string `json:"pass" binding:"required"`
}

// Handler handles registration and checkin endpoints.
type Handler struct {
	store    Store
	resolver *access.Resolver
	passes   *PassService
	mailer   Mailer
	feed     Feed
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. mailer and feed may be nil.
func NewHandler(store Store, resolver *access.Resolver, passes *PassService, mailer Mailer, feed Feed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, resolver: resolver, passes: passes, mailer: mailer, feed: feed, logger: logger}
}

// Register handles POST /events/:id/register. Public; only visible events accept registrations.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.store.EventInfo(ctx, eventID)
	if err != nil && !errors.Is(err, ErrEventNotFound) {
		response.Internal(c, "failed to load event")
		return
	}
	if !event.Visible {
		response.NotFound(c, "event not found")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg := &models.Registration{
		ID:            uuid.New(),
		EventID:       eventID,
		AttendeeEmail: strings.ToLower(strings.TrimSpace(req.Email)),
		AttendeeName:  strings.TrimSpace(req.Name),
	}
	// Referral codes are stored upper-case.
	if code := strings.ToUpper(strings.TrimSpace(req.Ref)); code != "" {
		promoterID, err := h.store.ReferralPromoter(ctx, eventID, code)
		if err != nil {
			h.logger.Warn("referral lookup failed, registering without attribution",
				zap.String("event_id", eventID.String()), zap.String("ref", code), zap.Error(err))
		}
		reg.ReferralPromoterID = promoterID
	}

	pass, err := h.passes.Issue(reg.ID, eventID, event.End())
	if err != nil {
		h.logger.Error("issue pass failed", zap.Error(err))
		response.Internal(c, "failed to issue pass")
		return
	}
	reg.PassTokenHash = utils.HashToken(pass)

	if err := h.store.Create(ctx, reg); err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, "event not found")
		case errors.Is(err, ErrEventFull):
			response.Conflict(c, "event is at capacity")
		case errors.Is(err, ErrAlreadyRegistered):
			response.Conflict(c, "already registered for this event")
		default:
			h.logger.Error("create registration failed", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to register")
		}
		return
	}

	h.sendConfirmation(ctx, reg, event.Name)
	h.publishStats(ctx, eventID)
	response.Created(c, gin.H{
		"registration": reg,
		"pass":         pass,
	})
}

// ConfirmationEmail builds the registration confirmation job for reg.
func ConfirmationEmail(reg *models.Registration, eventName string) queue.EmailPayload {
	return queue.EmailPayload{
		EmailType:      models.EmailTypeRegistrationConfirmation,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		RecipientEmail: reg.AttendeeEmail,
		Subject:        fmt.Sprintf("You're on the list: %s", eventName),
		Body: fmt.Sprintf("Hi %s,\n\nYou're registered for %s. Show the QR pass from your confirmation page at the door.\n",
			reg.AttendeeName, eventName),
	}
}

func (h *Handler) sendConfirmation(ctx context.Context, reg *models.Registration, eventName string) {
	if h.mailer == nil {
		return
	}
	if err := h.mailer.EnqueueEmail(ctx, ConfirmationEmail(reg, eventName)); err != nil {
		h.logger.Warn("enqueue confirmation email failed", zap.String("registration_id", reg.ID.String()), zap.Error(err))
	}
}

func (h *Handler) publishStats(ctx context.Context, eventID uuid.UUID) {
	if h.feed == nil {
		return
	}
	stats, err := h.store.Stats(ctx, eventID)
	if err != nil {
		h.logger.Warn("load door stats failed", zap.String("event_id", eventID.String()), zap.Error(err))
		return
	}
	h.feed.Publish(eventID, realtime.EventCheckinCount, stats)
}

// List handles GET /events/:id/registrations. Requires view_reports.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load registrations")
		return
	}
	response.OK(c, list)
}

// CheckIn handles POST /events/:id/checkins. Requires manage_door.
func (h *Handler) CheckIn(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "pass required")
		return
	}
	claims, err := h.passes.Verify(strings.TrimSpace(req.Pass))
	if err != nil {
		response.BadRequest(c, "invalid pass")
		return
	}
	if claims.EventID != eventID {
		response.BadRequest(c, "pass is for a different event")
		return
	}
	ctx := c.Request.Context()
	reg, err := h.store.GetByID(ctx, claims.RegistrationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	if reg.EventID != eventID || !utils.TokenMatches(strings.TrimSpace(req.Pass), reg.PassTokenHash) {
		response.BadRequest(c, "invalid pass")
		return
	}

	a := auth.MustFrom(c)
	ch, err := h.store.CheckIn(ctx, reg, a.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyCheckedIn):
			response.Conflict(c, "already checked in")
		case errors.Is(err, ErrClosedOut):
			response.Locked(c, "event is closed out")
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, "event not found")
		default:
			h.logger.Error("checkin failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
			response.Internal(c, "failed to check in")
		}
		return
	}
	if h.feed != nil {
		h.feed.Publish(eventID, realtime.EventCheckin, gin.H{
			"checkin_id":      ch.ID,
			"registration_id": reg.ID,
			"attendee_name":   reg.AttendeeName,
		})
	}
	h.publishStats(ctx, eventID)
	response.Created(c, gin.H{"checkin": ch, "attendee_name": reg.AttendeeName})
}

// Undo handles POST /checkins/:id/undo. Requires manage_door on the checkin's event.
func (h *Handler) Undo(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid checkin id")
		return
	}
	ctx := c.Request.Context()
	ch, err := h.store.GetCheckin(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCheckinNotFound) {
			response.NotFound(c, "checkin not found")
			return
		}
		response.Internal(c, "failed to load checkin")
		return
	}
	if !h.resolver.Check(c, access.Event(ch.EventID), models.CapManageDoor) {
		return
	}
	out, err := h.store.Undo(ctx, ch, auth.MustFrom(c).UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyUndone):
			response.Conflict(c, "checkin already undone")
		case errors.Is(err, ErrClosedOut):
			response.Locked(c, "event is closed out")
		default:
			h.logger.Error("undo checkin failed", zap.Error(err), zap.String("checkin_id", id.String()))
			response.Internal(c, "failed to undo checkin")
		}
		return
	}
	if h.feed != nil {
		h.feed.Publish(ch.EventID, realtime.EventCheckinUndone, gin.H{
			"checkin_id":      out.ID,
			"registration_id": out.RegistrationID,
		})
	}
	h.publishStats(ctx, ch.EventID)
	response.OK(c, out)
}

// Stats handles GET /events/:id/checkins/stats. Requires manage_door.
func (h *Handler) Stats(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	stats, err := h.store.Stats(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, stats)
}

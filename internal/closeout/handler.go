// Package closeout locks finished events and manages promoter payouts.
package closeout

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/access"
	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/internal/realtime"
	"github.com/crowdstack/backend/pkg/response"
)

// Store is the closeout persistence used by Handler.
type Store interface {
	Close(ctx context.Context, eventID, by uuid.UUID) (*Summary, error)
	Summary(ctx context.Context, eventID uuid.UUID) (*Summary, error)
	PayoutEvent(ctx context.Context, payoutID uuid.UUID) (uuid.UUID, error)
	MarkPaid(ctx context.Context, payoutID, by uuid.UUID) (*models.Payout, error)
}

// Feed publishes door feed events.
type Feed interface {
	Publish(eventID uuid.UUID, event string, payload interface{})
}

// Handler handles closeout and payout endpoints.
type Handler struct {
	store    Store
	resolver *access.Resolver
	feed     Feed
	logger   *zap.Logger
}

// NewHandler creates a closeout handler. feed may be nil.
func NewHandler(store Store, resolver *access.Resolver, feed Feed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, resolver: resolver, feed: feed, logger: logger}
}

// Close handles POST /events/:id/closeout. Requires closeout_events.
func (h *Handler) Close(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	a := auth.MustFrom(c)
	s, err := h.store.Close(c.Request.Context(), eventID, a.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, "event not found")
		case errors.Is(err, ErrAlreadyClosed):
			response.Conflict(c, "event already closed out")
		default:
			h.logger.Error("closeout failed", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to close out event")
		}
		return
	}
	d, _ := access.DecisionFrom(c)
	h.logger.Info("event closed out",
		zap.String("event_id", eventID.String()),
		zap.String("by", a.UserID.String()),
		zap.String("access_source", string(d.Source)),
		zap.Int("payouts", len(s.Payouts)),
		zap.Int("total_cents", s.TotalCents))
	if h.feed != nil {
		h.feed.Publish(eventID, realtime.EventCloseout, gin.H{"event_id": eventID, "closeout_version": s.Version})
	}
	response.OK(c, s)
}

// Summary handles GET /events/:id/closeout. Requires view_reports.
func (h *Handler) Summary(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	s, err := h.store.Summary(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("closeout summary failed", zap.Error(err))
		response.Internal(c, "failed to load closeout")
		return
	}
	response.OK(c, s)
}

// MarkPaid handles POST /payouts/:id/mark-paid. Requires manage_payouts on the payout's event.
func (h *Handler) MarkPaid(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payout id")
		return
	}
	ctx := c.Request.Context()
	eventID, err := h.store.PayoutEvent(ctx, payoutID)
	if err != nil {
		if errors.Is(err, ErrPayoutNotFound) {
			response.NotFound(c, "payout not found")
			return
		}
		response.Internal(c, "failed to load payout")
		return
	}
	if !h.resolver.Check(c, access.Event(eventID), models.CapManagePayouts) {
		return
	}
	p, err := h.store.MarkPaid(ctx, payoutID, auth.MustFrom(c).UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPayoutNotFound):
			response.NotFound(c, "payout not found")
		case errors.Is(err, ErrAlreadyPaid):
			response.Conflict(c, "payout already paid")
		default:
			h.logger.Error("mark paid failed", zap.Error(err), zap.String("payout_id", payoutID.String()))
			response.Internal(c, "failed to mark payout paid")
		}
		return
	}
	response.OK(c, p)
}

// Package promoters manages promoter profiles, event assignments and
// referral commissions.
package promoters

import (
	"context"
	"crypto/rand"
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

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Store is the promoter persistence used by Handler.
type Store interface {
	CreateForUser(ctx context.Context, p *models.Promoter) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Promoter, error)
	Assign(ctx context.Context, eventID, promoterID uuid.UUID, perHeadCents int) (*models.EventPromoter, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventPromoter, error)
	Commissions(ctx context.Context, eventID uuid.UUID) ([]Line, error)
	Payouts(ctx context.Context, promoterID uuid.UUID) ([]models.Payout, error)
}

// SignupRequest is the body for POST /promoters.
type SignupRequest struct {
	Name         string `json:"name" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

// AssignRequest is the body for POST /events/:id/promoters.
type AssignRequest struct {
	PromoterID             string `json:"promoter_id" binding:"required,uuid"`
	CommissionPerHeadCents int    `json:"commission_per_head_cents" binding:"min=0"`
}

// Handler handles promoter endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a promoters handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func newReferralCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// Signup handles POST /promoters. Links a promoter profile to the caller.
func (h *Handler) Signup(c *gin.Context) {
	a := auth.MustFrom(c)
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.ReferralCode))
	if code == "" {
		var err error
		if code, err = newReferralCode(); err != nil {
			response.Internal(c, "failed to generate referral code")
			return
		}
	} else if !codeRegex.MatchString(code) {
		response.BadRequest(c, "referral_code must be 4 to 20 letters or digits")
		return
	}
	userID := a.UserID
	p := &models.Promoter{UserID: &userID, Name: strings.TrimSpace(req.Name), Email: a.Email, ReferralCode: code}
	if err := h.store.CreateForUser(c.Request.Context(), p); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyPromoter):
			response.Conflict(c, "you already have a promoter profile")
		case errors.Is(err, ErrCodeTaken):
			response.Conflict(c, "referral code already taken")
		default:
			h.logger.Error("create promoter failed", zap.Error(err))
			response.Internal(c, "failed to create promoter")
		}
		return
	}
	response.Created(c, p)
}

// Me handles GET /promoters/me.
func (h *Handler) Me(c *gin.Context) {
	p, err := h.store.GetByUser(c.Request.Context(), auth.MustFrom(c).UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "no promoter profile")
			return
		}
		response.Internal(c, "failed to load promoter")
		return
	}
	response.OK(c, p)
}

// MyPayouts handles GET /promoters/me/payouts.
func (h *Handler) MyPayouts(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.store.GetByUser(ctx, auth.MustFrom(c).UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "no promoter profile")
			return
		}
		response.Internal(c, "failed to load promoter")
		return
	}
	list, err := h.store.Payouts(ctx, p.ID)
	if err != nil {
		response.Internal(c, "failed to load payouts")
		return
	}
	response.OK(c, list)
}

// Assign handles POST /events/:id/promoters. Requires manage_promoters.
func (h *Handler) Assign(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "promoter_id and a non-negative commission_per_head_cents required")
		return
	}
	ep, err := h.store.Assign(c.Request.Context(), eventID, uuid.MustParse(req.PromoterID), req.CommissionPerHeadCents)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "promoter not found")
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, "event not found")
		case errors.Is(err, ErrClosedOut):
			response.Locked(c, "event is closed out")
		default:
			h.logger.Error("assign promoter failed", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to assign promoter")
		}
		return
	}
	response.Created(c, ep)
}

// ListForEvent handles GET /events/:id/promoters. Requires manage_promoters.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.store.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load promoters")
		return
	}
	response.OK(c, list)
}

// Commissions handles GET /events/:id/commissions. Requires view_reports.
func (h *Handler) Commissions(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	lines, err := h.store.Commissions(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("compute commissions failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to compute commissions")
		return
	}
	total := 0
	for _, l := range lines {
		total += l.AmountCents
	}
	response.OK(c, gin.H{"lines": lines, "total_cents": total})
}

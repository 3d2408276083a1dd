package promoters

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/database"
)

var (
	ErrNotFound        = errors.New("promoter not found")
	ErrAlreadyPromoter = errors.New("user already has a promoter profile")
	ErrCodeTaken       = errors.New("referral code taken")
	ErrEventNotFound   = errors.New("event not found")
	ErrClosedOut       = errors.New("event is closed out")
)

// Repository handles promoter persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a promoters repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// userIDConstraint is the Postgres default name for promoters.user_id UNIQUE.
const userIDConstraint = "promoters_user_id_key"

const columns = `id, user_id, name, email, referral_code, created_at`

func scan(row pgx.Row, p *models.Promoter) error {
	return row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.ReferralCode, &p.CreatedAt)
}

// CreateForUser creates the user's promoter profile and grants the promoter role.
func (r *Repository) CreateForUser(ctx context.Context, p *models.Promoter) error {
	if p.UserID == nil {
		return errors.New("promoter profile requires a user")
	}
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM promoters WHERE user_id = $1)`, *p.UserID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyPromoter
		}
		if err := scan(tx.QueryRow(ctx, `INSERT INTO promoters (user_id, name, email, referral_code)
			VALUES ($1, $2, $3, $4)
			RETURNING `+columns, p.UserID, p.Name, p.Email, p.ReferralCode), p); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
			ON CONFLICT (user_id, role) DO NOTHING`, *p.UserID, string(models.RolePromoter))
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyPromoter):
		return err
	case database.ViolatedConstraint(err) == userIDConstraint:
		// A concurrent signup for the same user won the insert.
		return ErrAlreadyPromoter
	case database.IsUniqueViolation(err):
		return ErrCodeTaken
	}
	return fmt.Errorf("create promoter: %w", err)
}

// GetByUser returns the promoter profile linked to a user.
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Promoter, error) {
	var p models.Promoter
	if err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM promoters WHERE user_id = $1`, userID), &p); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Assign adds or updates a promoter's commission terms on an event that is still open.
func (r *Repository) Assign(ctx context.Context, eventID, promoterID uuid.UUID, perHeadCents int) (*models.EventPromoter, error) {
	ep := models.EventPromoter{EventID: eventID, PromoterID: promoterID}
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked bool
		if err := tx.QueryRow(ctx, `SELECT closeout_locked FROM events WHERE id = $1 FOR SHARE`, eventID).Scan(&locked); err != nil {
			if database.IsNoRows(err) {
				return ErrEventNotFound
			}
			return err
		}
		if locked {
			return ErrClosedOut
		}
		return tx.QueryRow(ctx, `INSERT INTO event_promoters (event_id, promoter_id, commission_per_head_cents)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id, promoter_id) DO UPDATE SET commission_per_head_cents = EXCLUDED.commission_per_head_cents
			RETURNING commission_per_head_cents, created_at`, eventID, promoterID, perHeadCents).
			Scan(&ep.CommissionPerHeadCents, &ep.CreatedAt)
	})
	switch {
	case err == nil:
		return &ep, nil
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrClosedOut):
		return nil, err
	case database.IsForeignKeyViolation(err):
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("assign promoter: %w", err)
}

// ListForEvent returns the promoters assigned to an event.
func (r *Repository) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventPromoter, error) {
	rows, err := r.db.Query(ctx, `SELECT ep.event_id, ep.promoter_id, p.name, p.referral_code, ep.commission_per_head_cents, ep.created_at
		FROM event_promoters ep
		JOIN promoters p ON p.id = ep.promoter_id
		WHERE ep.event_id = $1
		ORDER BY p.name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.EventPromoter{}
	for rows.Next() {
		var ep models.EventPromoter
		if err := rows.Scan(&ep.EventID, &ep.PromoterID, &ep.PromoterName, &ep.ReferralCode, &ep.CommissionPerHeadCents, &ep.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ep)
	}
	return list, rows.Err()
}

// Commissions computes the current commission lines for an event.
func (r *Repository) Commissions(ctx context.Context, eventID uuid.UUID) ([]Line, error) {
	return Commissions(ctx, r.db, eventID)
}

// Payouts returns the payouts owed to a promoter across events.
func (r *Repository) Payouts(ctx context.Context, promoterID uuid.UUID) ([]models.Payout, error) {
	rows, err := r.db.Query(ctx, `SELECT id, event_id, promoter_id, checkins_count, amount_cents, status, paid_at, paid_by, created_at
		FROM promoter_payouts WHERE promoter_id = $1 ORDER BY created_at DESC`, promoterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Payout{}
	for rows.Next() {
		var p models.Payout
		if err := rows.Scan(&p.ID, &p.EventID, &p.PromoterID, &p.CheckinsCount, &p.AmountCents, &p.Status, &p.PaidAt, &p.PaidBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

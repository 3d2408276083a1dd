package closeout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/internal/promoters"
	"github.com/crowdstack/backend/pkg/database"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrAlreadyClosed  = errors.New("event already closed out")
	ErrPayoutNotFound = errors.New("payout not found")
	ErrAlreadyPaid    = errors.New("payout already paid")
)

// Summary is the closeout state of an event.
type Summary struct {
	EventID        uuid.UUID        `json:"event_id"`
	Locked         bool             `json:"closeout_locked"`
	ClosedOutAt    *time.Time       `json:"closed_out_at,omitempty"`
	ClosedOutBy    *uuid.UUID       `json:"closed_out_by,omitempty"`
	Version        int              `json:"closeout_version"`
	BookingsLocked int64            `json:"bookings_locked,omitempty"`
	Payouts        []models.Payout  `json:"payouts"`
	Preview        []promoters.Line `json:"preview,omitempty"`
	TotalCents     int              `json:"total_cents"`
}

// Repository runs closeout and payout transactions.
type Repository struct {
	db database.DB
}

// NewRepository creates a closeout repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const payoutColumns = `id, event_id, promoter_id, checkins_count, amount_cents, status, paid_at, paid_by, created_at`

func scanPayout(row pgx.Row, p *models.Payout) error {
	return row.Scan(&p.ID, &p.EventID, &p.PromoterID, &p.CheckinsCount, &p.AmountCents, &p.Status, &p.PaidAt, &p.PaidBy, &p.CreatedAt)
}

// Close locks the event, its bookings and writes pending payouts in one transaction.
// The lock flips only from false to true, so a concurrent second call sees zero rows
// and gets ErrAlreadyClosed without writing anything.
func (r *Repository) Close(ctx context.Context, eventID, by uuid.UUID) (*Summary, error) {
	s := Summary{EventID: eventID, Locked: true, Payouts: []models.Payout{}}
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `UPDATE events
			SET closeout_locked = TRUE, closed_out_at = NOW(), closed_out_by = $2,
			    closeout_version = closeout_version + 1, updated_at = NOW()
			WHERE id = $1 AND NOT closeout_locked
			RETURNING closed_out_at, closed_out_by, closeout_version`, eventID, by).
			Scan(&s.ClosedOutAt, &s.ClosedOutBy, &s.Version)
		if database.IsNoRows(err) {
			return missOrClosed(ctx, tx, eventID)
		}
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE event_bookings SET closeout_locked = TRUE WHERE event_id = $1`, eventID)
		if err != nil {
			return fmt.Errorf("lock bookings: %w", err)
		}
		s.BookingsLocked = tag.RowsAffected()

		lines, err := promoters.Commissions(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("commissions: %w", err)
		}
		for _, l := range lines {
			var p models.Payout
			if err := scanPayout(tx.QueryRow(ctx, `INSERT INTO promoter_payouts (event_id, promoter_id, checkins_count, amount_cents, status)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING `+payoutColumns, eventID, l.PromoterID, l.Checkins, l.AmountCents, models.PayoutStatusPending), &p); err != nil {
				return fmt.Errorf("insert payout: %w", err)
			}
			s.Payouts = append(s.Payouts, p)
			s.TotalCents += p.AmountCents
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func missOrClosed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	var locked bool
	if err := tx.QueryRow(ctx, `SELECT closeout_locked FROM events WHERE id = $1`, eventID).Scan(&locked); err != nil {
		if database.IsNoRows(err) {
			return ErrEventNotFound
		}
		return err
	}
	return ErrAlreadyClosed
}

// Summary returns the event's closeout state with its payouts. Open events
// carry a commission preview instead.
func (r *Repository) Summary(ctx context.Context, eventID uuid.UUID) (*Summary, error) {
	s := Summary{EventID: eventID, Payouts: []models.Payout{}}
	err := r.db.QueryRow(ctx, `SELECT closeout_locked, closed_out_at, closed_out_by, closeout_version
		FROM events WHERE id = $1`, eventID).Scan(&s.Locked, &s.ClosedOutAt, &s.ClosedOutBy, &s.Version)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !s.Locked {
		if s.Preview, err = promoters.Commissions(ctx, r.db, eventID); err != nil {
			return nil, err
		}
		for _, l := range s.Preview {
			s.TotalCents += l.AmountCents
		}
		return &s, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+payoutColumns+` FROM promoter_payouts WHERE event_id = $1 ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Payout
		if err := scanPayout(rows, &p); err != nil {
			return nil, err
		}
		s.Payouts = append(s.Payouts, p)
		s.TotalCents += p.AmountCents
	}
	return &s, rows.Err()
}

// PayoutEvent returns the event a payout belongs to.
func (r *Repository) PayoutEvent(ctx context.Context, payoutID uuid.UUID) (uuid.UUID, error) {
	var eventID uuid.UUID
	if err := r.db.QueryRow(ctx, `SELECT event_id FROM promoter_payouts WHERE id = $1`, payoutID).Scan(&eventID); err != nil {
		if database.IsNoRows(err) {
			return uuid.Nil, ErrPayoutNotFound
		}
		return uuid.Nil, err
	}
	return eventID, nil
}

// MarkPaid moves a payout from pending to paid under a row lock.
func (r *Repository) MarkPaid(ctx context.Context, payoutID, by uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM promoter_payouts WHERE id = $1 FOR UPDATE`, payoutID).Scan(&status); err != nil {
			if database.IsNoRows(err) {
				return ErrPayoutNotFound
			}
			return err
		}
		if status != models.PayoutStatusPending {
			return ErrAlreadyPaid
		}
		return scanPayout(tx.QueryRow(ctx, `UPDATE promoter_payouts
			SET status = $2, paid_at = NOW(), paid_by = $3
			WHERE id = $1
			RETURNING `+payoutColumns, payoutID, models.PayoutStatusPaid, by), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

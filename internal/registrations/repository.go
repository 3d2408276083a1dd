package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/database"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrNotFound          = errors.New("registration not found")
	ErrCheckinNotFound   = errors.New("checkin not found")
	ErrEventFull         = errors.New("event is at capacity")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrAlreadyCheckedIn  = errors.New("already checked in")
	ErrAlreadyUndone     = errors.New("checkin already undone")
	ErrClosedOut         = errors.New("event is closed out")
)

// EventInfo is what public registration needs to know about an event.
type EventInfo struct {
	Visible  bool
	Name     string
	StartsAt time.Time
	EndsAt   *time.Time
}

// End is when the event is over: ends_at, or the start when no end is set.
func (e EventInfo) End() time.Time {
	if e.EndsAt != nil {
		return *e.EndsAt
	}
	return e.StartsAt
}

// Stats is the door count for an event.
type Stats struct {
	Registered int `json:"registered"`
	CheckedIn  int `json:"checked_in"`
}

// Repository handles registration and checkin persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a registrations repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const regColumns = `id, event_id, attendee_email, attendee_name, referral_promoter_id, pass_token_hash, created_at`

func scanRegistration(row pgx.Row, r *models.Registration) error {
	return row.Scan(&r.ID, &r.EventID, &r.AttendeeEmail, &r.AttendeeName, &r.ReferralPromoterID, &r.PassTokenHash, &r.CreatedAt)
}

const checkinColumns = `id, registration_id, event_id, checked_in_by, checked_in_at, undo_at, undone_by`

func scanCheckin(row pgx.Row, c *models.Checkin) error {
	return row.Scan(&c.ID, &c.RegistrationID, &c.EventID, &c.CheckedInBy, &c.CheckedInAt, &c.UndoAt, &c.UndoneBy)
}

// ReferralPromoter returns the promoter behind code when assigned to the event, or nil.
func (r *Repository) ReferralPromoter(ctx context.Context, eventID uuid.UUID, code string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT p.id FROM promoters p
		JOIN event_promoters ep ON ep.promoter_id = p.id AND ep.event_id = $1
		WHERE p.referral_code = $2`, eventID, code).Scan(&id)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// Create inserts a registration. The event row is locked so concurrent
// registrations cannot overshoot capacity (0 means unlimited).
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var capacity int
		err := tx.QueryRow(ctx, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, reg.EventID).Scan(&capacity)
		if err != nil {
			if database.IsNoRows(err) {
				return ErrEventNotFound
			}
			return err
		}
		if capacity > 0 {
			var count int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, reg.EventID).Scan(&count); err != nil {
				return err
			}
			if count >= capacity {
				return ErrEventFull
			}
		}
		return scanRegistration(tx.QueryRow(ctx, `INSERT INTO registrations
				(id, event_id, attendee_email, attendee_name, referral_promoter_id, pass_token_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+regColumns,
			reg.ID, reg.EventID, reg.AttendeeEmail, reg.AttendeeName, reg.ReferralPromoterID, reg.PassTokenHash), reg)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrEventFull):
		return err
	case database.IsUniqueViolation(err):
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("create registration: %w", err)
}

// GetByID returns a registration.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	var reg models.Registration
	if err := scanRegistration(r.db.QueryRow(ctx, `SELECT `+regColumns+` FROM registrations WHERE id = $1`, id), &reg); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// ListByEvent returns an event's registrations with their active checkin, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT r.id, r.event_id, r.attendee_email, r.attendee_name, r.referral_promoter_id,
			r.pass_token_hash, r.created_at, c.id, c.checked_in_at
		FROM registrations r
		LEFT JOIN checkins c ON c.registration_id = r.id AND c.undo_at IS NULL
		WHERE r.event_id = $1
		ORDER BY r.created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.RegistrationEntry{}
	for rows.Next() {
		var e models.RegistrationEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.AttendeeEmail, &e.AttendeeName, &e.ReferralPromoterID,
			&e.PassTokenHash, &e.CreatedAt, &e.CheckinID, &e.CheckedInAt); err != nil {
			return nil, err
		}
		e.CheckedIn = e.CheckinID != nil
		list = append(list, e)
	}
	return list, rows.Err()
}

// lockOpen takes a share lock on the event row and fails when it is closed out.
// Closeout's update waits for the lock, so no checkin change lands after it.
func lockOpen(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	var locked bool
	err := tx.QueryRow(ctx, `SELECT closeout_locked FROM events WHERE id = $1 FOR SHARE`, eventID).Scan(&locked)
	if err != nil {
		if database.IsNoRows(err) {
			return ErrEventNotFound
		}
		return err
	}
	if locked {
		return ErrClosedOut
	}
	return nil
}

// CheckIn records an active checkin for the registration.
func (r *Repository) CheckIn(ctx context.Context, reg *models.Registration, by uuid.UUID) (*models.Checkin, error) {
	var ch models.Checkin
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockOpen(ctx, tx, reg.EventID); err != nil {
			return err
		}
		return scanCheckin(tx.QueryRow(ctx, `INSERT INTO checkins (registration_id, event_id, checked_in_by)
			VALUES ($1, $2, $3)
			RETURNING `+checkinColumns, reg.ID, reg.EventID, by), &ch)
	})
	switch {
	case err == nil:
		return &ch, nil
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrClosedOut):
		return nil, err
	case database.IsUniqueViolation(err):
		return nil, ErrAlreadyCheckedIn
	}
	return nil, fmt.Errorf("check in: %w", err)
}

// GetCheckin returns a checkin.
func (r *Repository) GetCheckin(ctx context.Context, id uuid.UUID) (*models.Checkin, error) {
	var ch models.Checkin
	if err := scanCheckin(r.db.QueryRow(ctx, `SELECT `+checkinColumns+` FROM checkins WHERE id = $1`, id), &ch); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrCheckinNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// Undo marks an active checkin as undone.
func (r *Repository) Undo(ctx context.Context, ch *models.Checkin, by uuid.UUID) (*models.Checkin, error) {
	var out models.Checkin
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockOpen(ctx, tx, ch.EventID); err != nil {
			return err
		}
		err := scanCheckin(tx.QueryRow(ctx, `UPDATE checkins SET undo_at = NOW(), undone_by = $2
			WHERE id = $1 AND undo_at IS NULL
			RETURNING `+checkinColumns, ch.ID, by), &out)
		if database.IsNoRows(err) {
			return ErrAlreadyUndone
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrClosedOut) || errors.Is(err, ErrAlreadyUndone) {
			return nil, err
		}
		return nil, fmt.Errorf("undo checkin: %w", err)
	}
	return &out, nil
}

// Stats counts registrations and active checkins.
func (r *Repository) Stats(ctx context.Context, eventID uuid.UUID) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `SELECT
			(SELECT COUNT(*) FROM registrations WHERE event_id = $1),
			(SELECT COUNT(*) FROM checkins WHERE event_id = $1 AND undo_at IS NULL)`, eventID).
		Scan(&s.Registered, &s.CheckedIn)
	return s, err
}

// EventInfo loads visibility, name and schedule for an event.
func (r *Repository) EventInfo(ctx context.Context, eventID uuid.UUID) (EventInfo, error) {
	var info EventInfo
	var status models.VenueApprovalStatus
	err := r.db.QueryRow(ctx, `SELECT venue_approval_status, name, starts_at, ends_at FROM events WHERE id = $1`, eventID).
		Scan(&status, &info.Name, &info.StartsAt, &info.EndsAt)
	if err != nil {
		if database.IsNoRows(err) {
			return EventInfo{}, ErrEventNotFound
		}
		return EventInfo{}, err
	}
	e := models.Event{VenueApprovalStatus: status}
	info.Visible = e.Visible()
	return info, nil
}

// EventVisibility returns whether the event accepts public registrations, and its name.
func (r *Repository) EventVisibility(ctx context.Context, eventID uuid.UUID) (bool, string, error) {
	info, err := r.EventInfo(ctx, eventID)
	if err != nil {
		return false, "", err
	}
	return info.Visible, info.Name, nil
}

package events

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
	ErrNotFound      = errors.New("event not found")
	ErrSlugTaken     = errors.New("slug already taken")
	ErrLocked        = errors.New("event is closed out")
	ErrInvalidWindow = errors.New("event ends before it starts")
)

// Repository handles event persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an events repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, organizer_id, venue_id, name, slug, description, starts_at, ends_at, capacity,
	venue_approval_status, owner_user_id, created_by, flyer_url, flyer_key, closeout_locked, closed_out_at,
	created_at, updated_at`

func scan(row pgx.Row, e *models.Event) error {
	return row.Scan(&e.ID, &e.OrganizerID, &e.VenueID, &e.Name, &e.Slug, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.VenueApprovalStatus, &e.OwnerUserID, &e.CreatedBy, &e.FlyerURL, &e.FlyerKey,
		&e.CloseoutLocked, &e.ClosedOutAt, &e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scan(rows, &e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (organizer_id, venue_id, name, slug, description, starts_at, ends_at, capacity,
			venue_approval_status, owner_user_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + columns
	err := scan(r.db.QueryRow(ctx, q, e.OrganizerID, e.VenueID, e.Name, e.Slug, e.Description, e.StartsAt, e.EndsAt,
		e.Capacity, e.VenueApprovalStatus, e.OwnerUserID, e.CreatedBy), e)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var e models.Event
	if err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM events WHERE id = $1`, id), &e); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListPublicUpcoming returns visible events starting after since.
func (r *Repository) ListPublicUpcoming(ctx context.Context, since time.Time, limit int) ([]models.Event, error) {
	return r.list(ctx, `SELECT `+columns+` FROM events
		WHERE venue_approval_status IN ('approved', 'not_required') AND starts_at >= $1
		ORDER BY starts_at
		LIMIT $2`, since, limit)
}

// ListByOrganizer returns every event of an organizer.
func (r *Repository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error) {
	return r.list(ctx, `SELECT `+columns+` FROM events WHERE organizer_id = $1 ORDER BY starts_at DESC`, organizerID)
}

// Changes are the mutable event fields; nil leaves a field unchanged.
type Changes struct {
	Name        *string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Capacity    *int
}

// Update applies changes unless the event is closed out.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, ch Changes) (*models.Event, error) {
	const q = `UPDATE events SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			starts_at = COALESCE($4, starts_at),
			ends_at = COALESCE($5, ends_at),
			capacity = COALESCE($6, capacity),
			updated_at = NOW()
		WHERE id = $1 AND NOT closeout_locked
			AND (COALESCE($5::timestamptz, ends_at) IS NULL
				OR COALESCE($5::timestamptz, ends_at) >= COALESCE($4::timestamptz, starts_at))
		RETURNING ` + columns
	var e models.Event
	err := scan(r.db.QueryRow(ctx, q, id, ch.Name, ch.Description, ch.StartsAt, ch.EndsAt, ch.Capacity), &e)
	if err == nil {
		return &e, nil
	}
	if !database.IsNoRows(err) {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return nil, r.explainUpdateMiss(ctx, id)
}

// explainUpdateMiss explains why a guarded update touched no row.
func (r *Repository) explainUpdateMiss(ctx context.Context, id uuid.UUID) error {
	var locked bool
	err := r.db.QueryRow(ctx, `SELECT closeout_locked FROM events WHERE id = $1`, id).Scan(&locked)
	switch {
	case database.IsNoRows(err):
		return ErrNotFound
	case err != nil:
		return err
	case locked:
		return ErrLocked
	}
	return ErrInvalidWindow
}

// SetVenueApproval records the venue's decision on the event.
func (r *Repository) SetVenueApproval(ctx context.Context, id uuid.UUID, status models.VenueApprovalStatus) (*models.Event, error) {
	var e models.Event
	err := scan(r.db.QueryRow(ctx, `UPDATE events SET venue_approval_status = $2, updated_at = NOW()
		WHERE id = $1 AND venue_id IS NOT NULL
		RETURNING `+columns, id, status), &e)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// IsOrganizerMember reports whether userID created or belongs to the organizer.
func (r *Repository) IsOrganizerMember(ctx context.Context, organizerID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM organizers WHERE id = $1 AND created_by = $2
			UNION ALL
			SELECT 1 FROM organizer_users WHERE organizer_id = $1 AND user_id = $2
		)`, organizerID, userID).Scan(&ok)
	return ok, err
}

// TransferOwner sets owner_user_id.
func (r *Repository) TransferOwner(ctx context.Context, id, newOwner uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE events SET owner_user_id = $2, updated_at = NOW() WHERE id = $1`, id, newOwner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFlyer stores the flyer location and returns the key it replaced.
func (r *Repository) SetFlyer(ctx context.Context, id uuid.UUID, url, key string) (string, error) {
	var oldKey string
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT flyer_key FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&oldKey); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE events SET flyer_url = $2, flyer_key = $3, updated_at = NOW() WHERE id = $1`, id, url, key)
		return err
	})
	if err != nil {
		if database.IsNoRows(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return oldKey, nil
}

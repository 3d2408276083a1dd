package venues

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
	ErrNotFound  = errors.New("venue not found")
	ErrSlugTaken = errors.New("slug already taken")
)

// Repository handles venue persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a venues repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, name, slug, address, created_by, created_at, updated_at`

func scan(row pgx.Row, v *models.Venue) error {
	return row.Scan(&v.ID, &v.Name, &v.Slug, &v.Address, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
}

// Create inserts the venue and an admin membership with full_admin for its creator.
func (r *Repository) Create(ctx context.Context, v *models.Venue) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := scan(tx.QueryRow(ctx, `INSERT INTO venues (name, slug, address, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING `+columns, v.Name, v.Slug, v.Address, v.CreatedBy), v)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO venue_users (venue_id, user_id, role, permissions)
			VALUES ($1, $2, $3, $4)`, v.ID, v.CreatedBy, models.MemberRoleAdmin, models.FullAdminPermissions())
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

// GetByID returns a venue by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	var v models.Venue
	if err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM venues WHERE id = $1`, id), &v); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListForUser returns venues the user created or is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Venue, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM venues v
		WHERE v.created_by = $1
		   OR EXISTS (SELECT 1 FROM venue_users vu WHERE vu.venue_id = v.id AND vu.user_id = $1)
		ORDER BY v.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Venue{}
	for rows.Next() {
		var v models.Venue
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Update changes a venue's name and address.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, address string) (*models.Venue, error) {
	var v models.Venue
	err := scan(r.db.QueryRow(ctx, `UPDATE venues SET name = $2, address = $3, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, name, address), &v)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// PendingEvents lists events at the venue awaiting approval.
func (r *Repository) PendingEvents(ctx context.Context, venueID uuid.UUID) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT id, organizer_id, name, slug, starts_at, venue_approval_status
		FROM events
		WHERE venue_id = $1 AND venue_approval_status = 'pending'
		ORDER BY starts_at`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.OrganizerID, &e.Name, &e.Slug, &e.StartsAt, &e.VenueApprovalStatus); err != nil {
			return nil, err
		}
		e.VenueID = &venueID
		list = append(list, e)
	}
	return list, rows.Err()
}

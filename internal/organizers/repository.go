package organizers

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
	ErrNotFound  = errors.New("organizer not found")
	ErrSlugTaken = errors.New("slug already taken")
)

// Repository handles organizer persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an organizers repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, name, slug, created_by, created_at, updated_at`

func scan(row pgx.Row, o *models.Organizer) error {
	return row.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
}

// Create inserts the organizer and an admin membership with full_admin for its creator.
func (r *Repository) Create(ctx context.Context, name, slug string, createdBy uuid.UUID) (*models.Organizer, error) {
	var o models.Organizer
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := scan(tx.QueryRow(ctx, `INSERT INTO organizers (name, slug, created_by)
			VALUES ($1, $2, $3)
			RETURNING `+columns, name, slug, createdBy), &o)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO organizer_users (organizer_id, user_id, role, permissions)
			VALUES ($1, $2, $3, $4)`, o.ID, createdBy, models.MemberRoleAdmin, models.FullAdminPermissions())
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create organizer: %w", err)
	}
	return &o, nil
}

// GetByID returns an organizer by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organizer, error) {
	var o models.Organizer
	if err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM organizers WHERE id = $1`, id), &o); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListForUser returns organizers the user created or is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organizer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM organizers o
		WHERE o.created_by = $1
		   OR EXISTS (SELECT 1 FROM organizer_users ou WHERE ou.organizer_id = o.id AND ou.user_id = $1)
		ORDER BY o.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Organizer{}
	for rows.Next() {
		var o models.Organizer
		if err := scan(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// UpdateName renames an organizer.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Organizer, error) {
	var o models.Organizer
	err := scan(r.db.QueryRow(ctx, `UPDATE organizers SET name = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, name), &o)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

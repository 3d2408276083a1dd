package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/database"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository handles user and user_roles persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an auth repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, password_hash, full_name, created_at, updated_at`

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

func (r *Repository) getOne(ctx context.Context, q string, arg interface{}) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	var u models.User
	err := r.db.QueryRow(ctx, q, normalizeEmail(email), passwordHash, strings.TrimSpace(fullName)).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// List returns all users with their roles.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.db.Query(ctx, `SELECT u.id, u.email, u.full_name, u.created_at,
			COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		GROUP BY u.id
		ORDER BY u.full_name, u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		var u models.UserPublic
		var roles []string
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt, &roles); err != nil {
			return nil, err
		}
		u.Roles = make([]models.Role, 0, len(roles))
		for _, role := range roles {
			u.Roles = append(u.Roles, models.Role(role))
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Roles returns the role tags held by a user.
func (r *Repository) Roles(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []models.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, models.Role(role))
	}
	return roles, rows.Err()
}

// AddRole grants a role tag; granting an existing role is a no-op.
func (r *Repository) AddRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	_, err := r.db.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, string(role))
	return err
}

// RemoveRole revokes a role tag.
func (r *Repository) RemoveRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

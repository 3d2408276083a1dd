package members

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
	ErrNotFound      = errors.New("membership not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyMember = errors.New("user is already a member")
)

// Table names a membership junction table and its tenant column.
type Table struct {
	Name   string
	Tenant string
}

var (
	OrganizerUsers = Table{Name: "organizer_users", Tenant: "organizer_id"}
	VenueUsers     = Table{Name: "venue_users", Tenant: "venue_id"}
)

// Repository handles one membership table.
type Repository struct {
	db    database.DB
	table Table
}

// NewRepository creates a members repository over table.
func NewRepository(db database.DB, table Table) *Repository {
	return &Repository{db: db, table: table}
}

// List returns the members of a tenant with their user details.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.Member, error) {
	q := fmt.Sprintf(`SELECT m.id, m.%[2]s, m.user_id, u.email, u.full_name, m.role, m.permissions, m.created_at
		FROM %[1]s m
		JOIN users u ON u.id = m.user_id
		WHERE m.%[2]s = $1
		ORDER BY m.created_at`, r.table.Name, r.table.Tenant)
	rows, err := r.db.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.Permissions, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// AddByEmail adds the user with the given email as a member.
func (r *Repository) AddByEmail(ctx context.Context, tenantID uuid.UUID, email, role string, perms models.Permissions) (*models.Member, error) {
	q := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, user_id, role, permissions)
		SELECT $1, u.id, $3, $4 FROM users u WHERE u.email = $2
		RETURNING id, %[2]s, user_id, role, permissions, created_at`, r.table.Name, r.table.Tenant)
	var m models.Member
	err := r.db.QueryRow(ctx, q, tenantID, strings.ToLower(strings.TrimSpace(email)), role, perms.Normalize()).
		Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Permissions, &m.CreatedAt)
	if err != nil {
		switch {
		case database.IsNoRows(err):
			return nil, ErrUserNotFound
		case database.IsUniqueViolation(err):
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	m.Email = strings.ToLower(strings.TrimSpace(email))
	return &m, nil
}

// Update replaces a member's role and permission bag.
func (r *Repository) Update(ctx context.Context, tenantID, userID uuid.UUID, role string, perms models.Permissions) (*models.Member, error) {
	q := fmt.Sprintf(`UPDATE %[1]s SET role = $3, permissions = $4, updated_at = NOW()
		WHERE %[2]s = $1 AND user_id = $2
		RETURNING id, %[2]s, user_id, role, permissions, created_at`, r.table.Name, r.table.Tenant)
	var m models.Member
	err := r.db.QueryRow(ctx, q, tenantID, userID, role, perms.Normalize()).
		Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Permissions, &m.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update member: %w", err)
	}
	return &m, nil
}

// Remove deletes a membership.
func (r *Repository) Remove(ctx context.Context, tenantID, userID uuid.UUID) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND user_id = $2`, r.table.Name, r.table.Tenant)
	tag, err := r.db.Exec(ctx, q, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Organizer is a tenant that runs events.
type Organizer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Venue is a tenant that hosts events.
type Venue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Address   string    `json:"address"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership roles on organizer_users / venue_users.
const (
	MemberRoleAdmin = "admin"
	MemberRoleStaff = "staff"
)

// Member is one row of organizer_users or venue_users joined with the user.
type Member struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	UserID      uuid.UUID   `json:"user_id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Role        string      `json:"role"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
}

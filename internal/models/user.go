package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a platform-wide role tag stored in user_roles.
type Role string

const (
	RoleSuperadmin     Role = "superadmin"
	RoleEventOrganizer Role = "event_organizer"
	RoleVenueAdmin     Role = "venue_admin"
	RoleDJ             Role = "dj"
	RolePromoter       Role = "promoter"
)

// ValidRole reports whether r is a known role tag.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperadmin, RoleEventOrganizer, RoleVenueAdmin, RoleDJ, RolePromoter:
		return true
	}
	return false
}

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields, with its roles, for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic(roles []Role) UserPublic {
	if roles == nil {
		roles = []Role{}
	}
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}

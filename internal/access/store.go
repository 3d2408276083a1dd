package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/database"
)

// Store loads the facts the resolver needs.
type Store interface {
	UserRoles(ctx context.Context, userID uuid.UUID) ([]models.Role, error)
	Facts(ctx context.Context, res Resource, userID uuid.UUID) (Facts, error)
}

// PgStore reads access facts from Postgres.
type PgStore struct {
	db database.DB
}

// NewPgStore creates a Postgres-backed access store.
func NewPgStore(db database.DB) *PgStore {
	return &PgStore{db: db}
}

// UserRoles returns the role tags held by a user.
func (s *PgStore) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	rows, err := s.db.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []models.Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, models.Role(r))
	}
	return roles, rows.Err()
}

const organizerFactsQuery = `SELECT o.created_by, ou.id IS NOT NULL, COALESCE(ou.role, ''), ou.permissions
	FROM organizers o
	LEFT JOIN organizer_users ou ON ou.organizer_id = o.id AND ou.user_id = $2
	WHERE o.id = $1`

const venueFactsQuery = `SELECT v.created_by, vu.id IS NOT NULL, COALESCE(vu.role, ''), vu.permissions
	FROM venues v
	LEFT JOIN venue_users vu ON vu.venue_id = v.id AND vu.user_id = $2
	WHERE v.id = $1`

const eventFactsQuery = `SELECT e.owner_user_id, o.created_by,
		ou.id IS NOT NULL, COALESCE(ou.role, ''), ou.permissions,
		v.created_by, vu.id IS NOT NULL, COALESCE(vu.role, ''), vu.permissions
	FROM events e
	JOIN organizers o ON o.id = e.organizer_id
	LEFT JOIN organizer_users ou ON ou.organizer_id = e.organizer_id AND ou.user_id = $2
	LEFT JOIN venues v ON v.id = e.venue_id
	LEFT JOIN venue_users vu ON vu.venue_id = e.venue_id AND vu.user_id = $2
	WHERE e.id = $1`

// Facts loads creator and membership facts for res as seen by userID.
func (s *PgStore) Facts(ctx context.Context, res Resource, userID uuid.UUID) (Facts, error) {
	var f Facts
	switch res.Kind {
	case KindOrganizer:
		var m Membership
		var isMember bool
		err := s.db.QueryRow(ctx, organizerFactsQuery, res.ID, userID).
			Scan(&f.OrganizerCreatedBy, &isMember, &m.Role, &m.Permissions)
		if err != nil {
			return Facts{}, err
		}
		if isMember {
			f.OrganizerMembership = &m
		}
	case KindVenue:
		var m Membership
		var isMember bool
		err := s.db.QueryRow(ctx, venueFactsQuery, res.ID, userID).
			Scan(&f.VenueCreatedBy, &isMember, &m.Role, &m.Permissions)
		if err != nil {
			return Facts{}, err
		}
		if isMember {
			f.VenueMembership = &m
		}
	case KindEvent:
		var om, vm Membership
		var isOrgMember, isVenueMember bool
		var venueCreatedBy *uuid.UUID
		err := s.db.QueryRow(ctx, eventFactsQuery, res.ID, userID).Scan(
			&f.EventOwner, &f.OrganizerCreatedBy,
			&isOrgMember, &om.Role, &om.Permissions,
			&venueCreatedBy, &isVenueMember, &vm.Role, &vm.Permissions,
		)
		if err != nil {
			return Facts{}, err
		}
		if isOrgMember {
			f.OrganizerMembership = &om
		}
		// No venue: the venue path stays empty.
		if venueCreatedBy != nil {
			f.VenueCreatedBy = *venueCreatedBy
			if isVenueMember {
				f.VenueMembership = &vm
			}
		}
	default:
		return Facts{}, fmt.Errorf("unknown resource kind %q", res.Kind)
	}
	return f, nil
}

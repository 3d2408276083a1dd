// Package access decides whether a user may exercise a capability on an
// organizer, venue or event.
//
// Rules are checked in order and the first one that grants wins:
// superadmin role, creator/owner match, membership permission bag.
// Anything else is denied.
package access

import (
	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/models"
)

// Source tags which rule granted access. It is diagnostic only.
type Source string

const (
	SourceSuperadmin       Source = "superadmin"
	SourceOrganizerCreator Source = "organizer_creator"
	SourceVenueCreator     Source = "venue_creator"
	SourceEventOwner       Source = "event_owner"
	SourceMembership       Source = "membership"
	SourceNone             Source = "none"
)

// Decision is the resolver's answer.
type Decision struct {
	Granted bool   `json:"granted"`
	Source  Source `json:"source"`
}

var denied = Decision{Granted: false, Source: SourceNone}

// Subject is the acting user.
type Subject struct {
	UserID uuid.UUID
	Roles  []models.Role
}

// HasRole reports whether the subject holds role r.
func (s Subject) HasRole(r models.Role) bool {
	for _, have := range s.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Membership is a junction-table row for the subject on a tenant.
type Membership struct {
	Role        string
	Permissions models.Permissions
}

// Facts is everything about a resource the decision needs. Zero UUIDs and
// nil memberships mean "not applicable" (e.g. an event without a venue).
type Facts struct {
	OrganizerCreatedBy  uuid.UUID
	VenueCreatedBy      uuid.UUID
	EventOwner          uuid.UUID
	OrganizerMembership *Membership
	VenueMembership     *Membership
}

// Decide applies the access rules to already-fetched facts.
func Decide(sub Subject, f Facts, c models.Capability) Decision {
	if sub.UserID == uuid.Nil {
		return denied
	}
	if sub.HasRole(models.RoleSuperadmin) {
		return Decision{Granted: true, Source: SourceSuperadmin}
	}

	switch sub.UserID {
	case f.OrganizerCreatedBy:
		return Decision{Granted: true, Source: SourceOrganizerCreator}
	case f.VenueCreatedBy:
		return Decision{Granted: true, Source: SourceVenueCreator}
	case f.EventOwner:
		return Decision{Granted: true, Source: SourceEventOwner}
	}

	if m := f.OrganizerMembership; m != nil && m.Permissions.Allows(c) {
		return Decision{Granted: true, Source: SourceMembership}
	}
	if m := f.VenueMembership; m != nil && m.Permissions.Allows(c) {
		return Decision{Granted: true, Source: SourceMembership}
	}
	return denied
}

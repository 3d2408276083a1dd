package models

import (
	"time"

	"github.com/google/uuid"
)

// VenueApprovalStatus gates public visibility of an event.
type VenueApprovalStatus string

const (
	VenueApprovalPending     VenueApprovalStatus = "pending"
	VenueApprovalApproved    VenueApprovalStatus = "approved"
	VenueApprovalRejected    VenueApprovalStatus = "rejected"
	VenueApprovalNotRequired VenueApprovalStatus = "not_required"
)

// Event belongs to one organizer and optionally one venue.
type Event struct {
	ID                  uuid.UUID           `json:"id"`
	OrganizerID         uuid.UUID           `json:"organizer_id"`
	VenueID             *uuid.UUID          `json:"venue_id,omitempty"`
	Name                string              `json:"name"`
	Slug                string              `json:"slug"`
	Description         string              `json:"description"`
	StartsAt            time.Time           `json:"starts_at"`
	EndsAt              *time.Time          `json:"ends_at,omitempty"`
	Capacity            int                 `json:"capacity"`
	VenueApprovalStatus VenueApprovalStatus `json:"venue_approval_status"`
	OwnerUserID         uuid.UUID           `json:"owner_user_id"`
	CreatedBy           uuid.UUID           `json:"created_by"`
	FlyerURL            string              `json:"flyer_url,omitempty"`
	FlyerKey            string              `json:"-"`
	CloseoutLocked      bool                `json:"closeout_locked"`
	ClosedOutAt         *time.Time          `json:"closed_out_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// Visible reports whether the event may be shown publicly.
func (e *Event) Visible() bool {
	return e.VenueApprovalStatus == VenueApprovalApproved || e.VenueApprovalStatus == VenueApprovalNotRequired
}

// Booking is a DJ or staff booking on an event; locked at closeout.
type Booking struct {
	ID             uuid.UUID `json:"id"`
	EventID        uuid.UUID `json:"event_id"`
	UserID         uuid.UUID `json:"user_id"`
	Kind           string    `json:"kind"`
	FeeCents       int       `json:"fee_cents"`
	CloseoutLocked bool      `json:"closeout_locked"`
	CreatedAt      time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is an attendee's claim on an event.
type Registration struct {
	ID                 uuid.UUID  `json:"id"`
	EventID            uuid.UUID  `json:"event_id"`
	AttendeeEmail      string     `json:"attendee_email"`
	AttendeeName       string     `json:"attendee_name"`
	ReferralPromoterID *uuid.UUID `json:"referral_promoter_id,omitempty"`
	PassTokenHash      string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}

// RegistrationEntry is a registration with its active checkin, if any, for door and report lists.
type RegistrationEntry struct {
	Registration
	CheckedIn   bool       `json:"checked_in"`
	CheckinID   *uuid.UUID `json:"checkin_id,omitempty"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// Checkin records attendance. UndoAt nil means currently checked in.
type Checkin struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	EventID        uuid.UUID  `json:"event_id"`
	CheckedInBy    uuid.UUID  `json:"checked_in_by"`
	CheckedInAt    time.Time  `json:"checked_in_at"`
	UndoAt         *time.Time `json:"undo_at,omitempty"`
	UndoneBy       *uuid.UUID `json:"undone_by,omitempty"`
}

// Active reports whether the checkin has not been undone.
func (c *Checkin) Active() bool { return c.UndoAt == nil }

package models

import (
	"time"

	"github.com/google/uuid"
)

// Promoter is a referral identity, optionally linked to a user.
type Promoter struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	ReferralCode string     `json:"referral_code"`
	CreatedAt    time.Time  `json:"created_at"`
}

// EventPromoter assigns a promoter to an event with commission terms.
type EventPromoter struct {
	EventID                uuid.UUID `json:"event_id"`
	PromoterID             uuid.UUID `json:"promoter_id"`
	PromoterName           string    `json:"promoter_name,omitempty"`
	ReferralCode           string    `json:"referral_code,omitempty"`
	CommissionPerHeadCents int       `json:"commission_per_head_cents"`
	CreatedAt              time.Time `json:"created_at"`
}

// Payout statuses.
const (
	PayoutStatusPending = "pending"
	PayoutStatusPaid    = "paid"
)

// Payout is a promoter commission computed at closeout.
type Payout struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	PromoterID    uuid.UUID  `json:"promoter_id"`
	CheckinsCount int        `json:"checkins_count"`
	AmountCents   int        `json:"amount_cents"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PaidBy        *uuid.UUID `json:"paid_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailTypeRegistrationConfirmation carries the QR pass after a registration.
const EmailTypeRegistrationConfirmation = "registration_confirmation"

// Delivery outcomes recorded per attempt.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// ValidEmailLogStatus reports whether s can filter the delivery log.
func ValidEmailLogStatus(s string) bool {
	return s == EmailLogStatusSent || s == EmailLogStatusFailed
}

// EmailLog is one delivery attempt. A job retried three times leaves three rows.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	EventID        *uuid.UUID `json:"event_id,omitempty"`
	RegistrationID *uuid.UUID `json:"registration_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	Attempt        int        `json:"attempt"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

package emaillogs

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/database"
)

// Repository handles email_logs persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an email logs repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create records a delivery attempt. Sent rows get sent_at stamped by the database.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	if el.Attempt < 1 {
		el.Attempt = 1
	}
	const q = `INSERT INTO email_logs (event_id, registration_id, email_type, recipient_email, subject, status, attempt, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $6 = 'sent' THEN NOW() END, $8)
		RETURNING id, sent_at, created_at`
	return r.db.QueryRow(ctx, q, el.EventID, el.RegistrationID, el.EmailType, el.RecipientEmail,
		nullable(el.Subject), el.Status, el.Attempt, nullable(el.ErrorMessage)).Scan(&el.ID, &el.SentAt, &el.CreatedAt)
}

// ListByEvent returns an event's delivery log, newest first. An empty status lists every row.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, status string) ([]*models.EmailLog, error) {
	const q = `SELECT id, event_id, registration_id, email_type, recipient_email, subject, status, attempt, sent_at, error_message, created_at
		FROM email_logs
		WHERE event_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, eventID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.EmailLog{}
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.EventID, &el.RegistrationID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.Attempt, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}

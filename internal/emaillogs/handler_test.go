package emaillogs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/queue"
)

func init() { gin.SetMode(gin.TestMode) }

type memRegs map[uuid.UUID]*models.Registration

func (m memRegs) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	if r, ok := m[id]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (m memRegs) EventVisibility(context.Context, uuid.UUID) (bool, string, error) {
	return true, "Warehouse Night", nil
}

type memLogs struct{ status string }

func (m *memLogs) ListByEvent(_ context.Context, _ uuid.UUID, status string) ([]*models.EmailLog, error) {
	m.status = status
	return []*models.EmailLog{}, nil
}

type memMailer struct{ sent []queue.EmailPayload }

func (m *memMailer) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	m.sent = append(m.sent, p)
	return nil
}

func post(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResend(t *testing.T) {
	eventID, regID := uuid.New(), uuid.New()
	regs := memRegs{regID: {ID: regID, EventID: eventID, AttendeeEmail: "a@example.com", AttendeeName: "Ann"}}
	mailer := &memMailer{}
	logs := &memLogs{}
	h := NewHandler(logs, regs, mailer, nil)
	r := gin.New()
	r.POST("/events/:id/emails/resend", h.Resend)
	r.GET("/events/:id/emails", h.ListByEvent)

	w := post(r, "/events/"+eventID.String()+"/emails/resend", ResendRequest{RegistrationID: regID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].RecipientEmail)
	assert.Contains(t, mailer.sent[0].Subject, "Warehouse Night")

	w = post(r, "/events/"+uuid.NewString()+"/emails/resend", ResendRequest{RegistrationID: regID.String()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(r, "/events/"+eventID.String()+"/emails/resend", ResendRequest{RegistrationID: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+eventID.String()+"/emails?status=failed", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EmailLogStatusFailed, logs.status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+eventID.String()+"/emails?status=bounced", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResendWithoutQueue(t *testing.T) {
	h := NewHandler(&memLogs{}, memRegs{}, nil, nil)
	r := gin.New()
	r.POST("/events/:id/emails/resend", h.Resend)

	w := post(r, "/events/"+uuid.NewString()+"/emails/resend", ResendRequest{RegistrationID: uuid.NewString()})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

package members

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdstack/backend/internal/models"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeStore struct {
	added   []AddRequest
	members map[uuid.UUID]models.Member
	addErr  error
}

func (f *fakeStore) List(context.Context, uuid.UUID) ([]models.Member, error) {
	out := []models.Member{}
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) AddByEmail(_ context.Context, tenantID uuid.UUID, email, role string, perms models.Permissions) (*models.Member, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, AddRequest{Email: email, Role: role, Permissions: perms})
	return &models.Member{ID: uuid.New(), TenantID: tenantID, Email: email, Role: role, Permissions: perms.Normalize()}, nil
}

func (f *fakeStore) Update(_ context.Context, tenantID, userID uuid.UUID, role string, perms models.Permissions) (*models.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, ErrNotFound
	}
	m.Role, m.Permissions = role, perms.Normalize()
	f.members[userID] = m
	return &m, nil
}

func (f *fakeStore) Remove(_ context.Context, _, userID uuid.UUID) error {
	if _, ok := f.members[userID]; !ok {
		return ErrNotFound
	}
	delete(f.members, userID)
	return nil
}

func router(store Store) *gin.Engine {
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/organizers/:id/members", h.List)
	r.POST("/organizers/:id/members", h.Add)
	r.PUT("/organizers/:id/members/:user_id", h.Update)
	r.DELETE("/organizers/:id/members/:user_id", h.Remove)
	return r
}

func send(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdd(t *testing.T) {
	store := &fakeStore{}
	r := router(store)
	org := uuid.NewString()

	w := send(r, http.MethodPost, "/organizers/"+org+"/members", AddRequest{
		Email:       "b@example.com",
		Permissions: models.Permissions{models.CapFullAdmin: true},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.added, 1)
	assert.Equal(t, models.MemberRoleStaff, store.added[0].Role)

	var body struct {
		Data models.Member `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Permissions[models.CapManageDoor], "full_admin implies every capability")

	w = send(r, http.MethodPost, "/organizers/"+org+"/members", AddRequest{Email: "b@example.com", Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/organizers/"+org+"/members", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdd_Errors(t *testing.T) {
	org := uuid.NewString()
	w := send(router(&fakeStore{addErr: ErrUserNotFound}), http.MethodPost, "/organizers/"+org+"/members", AddRequest{Email: "b@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(router(&fakeStore{addErr: ErrAlreadyMember}), http.MethodPost, "/organizers/"+org+"/members", AddRequest{Email: "b@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateAndRemove(t *testing.T) {
	user := uuid.New()
	store := &fakeStore{members: map[uuid.UUID]models.Member{user: {UserID: user, Role: "staff"}}}
	r := router(store)
	base := "/organizers/" + uuid.NewString() + "/members/"

	w := send(r, http.MethodPut, base+user.String(), UpdateRequest{Role: "admin", Permissions: models.Permissions{models.CapViewReports: true}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", store.members[user].Role)
	assert.True(t, store.members[user].Permissions[models.CapViewReports])

	w = send(r, http.MethodPut, base+uuid.NewString(), UpdateRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodDelete, base+user.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = send(r, http.MethodDelete, base+user.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodDelete, base+"bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package organizers

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

	"github.com/crowdstack/backend/internal/auth"
	"github.com/crowdstack/backend/internal/models"
)

func init() { gin.SetMode(gin.TestMode) }

type memStore struct {
	orgs map[uuid.UUID]*models.Organizer
}

func (m *memStore) Create(_ context.Context, name, slug string, createdBy uuid.UUID) (*models.Organizer, error) {
	for _, o := range m.orgs {
		if o.Slug == slug {
			return nil, ErrSlugTaken
		}
	}
	o := &models.Organizer{ID: uuid.New(), Name: name, Slug: slug, CreatedBy: createdBy}
	m.orgs[o.ID] = o
	return o, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Organizer, error) {
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Organizer, error) {
	out := []models.Organizer{}
	for _, o := range m.orgs {
		if o.CreatedBy == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) UpdateName(_ context.Context, id uuid.UUID, name string) (*models.Organizer, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Name = name
	return o, nil
}

func newRouter(store Store, user uuid.UUID) *gin.Engine {
	h := NewHandler(store, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.Set(c, &auth.Context{UserID: user})
		c.Next()
	})
	r.POST("/organizers", h.Create)
	r.GET("/organizers", h.ListMine)
	r.GET("/organizers/:id", h.Get)
	r.PUT("/organizers/:id", h.Update)
	return r
}

func jsonReq(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreate(t *testing.T) {
	store := &memStore{orgs: map[uuid.UUID]*models.Organizer{}}
	user := uuid.New()
	r := newRouter(store, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPost, "/organizers", CreateRequest{Name: " Night Owls ", Slug: "Night-Owls"}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.orgs, 1)
	for _, o := range store.orgs {
		assert.Equal(t, "night-owls", o.Slug)
		assert.Equal(t, "Night Owls", o.Name)
		assert.Equal(t, user, o.CreatedBy)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPost, "/organizers", CreateRequest{Name: "Other", Slug: "night-owls"}))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPost, "/organizers", CreateRequest{Name: "Bad", Slug: "no spaces!"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndUpdate(t *testing.T) {
	id := uuid.New()
	store := &memStore{orgs: map[uuid.UUID]*models.Organizer{id: {ID: id, Name: "Old", Slug: "old"}}}
	r := newRouter(store, uuid.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organizers/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organizers/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPut, "/organizers/"+id.String(), UpdateRequest{Name: "New"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New", store.orgs[id].Name)
}

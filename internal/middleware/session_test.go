package middleware

import (
	"context"
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

type staticRoles []models.Role

func (s staticRoles) Roles(context.Context, uuid.UUID) []models.Role { return s }

func sessionRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/who", mw, func(c *gin.Context) {
		a, ok := auth.From(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.JSON(http.StatusOK, a)
	})
	return r
}

func TestSession(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", 1)
	uid := uuid.New()
	token, err := jwtSvc.Generate(uid, "u@example.com")
	require.NoError(t, err)
	cfg := SessionConfig{JWT: jwtSvc, CookieName: "crowdstack_session", Roles: staticRoles{models.RolePromoter}}
	r := sessionRouter(Session(cfg))

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.AddCookie(&http.Cookie{Name: "crowdstack_session", Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), uid.String())
		assert.Contains(t, w.Body.String(), "promoter")
	})

	t.Run("bearer fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.AddCookie(&http.Cookie{Name: "crowdstack_session", Value: token + "x"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSession_RoleLoadFailureIsEmpty(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", 1)
	token, err := jwtSvc.Generate(uuid.New(), "u@example.com")
	require.NoError(t, err)
	r := gin.New()
	r.GET("/who", Session(SessionConfig{JWT: jwtSvc, CookieName: "s", Roles: staticRoles(nil)}), func(c *gin.Context) {
		assert.Empty(t, auth.MustFrom(c).Roles)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalSession(t *testing.T) {
	r := sessionRouter(OptionalSession(SessionConfig{JWT: auth.NewJWTService("secret", 1), CookieName: "s"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		ctx    *auth.Context
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &auth.Context{UserID: uuid.New(), Roles: []models.Role{models.RoleDJ}}, http.StatusForbidden},
		{"superadmin", &auth.Context{UserID: uuid.New(), Roles: []models.Role{models.RoleSuperadmin}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", func(c *gin.Context) {
				if tt.ctx != nil {
					auth.Set(c, tt.ctx)
				}
				c.Next()
			}, RequireRole(models.RoleSuperadmin), func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

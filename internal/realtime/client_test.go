package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestServeWs(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	doorUser := uuid.New()
	authorize := func(_ context.Context, token string, _ uuid.UUID) (uuid.UUID, error) {
		switch token {
		case "door":
			return doorUser, nil
		case "guest":
			return uuid.Nil, ErrForbidden
		}
		return uuid.Nil, ErrUnauthenticated
	}
	r := gin.New()
	r.GET("/ws", ServeWs(hub, nil, "crowdstack_session", authorize))
	srv := httptest.NewServer(r)
	defer srv.Close()
	ev := uuid.New()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?event_id=" + ev.String()

	_, resp, err := websocket.DefaultDialer.Dial(base+"&token=nope", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"&token=guest", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"&token=door", nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg WSMessage
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventWatchers, msg.Event)

	hub.Publish(ev, EventCheckinCount, map[string]int{"registered": 10, "checked_in": 4})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventCheckinCount, msg.Event)
	assert.JSONEq(t, `{"registered":10,"checked_in":4}`, string(msg.Data))
}

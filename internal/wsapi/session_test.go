package wsapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/eratosthenes/geoguess-server/internal/engine"
	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/identity"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine, string) {
	t.Helper()
	locations := geo.NewLocations([]geo.LatLng{{Lat: 1, Lng: 1}})
	registry := sockets.NewRegistry()
	eng := engine.New(rooms.NewStore(), registry, locations)
	roomID, err := eng.CreateRoom()
	require.NoError(t, err)

	ws := NewServer(eng, registry, nil)

	router := gin.New()
	router.GET("/rooms/:id/ws", func(c *gin.Context) {
		ws.Serve(c, identity.Claims{PublicID: "pub-1", PrivateID: "priv-1"})
	})

	srv := httptest.NewServer(router)
	return srv, eng, roomID
}

func dial(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rooms/" + roomID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestUserConnectedDispatchesToEngine(t *testing.T) {
	srv, eng, roomID := newTestServer(t)
	defer srv.Close()

	conn := dial(t, srv, roomID)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":        "userConnected",
		"username":    "alice",
		"avatarEmoji": "🙂",
	}))

	require.Eventually(t, func() bool {
		users, err := eng.Users(roomID)
		return err == nil && len(users) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMalformedFrameDoesNotCloseSession(t *testing.T) {
	srv, eng, roomID := newTestServer(t)
	defer srv.Close()

	conn := dial(t, srv, roomID)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":        "userConnected",
		"username":    "bob",
		"avatarEmoji": "😎",
	}))

	require.Eventually(t, func() bool {
		users, err := eng.Users(roomID)
		return err == nil && len(users) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPingReceivesPong(t *testing.T) {
	srv, _, roomID := newTestServer(t)
	defer srv.Close()

	conn := dial(t, srv, roomID)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, "pong", frame.Type)
}

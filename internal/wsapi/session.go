// Package wsapi implements the per-connection WebSocket session
// (component C6): upgrade, a writer task draining the socket registry's
// outbound queue, and a read loop decoding tagged client messages and
// dispatching them to the engine (spec.md §4.5).
package wsapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/eratosthenes/geoguess-server/internal/engine"
	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/identity"
	"github.com/eratosthenes/geoguess-server/internal/logging"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
	"github.com/eratosthenes/geoguess-server/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server upgrades connections and drives the engine on their behalf.
type Server struct {
	engine   *engine.Engine
	registry *sockets.Registry
	shipper  *telemetry.Shipper
}

// NewServer builds a wsapi.Server over the given engine and socket
// registry (the same registry the engine itself broadcasts through).
// shipper may be nil (telemetry disabled).
func NewServer(eng *engine.Engine, registry *sockets.Registry, shipper *telemetry.Shipper) *Server {
	return &Server{engine: eng, registry: registry, shipper: shipper}
}

// clientMessage is the envelope every client-sent frame is decoded
// into first, to read its discriminator before decoding the rest.
type clientMessage struct {
	Type string `json:"type"`

	// userConnected / userReConnected
	Username    string `json:"username"`
	AvatarEmoji string `json:"avatarEmoji"`

	// chatMessage
	Content       string   `json:"content"`
	AttachmentIDs []string `json:"attachmentIds"`

	// saveGuess / submitGuess style payloads reuse lat/lng directly on
	// roundStarted's sibling events where applicable.
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Serve upgrades the HTTP connection to a WebSocket and runs the
// session until the client disconnects. claims has already been
// verified by the caller (httpapi's handleWebSocket).
func (s *Server) Serve(c *gin.Context, claims identity.Claims) {
	roomID := c.Param("id")
	if !s.engine.RoomExists(roomID) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("wsapi: upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	socketID, outbound := s.registry.Add()
	defer s.registry.Remove(socketID)

	done := make(chan struct{})
	go s.writerTask(conn, outbound, done)

	s.readLoop(conn, roomID, claims, socketID)

	close(done)
	s.engine.Disconnect(roomID, claims.PrivateID)
}

func (s *Server) writerTask(conn *websocket.Conn, outbound <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case payload, ok := <-outbound:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, roomID string, claims identity.Claims, socketID sockets.ID) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logging.Warn("wsapi: malformed frame, skipping", map[string]interface{}{
				"room_id": roomID,
				"error":   err.Error(),
			})
			continue
		}

		logging.Info("client_sent_ws_message", map[string]interface{}{
			"task":    telemetry.TaskClientSentMessage,
			"type":    msg.Type,
			"room_id": roomID,
		})
		s.shipper.Record(telemetry.TaskClientSentMessage, map[string]interface{}{
			"type":    msg.Type,
			"room_id": roomID,
		})

		s.dispatch(roomID, claims, socketID, msg)
	}
}

func (s *Server) dispatch(roomID string, claims identity.Claims, socketID sockets.ID, msg clientMessage) {
	switch msg.Type {
	case "userConnected", "userReConnected":
		if _, err := s.engine.Connect(roomID, claims.PublicID, claims.PrivateID, msg.Username, msg.AvatarEmoji, socketID); err != nil {
			logging.Warn("wsapi: connect rejected", map[string]interface{}{"room_id": roomID, "error": err.Error()})
		}
	case "userDisconnected":
		s.engine.Disconnect(roomID, claims.PrivateID)
	case "chatMessage":
		if err := s.engine.ChatMessage(roomID, claims.PrivateID, msg.Content, msg.AttachmentIDs); err != nil {
			logging.Warn("wsapi: chat message rejected", map[string]interface{}{"room_id": roomID, "error": err.Error()})
		}
	case "roundStarted":
		if err := s.engine.RoundStarted(roomID, claims.PrivateID); err != nil {
			logging.Warn("wsapi: round start rejected", map[string]interface{}{"room_id": roomID, "error": err.Error()})
		}
	case "ping":
		s.engine.Pong(socketID)
	case "saveGuess":
		if err := s.engine.SaveGuess(roomID, claims.PrivateID, geo.LatLng{Lat: msg.Lat, Lng: msg.Lng}); err != nil {
			logging.Warn("wsapi: save guess rejected", map[string]interface{}{"room_id": roomID, "error": err.Error()})
		}
	case "submitGuess":
		if err := s.engine.SubmitGuess(roomID, claims.PrivateID, geo.LatLng{Lat: msg.Lat, Lng: msg.Lng}); err != nil {
			logging.Warn("wsapi: submit guess rejected", map[string]interface{}{"room_id": roomID, "error": err.Error()})
		}
	case "revokeGuess":
		if err := s.engine.RevokeGuess(roomID, claims.PrivateID); err != nil {
			logging.Warn("wsapi: revoke guess rejected", map[string]interface{}{"room_id": roomID, "error": err.Error()})
		}
	default:
		logging.Warn("wsapi: unknown client message type, skipping", map[string]interface{}{
			"room_id": roomID,
			"type":    msg.Type,
		})
	}
}

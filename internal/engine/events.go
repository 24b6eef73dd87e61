package engine

import (
	"encoding/json"

	"github.com/eratosthenes/geoguess-server/internal/logging"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// Server-originated wire events (spec.md §6). Each carries its own
// "type" discriminator; most have no payload beyond that.

type simpleEvent struct {
	Type string `json:"type"`
}

type userConnectedEvent struct {
	Type        string `json:"type"`
	PublicID    string `json:"publicId"`
	Username    string `json:"username"`
	AvatarEmoji string `json:"avatarEmoji"`
}

type userDisconnectedEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type userBannedEvent struct {
	Type     string `json:"type"`
	PublicID string `json:"publicId"`
}

type tickEvent struct {
	Type    string `json:"type"`
	Payload int    `json:"payload"`
}

type pongEvent struct {
	Type string `json:"type"`
}

func newSimpleEvent(eventType string) simpleEvent { return simpleEvent{Type: eventType} }

// broadcastValue marshals v (expected to carry its own "type" field) and
// fans it out to ids. Marshal failures are logged, never propagated -
// broadcast is best-effort (spec.md §5, §7).
func (e *Engine) broadcastValue(ids []sockets.ID, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error("engine: failed to marshal broadcast event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	e.sockets.Broadcast(payload, ids)
}

// sendValue marshals v and sends it to a single socket (e.g. pong).
func (e *Engine) sendValue(id sockets.ID, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error("engine: failed to marshal unicast event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	e.sockets.Send(id, payload)
}

func (e *Engine) broadcastChatEntry(ids []sockets.ID, entry rooms.ChatEntry) {
	e.broadcastValue(ids, entry.View())
}

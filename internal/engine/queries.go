package engine

import (
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// RoomExists reports whether roomID names a live room.
func (e *Engine) RoomExists(roomID string) bool {
	return e.store.Exists(roomID)
}

// CanConnect reports whether publicID/username could successfully
// Connect to roomID right now, without mutating anything - the
// pre-flight check the client runs before opening a websocket
// (spec.md §6, GET /rooms/:id/can-connect).
func (e *Engine) CanConnect(roomID, publicID, privateID, username string) error {
	var err error
	found := e.store.With(roomID, func(r *rooms.Room) {
		if r.IsBanned(publicID) {
			err = ErrUserBanned
			return
		}
		if graphemeCount(username) > rooms.MaxUsernameLen {
			err = ErrUsernameTooLong
			return
		}
		if r.HasUsername(username, privateID) {
			err = ErrUserAlreadyInRoom
		}
	})
	if !found {
		return ErrRoomNotFound
	}
	return err
}

// AmIHost reports whether privateID currently holds the host seat.
func (e *Engine) AmIHost(roomID, privateID string) (bool, error) {
	var isHost bool
	found := e.store.With(roomID, func(r *rooms.Room) {
		if m := r.MemberByPrivateID(privateID); m != nil {
			isHost = m.IsHost
		}
	})
	if !found {
		return false, ErrRoomNotFound
	}
	return isHost, nil
}

// Users returns the room's members, sorted by score descending, as
// their wire projection.
func (e *Engine) Users(roomID string) ([]rooms.MemberView, error) {
	var views []rooms.MemberView
	found := e.store.With(roomID, func(r *rooms.Room) {
		sorted := r.MembersSortedByScore()
		views = make([]rooms.MemberView, len(sorted))
		for i, m := range sorted {
			views[i] = m.View()
		}
	})
	if !found {
		return nil, ErrRoomNotFound
	}
	return views, nil
}

// Messages returns the room's retained chat log, oldest first, as its
// wire projection.
func (e *Engine) Messages(roomID string) ([]rooms.ChatEntryView, error) {
	var views []rooms.ChatEntryView
	found := e.store.With(roomID, func(r *rooms.Room) {
		views = make([]rooms.ChatEntryView, len(r.ChatLog))
		for i, entry := range r.ChatLog {
			views[i] = entry.View()
		}
	})
	if !found {
		return nil, ErrRoomNotFound
	}
	return views, nil
}

// Status returns the room's current status as its wire projection.
func (e *Engine) Status(roomID string) (rooms.StatusView, error) {
	var view rooms.StatusView
	found := e.store.With(roomID, func(r *rooms.Room) {
		view = r.Status.View()
	})
	if !found {
		return rooms.StatusView{}, ErrRoomNotFound
	}
	return view, nil
}

// Pong sends a unicast pong frame to the given socket, the reply to a
// client-sent ping keepalive.
func (e *Engine) Pong(socketID sockets.ID) {
	e.sendValue(socketID, pongEvent{Type: "pong"})
}

package engine

import (
	"time"

	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// Connect joins publicID/privateID to roomID under socketID. If a
// member with this private id already exists - a reconnect - its
// socket and profile are updated in place and isNew is false; any grace
// timer running against that private id becomes a no-op once it fires,
// since the member is found connected again. Otherwise a brand new
// member is created, hosted if they are the first to arrive.
func (e *Engine) Connect(roomID, publicID, privateID, username, avatarEmoji string, socketID sockets.ID) (isNew bool, err error) {
	var bot *rooms.ChatEntry
	var targetIDs []sockets.ID

	found := e.store.With(roomID, func(r *rooms.Room) {
		if r.IsBanned(publicID) {
			err = ErrUserBanned
			return
		}
		if graphemeCount(username) > rooms.MaxUsernameLen {
			err = ErrUsernameTooLong
			return
		}

		if existing := r.MemberByPrivateID(privateID); existing != nil {
			if r.HasUsername(username, privateID) {
				err = ErrUserAlreadyInRoom
				return
			}
			sid := socketID
			existing.SocketID = &sid
			existing.Name = username
			existing.AvatarEmoji = avatarEmoji
			isNew = false
			return
		}

		if r.HasUsername(username, privateID) {
			err = ErrUserAlreadyInRoom
			return
		}

		sid := socketID
		member := &rooms.Member{
			PublicID:         publicID,
			PrivateID:        privateID,
			Name:             username,
			AvatarEmoji:      avatarEmoji,
			IsHost:           len(r.Members) == 0,
			DescriptionIndex: pickDescriptionIndex(r.UsedDescriptionIndices()),
			SocketID:         &sid,
		}
		r.Members = append(r.Members, member)
		isNew = true

		entry := rooms.ChatEntry{
			ID:    rooms.NextChatID(),
			IsBot: true,
			Bot:   rooms.BotPayload{Kind: rooms.BotUserConnected, Username: username},
		}
		r.AppendChat(entry)
		bot = &entry
		targetIDs = r.SocketIDs()
	})

	if !found {
		return false, ErrRoomNotFound
	}
	if err != nil {
		return false, err
	}

	if bot != nil {
		e.broadcastValue(targetIDs, userConnectedEvent{
			Type:        "userConnected",
			PublicID:    publicID,
			Username:    username,
			AvatarEmoji: avatarEmoji,
		})
		e.broadcastChatEntry(targetIDs, *bot)
	}
	return isNew, nil
}

// Disconnect clears the member's live socket and starts the grace
// window: if they haven't reconnected by the time it elapses, they are
// removed from the room and the host seat reassigned if they held it.
func (e *Engine) Disconnect(roomID, privateID string) {
	found := e.store.With(roomID, func(r *rooms.Room) {
		if m := r.MemberByPrivateID(privateID); m != nil {
			m.SocketID = nil
		}
	})
	if !found {
		return
	}
	go e.expireAfterGrace(roomID, privateID)
}

func (e *Engine) expireAfterGrace(roomID, privateID string) {
	time.Sleep(DisconnectGrace)

	var bot *rooms.ChatEntry
	var username string
	var targetIDs []sockets.ID

	e.store.With(roomID, func(r *rooms.Room) {
		m := r.MemberByPrivateID(privateID)
		if m == nil || m.Connected() {
			return
		}
		username = m.Name
		wasHost := m.IsHost
		r.RemoveMember(privateID)
		if wasHost {
			r.ReassignHost()
		}

		entry := rooms.ChatEntry{
			ID:    rooms.NextChatID(),
			IsBot: true,
			Bot:   rooms.BotPayload{Kind: rooms.BotUserDisconnected, Username: username},
		}
		r.AppendChat(entry)
		bot = &entry
		targetIDs = r.SocketIDs()
	})

	if bot != nil {
		e.broadcastChatEntry(targetIDs, *bot)
		e.broadcastValue(targetIDs, userDisconnectedEvent{Type: "userDisconnected", Username: username})
	}
}

package engine

import (
	"github.com/eratosthenes/geoguess-server/internal/logging"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// ChatMessage appends a player-authored chat entry and broadcasts it.
// Muted members and over-length messages are rejected silently - the
// sender sees no echo and no error frame, only a log line - matching
// the original implementation's behaviour for these two cases.
func (e *Engine) ChatMessage(roomID, privateID, content string, attachmentIDs []string) error {
	var err error
	var entry rooms.ChatEntry
	var targetIDs []sockets.ID
	var accepted bool

	found := e.store.With(roomID, func(r *rooms.Room) {
		m := r.MemberByPrivateID(privateID)
		if m == nil {
			err = ErrMemberNotFound
			return
		}
		if m.IsMuted {
			logging.LogRoomEvent("chat_rejected_muted", roomID, map[string]interface{}{"publicId": m.PublicID})
			return
		}
		if graphemeCount(content) > rooms.MaxMessageLen {
			logging.LogRoomEvent("chat_rejected_too_long", roomID, map[string]interface{}{"publicId": m.PublicID})
			return
		}

		attachments := make([]rooms.Attachment, len(attachmentIDs))
		for i, id := range attachmentIDs {
			attachments[i] = rooms.Attachment{ID: id}
		}
		entry = rooms.ChatEntry{
			ID:             rooms.NextChatID(),
			AuthorPublicID: m.PublicID,
			Content:        content,
			Attachments:    attachments,
		}
		r.AppendChat(entry)
		targetIDs = r.SocketIDs()
		accepted = true
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	if !accepted {
		return nil
	}
	e.broadcastChatEntry(targetIDs, entry)
	return nil
}

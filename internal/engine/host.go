package engine

import (
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// requireHost resolves the caller by private id and confirms they hold
// the room's host seat. Must run inside a store.With closure.
func requireHost(r *rooms.Room, callerPrivateID string) (*rooms.Member, error) {
	caller := r.MemberByPrivateID(callerPrivateID)
	if caller == nil {
		return nil, ErrMemberNotFound
	}
	if !caller.IsHost {
		return nil, ErrNotHost
	}
	return caller, nil
}

// Mute silences a member: their future chat messages are rejected
// silently until Unmute. Host-only.
func (e *Engine) Mute(roomID, callerPrivateID, targetPublicID string) error {
	var err error
	var targetIDs []sockets.ID
	found := e.store.With(roomID, func(r *rooms.Room) {
		if _, hostErr := requireHost(r, callerPrivateID); hostErr != nil {
			err = hostErr
			return
		}
		target := r.MemberByPublicID(targetPublicID)
		if target == nil {
			err = ErrMemberNotFound
			return
		}
		target.IsMuted = true
		targetIDs = r.SocketIDs()
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	e.broadcastValue(targetIDs, newSimpleEvent("userMuted"))
	return nil
}

// Unmute lifts a mute imposed by Mute. Host-only.
func (e *Engine) Unmute(roomID, callerPrivateID, targetPublicID string) error {
	var err error
	var targetIDs []sockets.ID
	found := e.store.With(roomID, func(r *rooms.Room) {
		if _, hostErr := requireHost(r, callerPrivateID); hostErr != nil {
			err = hostErr
			return
		}
		target := r.MemberByPublicID(targetPublicID)
		if target == nil {
			err = ErrMemberNotFound
			return
		}
		target.IsMuted = false
		targetIDs = r.SocketIDs()
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	e.broadcastValue(targetIDs, newSimpleEvent("userUnmuted"))
	return nil
}

// Ban removes a member from the room and adds their public id to the
// ban list, preventing any future Connect under that identity. If the
// banned member was host, the seat is reassigned. Host-only.
func (e *Engine) Ban(roomID, callerPrivateID, targetPublicID string) error {
	var err error
	var targetIDs []sockets.ID
	found := e.store.With(roomID, func(r *rooms.Room) {
		if _, hostErr := requireHost(r, callerPrivateID); hostErr != nil {
			err = hostErr
			return
		}
		target := r.MemberByPublicID(targetPublicID)
		if target == nil {
			err = ErrMemberNotFound
			return
		}
		wasHost := target.IsHost
		r.Banned[targetPublicID] = struct{}{}
		r.RemoveMember(target.PrivateID)
		if wasHost {
			r.ReassignHost()
		}
		targetIDs = r.SocketIDs()
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	e.broadcastValue(targetIDs, userBannedEvent{Type: "userBanned", PublicID: targetPublicID})
	return nil
}

// ChangeScore adjusts a member's score by amount, clamped at zero so it
// never underflows the unsigned score field. Host-only.
func (e *Engine) ChangeScore(roomID, callerPrivateID, targetPublicID string, amount int64) error {
	var err error
	var targetIDs []sockets.ID
	found := e.store.With(roomID, func(r *rooms.Room) {
		if _, hostErr := requireHost(r, callerPrivateID); hostErr != nil {
			err = hostErr
			return
		}
		target := r.MemberByPublicID(targetPublicID)
		if target == nil {
			err = ErrMemberNotFound
			return
		}
		if amount < 0 && uint64(-amount) > target.Score {
			target.Score = 0
		} else if amount < 0 {
			target.Score -= uint64(-amount)
		} else {
			target.Score += uint64(amount)
		}
		targetIDs = r.SocketIDs()
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	e.broadcastValue(targetIDs, newSimpleEvent("userScoreChanged"))
	return nil
}

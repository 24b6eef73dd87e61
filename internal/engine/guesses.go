package engine

import (
	"time"

	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// finishOutcome describes the observable effects of a round ending,
// computed under the room lock and broadcast once it's released.
type finishOutcome struct {
	bot          rooms.ChatEntry
	gameFinished bool
}

// SaveGuess records a pending guess without submitting it. It is always
// accepted, whether the room is Waiting or Playing (spec.md §4.3, "the
// original implementation's permissive behaviour is preserved").
func (e *Engine) SaveGuess(roomID, privateID string, point geo.LatLng) error {
	var err error
	found := e.store.With(roomID, func(r *rooms.Room) {
		m := r.MemberByPrivateID(privateID)
		if m == nil {
			err = ErrMemberNotFound
			return
		}
		m.LastGuess = &point
	})
	if !found {
		return ErrRoomNotFound
	}
	return err
}

// SubmitGuess finalizes a member's guess for the round. Submission only
// counts toward unanimity while the room is Playing; while Waiting the
// guess is saved but submitted_guess is left false, matching SaveGuess.
// If every member has now submitted, the round finishes immediately.
func (e *Engine) SubmitGuess(roomID, privateID string, point geo.LatLng) error {
	var err error
	var targetIDs []sockets.ID
	var finish *finishOutcome

	found := e.store.With(roomID, func(r *rooms.Room) {
		m := r.MemberByPrivateID(privateID)
		if m == nil {
			err = ErrMemberNotFound
			return
		}
		m.LastGuess = &point
		if r.Status.Kind == rooms.StatusPlaying {
			m.SubmittedGuess = true
		}
		targetIDs = r.SocketIDs()
		if r.Status.Kind == rooms.StatusPlaying && r.AllSubmitted() {
			finish = e.finishRoundLocked(r)
		}
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	e.broadcastValue(targetIDs, newSimpleEvent("guessSubmitted"))
	if finish != nil {
		e.emitFinish(targetIDs, finish)
	}
	return nil
}

// RevokeGuess un-submits a member's guess, e.g. so they can correct it
// before the timer expires.
func (e *Engine) RevokeGuess(roomID, privateID string) error {
	var err error
	var targetIDs []sockets.ID

	found := e.store.With(roomID, func(r *rooms.Room) {
		m := r.MemberByPrivateID(privateID)
		if m == nil {
			err = ErrMemberNotFound
			return
		}
		m.SubmittedGuess = false
		targetIDs = r.SocketIDs()
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	e.broadcastValue(targetIDs, newSimpleEvent("guessRevoked"))
	return nil
}

// RoundStarted begins a new round: a target location is drawn, guesses
// are cleared, and if this is the first round of a fresh game, scores
// reset to zero. It starts the round's countdown timer.
func (e *Engine) RoundStarted(roomID, privateID string) error {
	var err error
	var bot rooms.ChatEntry
	var targetIDs []sockets.ID
	var generation uint64

	found := e.store.With(roomID, func(r *rooms.Room) {
		if r.MemberByPrivateID(privateID) == nil {
			err = ErrMemberNotFound
			return
		}
		freshGame := r.RoundsLeft == rooms.RoundsPerGame
		target := e.locations.Random()
		r.Status = rooms.Status{Kind: rooms.StatusPlaying, CurrentLocation: target}
		r.RoundGeneration++
		generation = r.RoundGeneration
		for _, m := range r.Members {
			m.LastGuess = nil
			m.SubmittedGuess = false
			m.LastRoundScore = nil
			if freshGame {
				m.Score = 0
			}
		}

		roundNumber := rooms.RoundsPerGame - r.RoundsLeft + 1
		bot = rooms.ChatEntry{
			ID:    rooms.NextChatID(),
			IsBot: true,
			Bot:   rooms.BotPayload{Kind: rooms.BotRoundStarted, RoundNumber: roundNumber, RoundsPerGame: rooms.RoundsPerGame},
		}
		r.AppendChat(bot)
		targetIDs = r.SocketIDs()
	})
	if !found {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	e.broadcastChatEntry(targetIDs, bot)
	e.broadcastValue(targetIDs, newSimpleEvent("roundStarted"))
	e.startTimer(roomID, generation)
	return nil
}

// finishRoundLocked performs the round-finish transition: it must be
// called with the room's lock held (from inside store.With). Scores are
// settled against the just-finished location, rounds_left is
// decremented, and a bot chat entry recording the outcome is appended.
func (e *Engine) finishRoundLocked(r *rooms.Room) *finishOutcome {
	location := r.Status.CurrentLocation
	r.Status = rooms.Status{Kind: rooms.StatusWaiting, PreviousLocation: &location}

	for _, m := range r.Members {
		if m.LastGuess != nil {
			score := geo.Score(*m.LastGuess, location)
			m.LastRoundScore = &score
			m.Score += score
		} else {
			m.LastRoundScore = nil
		}
		m.SubmittedGuess = false
	}

	decremented := maxInt(r.RoundsLeft-1, 0)
	gameFinished := decremented == 0

	var roundNumber int
	if gameFinished {
		roundNumber = rooms.RoundsPerGame
		r.RoundsLeft = rooms.RoundsPerGame
	} else {
		roundNumber = rooms.RoundsPerGame - decremented
		r.RoundsLeft = decremented
	}

	bot := rooms.ChatEntry{
		ID:    rooms.NextChatID(),
		IsBot: true,
		Bot:   rooms.BotPayload{Kind: rooms.BotRoundEnded, RoundNumber: roundNumber, RoundsPerGame: rooms.RoundsPerGame},
	}
	r.AppendChat(bot)
	return &finishOutcome{bot: bot, gameFinished: gameFinished}
}

func (e *Engine) emitFinish(targetIDs []sockets.ID, finish *finishOutcome) {
	e.broadcastChatEntry(targetIDs, finish.bot)
	if finish.gameFinished {
		e.broadcastValue(targetIDs, newSimpleEvent("gameFinished"))
	} else {
		e.broadcastValue(targetIDs, newSimpleEvent("roundFinished"))
	}
}

// startTimer launches the round countdown for roomID's current round,
// identified by generation (the room's RoundGeneration at the moment
// this round started). Each second it re-checks, under the room lock,
// that the room is still Playing *this* generation, exiting silently
// otherwise - either a unanimous submission already ended the round, or
// a later round has already started and this goroutine is a stale
// leftover from a round that ended before its timer finished sleeping.
// Checking generation inside the same store.With critical section that
// performs the round-finish transition (rather than via a separate
// "is a timer already running" flag) is what keeps a stale timer from
// ever finishing the wrong round: RoundStarted bumps RoundGeneration
// under the identical per-room lock, so the two can never interleave.
func (e *Engine) startTimer(roomID string, generation uint64) {
	go func() {
		for tick := TickStart; tick >= 0; tick-- {
			time.Sleep(TickInterval)

			var playing bool
			var targetIDs []sockets.ID
			found := e.store.With(roomID, func(r *rooms.Room) {
				if r.Status.Kind != rooms.StatusPlaying || r.RoundGeneration != generation {
					return
				}
				playing = true
				targetIDs = r.SocketIDs()
			})
			if !found || !playing {
				return
			}
			e.broadcastValue(targetIDs, tickEvent{Type: "tick", Payload: tick})

			if tick == 0 {
				var finish *finishOutcome
				var finishTargets []sockets.ID
				e.store.With(roomID, func(r *rooms.Room) {
					if r.Status.Kind != rooms.StatusPlaying || r.RoundGeneration != generation {
						return
					}
					finishTargets = r.SocketIDs()
					finish = e.finishRoundLocked(r)
				})
				if finish != nil {
					e.emitFinish(finishTargets, finish)
				}
				return
			}
		}
	}()
}

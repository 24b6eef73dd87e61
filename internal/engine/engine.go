// Package engine implements the room state machine (component C5): the
// single place where a connect, a guess, a chat message or a host
// action turns into a mutation of room state plus the broadcasts that
// follow from it. Both the WS session (C6) and the HTTP handlers (C7)
// drive rooms exclusively through this package, so the two transports
// can never disagree about what a given action does (spec.md §4.6).
package engine

import (
	"math/rand"
	"time"

	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// DisconnectGrace is how long a member's seat is held open after their
// socket drops before they are removed from the room (spec.md §4.3).
const DisconnectGrace = 5 * time.Second

// TickInterval is the period of the round countdown.
const TickInterval = 1 * time.Second

// TickStart is the first tick value broadcast when a round begins; the
// round finishes after the tick=0 broadcast if it hasn't already ended
// by unanimous submission.
const TickStart = 100

// Engine owns the room store and the socket registry and is the sole
// mutator of room state. It is safe for concurrent use.
type Engine struct {
	store     *rooms.Store
	sockets   *sockets.Registry
	locations *geo.Locations
}

// New builds an Engine over the given store, socket registry and
// location pool.
func New(store *rooms.Store, registry *sockets.Registry, locations *geo.Locations) *Engine {
	return &Engine{
		store:     store,
		sockets:   registry,
		locations: locations,
	}
}

// CreateRoom allocates a fresh, empty room and returns its id.
func (e *Engine) CreateRoom() (string, error) {
	return e.store.Create()
}

// pickDescriptionIndex returns a description index not already in use
// in the room, falling back to a uniformly random one if every
// description is already assigned (spec.md §3, "best-effort, no hard
// uniqueness invariant").
func pickDescriptionIndex(used []int) int {
	taken := make(map[int]bool, len(used))
	for _, u := range used {
		taken[u] = true
	}
	if len(taken) >= rooms.NumberOfDescriptions {
		return rand.Intn(rooms.NumberOfDescriptions)
	}
	for {
		idx := rand.Intn(rooms.NumberOfDescriptions)
		if !taken[idx] {
			return idx
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

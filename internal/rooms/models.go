// Package rooms holds the room data model and the process-wide room
// store (component C4). Mutation logic that must respect the state
// machine lives one layer up, in internal/engine; this package owns
// storage, shape and the bookkeeping invariants that don't need the
// engine's broadcast side-effects (FIFO chat eviction, id allocation).
package rooms

import (
	"sync/atomic"

	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// Tunables from spec.md §3.
const (
	LastMessagesCap      = 50
	RoundsPerGame        = 10
	MaxUsernameLen       = 20
	MaxMessageLen        = 500
	NumberOfDescriptions = 24
)

var nextChatID uint64

// NextChatID allocates a fresh, process-wide monotonic chat entry id.
// Ids never collide within a process (spec.md §4.3 policy invariants).
func NextChatID() uint64 {
	return atomic.AddUint64(&nextChatID, 1)
}

// Member is one participant of a room.
type Member struct {
	PublicID         string
	PrivateID        string
	Name             string
	AvatarEmoji      string
	Score            uint64
	IsHost           bool
	DescriptionIndex int
	SocketID         *sockets.ID
	LastGuess        *geo.LatLng
	SubmittedGuess   bool
	LastRoundScore   *uint64
	IsMuted          bool
}

// Connected reports whether the member currently has a live socket.
func (m *Member) Connected() bool {
	return m.SocketID != nil
}

// BotPayloadKind discriminates the bot-authored chat payload variants.
type BotPayloadKind string

const (
	BotRoundStarted     BotPayloadKind = "roundStarted"
	BotRoundEnded       BotPayloadKind = "roundEnded"
	BotUserConnected    BotPayloadKind = "userConnected"
	BotUserDisconnected BotPayloadKind = "userDisconnected"
)

// BotPayload is the tagged payload of a bot-authored chat entry.
type BotPayload struct {
	Kind          BotPayloadKind
	RoundNumber   int    // RoundStarted, RoundEnded
	RoundsPerGame int    // RoundStarted, RoundEnded
	Username      string // UserConnected, UserDisconnected
}

// Attachment is an opaque reference to an uploaded image (C7 /uploads).
type Attachment struct {
	ID string
}

// ChatEntry is a tagged union: either authored by a player or by the
// engine itself ("bot").
type ChatEntry struct {
	ID uint64

	IsBot bool

	// Player-authored fields (IsBot == false).
	AuthorPublicID string
	Content        string
	Attachments    []Attachment

	// Bot-authored field (IsBot == true).
	Bot BotPayload
}

// StatusKind discriminates the room status tagged union.
type StatusKind string

const (
	StatusWaiting StatusKind = "waiting"
	StatusPlaying StatusKind = "playing"
)

// Status is Waiting{previous_location?} or Playing{current_location}.
type Status struct {
	Kind               StatusKind
	PreviousLocation   *geo.LatLng // Waiting only
	CurrentLocation    geo.LatLng  // Playing only
}

// Room is one named session: members, chat log, ban list and status.
type Room struct {
	ID         string
	Members    []*Member
	ChatLog    []ChatEntry
	Banned     map[string]struct{}
	RoundsLeft int
	Status     Status

	// RoundGeneration increments every time a round starts. It is
	// mutated under the same per-room lock as Status, so a countdown
	// timer task can compare against it inside the same critical
	// section it reads Status in and tell "this room is still playing
	// the round I'm ticking for" apart from "this room started a new
	// round while I was asleep" - the two are otherwise
	// indistinguishable from Status alone.
	RoundGeneration uint64
}

// NewRoom builds a fresh, empty room in its initial Waiting state.
func NewRoom(id string) *Room {
	return &Room{
		ID:         id,
		Members:    nil,
		ChatLog:    nil,
		Banned:     make(map[string]struct{}),
		RoundsLeft: RoundsPerGame,
		Status:     Status{Kind: StatusWaiting},
	}
}

// AppendChat appends a chat entry, evicting the oldest entry first if
// the log is at capacity (invariant: |chat_log| <= LastMessagesCap).
func (r *Room) AppendChat(entry ChatEntry) {
	if len(r.ChatLog) >= LastMessagesCap {
		r.ChatLog = r.ChatLog[1:]
	}
	r.ChatLog = append(r.ChatLog, entry)
}

// MemberByPrivateID finds a member by their private id, the key used to
// detect reconnects.
func (r *Room) MemberByPrivateID(privateID string) *Member {
	for _, m := range r.Members {
		if m.PrivateID == privateID {
			return m
		}
	}
	return nil
}

// MemberByPublicID finds a member by their public id.
func (r *Room) MemberByPublicID(publicID string) *Member {
	for _, m := range r.Members {
		if m.PublicID == publicID {
			return m
		}
	}
	return nil
}

// HasUsername reports whether some member other than excludePrivateID
// already uses name.
func (r *Room) HasUsername(name, excludePrivateID string) bool {
	for _, m := range r.Members {
		if m.Name == name && m.PrivateID != excludePrivateID {
			return true
		}
	}
	return false
}

// IsBanned reports whether publicID is on the ban list.
func (r *Room) IsBanned(publicID string) bool {
	_, banned := r.Banned[publicID]
	return banned
}

// RemoveMember deletes the member with the given private id, preserving
// the relative order of the rest (host-reassignment order is insertion
// order, spec.md §3).
func (r *Room) RemoveMember(privateID string) {
	for i, m := range r.Members {
		if m.PrivateID == privateID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return
		}
	}
}

// ReassignHost promotes the current head of Members to host, if any.
// Exactly one member is host whenever Members is non-empty (invariant 2).
func (r *Room) ReassignHost() {
	if len(r.Members) == 0 {
		return
	}
	r.Members[0].IsHost = true
}

// UsedDescriptionIndices lists the description indices currently in use
// by this room's members, for collision avoidance at join time.
func (r *Room) UsedDescriptionIndices() []int {
	used := make([]int, 0, len(r.Members))
	for _, m := range r.Members {
		used = append(used, m.DescriptionIndex)
	}
	return used
}

// AllSubmitted reports whether every member has finalized their guess
// this round - the unanimity condition that ends a round early.
func (r *Room) AllSubmitted() bool {
	if len(r.Members) == 0 {
		return false
	}
	for _, m := range r.Members {
		if !m.SubmittedGuess {
			return false
		}
	}
	return true
}

// SocketIDs snapshots the live socket ids of this room's members, for
// broadcast fan-out taken under the room lock (spec.md §5).
func (r *Room) SocketIDs() []sockets.ID {
	ids := make([]sockets.ID, 0, len(r.Members))
	for _, m := range r.Members {
		if m.SocketID != nil {
			ids = append(ids, *m.SocketID)
		}
	}
	return ids
}

// MembersSortedByScore returns a copy of Members ordered by score
// descending, stable on ties (insertion order), matching the original
// implementation's users_as_json ordering.
func (r *Room) MembersSortedByScore() []*Member {
	sorted := make([]*Member, len(r.Members))
	copy(sorted, r.Members)
	// insertion sort keeps ties in insertion order.
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && sorted[j-1].Score < sorted[j].Score {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			j--
		}
	}
	return sorted
}

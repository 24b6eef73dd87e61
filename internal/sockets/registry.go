// Package sockets implements the process-wide registry of live WebSocket
// write-ends keyed by monotonic socket id (component C3).
package sockets

import (
	"sync"
	"sync/atomic"

	"github.com/eratosthenes/geoguess-server/internal/logging"
)

// ID identifies one registered outbound queue.
type ID uint64

var nextID uint64

// Registry is oblivious to rooms: rooms own the set of ids they target.
// It has its own reader-writer lock around its map, as spec.md §5
// prescribes, separate from the room store's lock.
type Registry struct {
	mu      sync.RWMutex
	writers map[ID]chan []byte
}

// NewRegistry builds an empty socket registry.
func NewRegistry() *Registry {
	return &Registry{writers: make(map[ID]chan []byte)}
}

// Add registers a fresh outbound queue and returns its id. The queue
// holds up to 64 pending payloads; once it is full, further payloads for
// this socket are dropped with a warning (see trySend) and the consumer
// stays connected.
func (r *Registry) Add() (ID, <-chan []byte) {
	id := ID(atomic.AddUint64(&nextID, 1))
	ch := make(chan []byte, 64)
	r.mu.Lock()
	r.writers[id] = ch
	r.mu.Unlock()
	logging.LogSocketEvent("registered", uint64(id), nil)
	return id, ch
}

// Remove unregisters a socket id, idempotently, and closes its queue so
// any writer task draining it can exit.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	ch, ok := r.writers[id]
	if ok {
		delete(r.writers, id)
	}
	r.mu.Unlock()
	if ok {
		close(ch)
		logging.LogSocketEvent("removed", uint64(id), nil)
	}
}

// Send is a best-effort single-recipient send: if the channel is closed
// or full, it logs and continues rather than blocking or panicking.
func (r *Registry) Send(id ID, payload []byte) {
	r.mu.RLock()
	ch, ok := r.writers[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.trySend(id, ch, payload)
}

// Broadcast fans a payload out to every id present in the target set,
// iterating the registry's current writers. Per-recipient failures are
// logged, never propagated: spec.md §5's best-effort fan-out contract.
func (r *Registry) Broadcast(payload []byte, ids []ID) {
	if len(ids) == 0 {
		return
	}
	target := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		target[id] = struct{}{}
	}

	r.mu.RLock()
	recipients := make(map[ID]chan []byte, len(target))
	for id, ch := range r.writers {
		if _, want := target[id]; want {
			recipients[id] = ch
		}
	}
	r.mu.RUnlock()

	for id, ch := range recipients {
		r.trySend(id, ch, payload)
	}
}

func (r *Registry) trySend(id ID, ch chan []byte, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Warn("send on closed socket queue", map[string]interface{}{
				"socket_id": uint64(id),
			})
		}
	}()
	select {
	case ch <- payload:
	default:
		logging.Warn("dropping message to slow socket consumer", map[string]interface{}{
			"socket_id": uint64(id),
		})
	}
}

// Count reports the number of live registry entries, used by the
// periodic sockets_count telemetry sample (spec.md §6).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.writers)
}

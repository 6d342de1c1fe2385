package realtime

import (
	"log/slog"
	"sync"
)

// Hub owns in-memory session rooms and provides stable room handles.
// It is intentionally minimal: session state lives behind session.Store;
// rooms only track who is watching.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]*Room),
	}
}

// GetOrCreateRoom returns a stable in-memory room handle for a session.
func (h *Hub) GetOrCreateRoom(sessionID string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[sessionID]; ok {
		return r
	}

	r := NewRoom(h.log, sessionID)
	h.rooms[sessionID] = r
	return r
}

// Room returns the existing room for a session, if any. Publishers use this
// so that a session nobody watches never allocates a room.
func (h *Hub) Room(sessionID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[sessionID]
	return r, ok
}

package realtime

import (
	"log/slog"
	"sync"

	v1 "splitbite/shared/contracts/orders/v1"
)

// Room is the in-memory watcher membership + broadcast fanout primitive for
// one order session.
//
// Concurrency guarantees:
// - Join/Leave are safe under concurrent Broadcast.
// - Broadcast never blocks (drops under backpressure).
// - Broadcast is panic-safe because Client.Send is never closed by the server.
type Room struct {
	log       *slog.Logger
	SessionID string

	mu      sync.RWMutex
	members map[string]*Client
}

// NewRoom constructs a room for one session's watchers.
func NewRoom(log *slog.Logger, sessionID string) *Room {
	return &Room{
		log:       log,
		SessionID: sessionID,
		members:   make(map[string]*Client),
	}
}

// Join adds a client to membership.
func (r *Room) Join(client *Client) {
	if r == nil || client == nil || client.ID == "" {
		return
	}

	r.mu.Lock()
	r.members[client.ID] = client
	r.mu.Unlock()

	r.log.Info("room.member.join", "session_id", r.SessionID, "client_id", client.ID)
}

// Leave removes a client from membership and signals shutdown for that client.
func (r *Room) Leave(clientID string) {
	if r == nil || clientID == "" {
		return
	}

	var cl *Client

	r.mu.Lock()
	cl = r.members[clientID]
	delete(r.members, clientID)
	r.mu.Unlock()

	// Signal client shutdown after removing from membership.
	// This ordering avoids race windows where a broadcaster still holds a pointer
	// while the client goroutines are being torn down.
	if cl != nil {
		cl.Close()
	}

	r.log.Info("room.member.leave", "session_id", r.SessionID, "client_id", clientID)
}

// Size returns the current watcher count.
func (r *Room) Size() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast fanouts an envelope to all members and reports how many sends
// were dropped. Non-blocking: a member with a full queue or one that is
// shutting down is skipped rather than stalling the room.
func (r *Room) Broadcast(env v1.Envelope) (delivered, dropped int) {
	if r == nil {
		return 0, 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if m == nil {
			continue
		}

		select {
		case <-m.Done():
			// Skip clients that are shutting down.
			continue
		default:
		}

		select {
		case m.Send <- env:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

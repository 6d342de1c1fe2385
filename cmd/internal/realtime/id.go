package realtime

import (
	"time"

	"splitbite/cmd/internal/ids"
)

// NewClientID returns a ULID used as websocket connection id.
func NewClientID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewEnvelopeID returns a ULID used as envelope id.
// ULID is preferable to random hex for tracing and ordering in logs.
func NewEnvelopeID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

package session

import (
	"context"
	"time"
)

// Store is the persistence boundary owning Session aggregates.
//
// Requirements:
//   - Get and ListFor return consistent snapshots, safe to read while writers
//     proceed.
//   - Update replaces the whole aggregate; callers serialize their
//     read-modify-write cycles per session (see Service).
//   - Sweep removes sessions created before the cutoff regardless of status;
//     a session vanishing mid-read surfaces as ErrNotFound to later calls.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error

	// ListFor returns summaries of sessions where identity is the host or a
	// participant, most recently created first.
	ListFor(ctx context.Context, identity string) ([]Summary, error)

	// Sweep removes sessions with CreatedAt before cutoff and reports how
	// many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}

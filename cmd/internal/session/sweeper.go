package session

import (
	"context"
	"time"
)

// RetentionWindow is how long a session stays readable after creation.
// Sessions older than this are removed regardless of status.
const RetentionWindow = 48 * time.Hour

// DefaultSweepInterval is the reference sweep cadence. The sweep is
// idempotent: skipping or double-running one pass only shifts timing.
const DefaultSweepInterval = time.Hour

// Sweep removes sessions past the retention window and reports the count.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx, s.now().Add(-RetentionWindow))
}

// RunSweeper runs the retention sweep on a fixed interval until ctx is done.
// Sweep failures are logged and the loop keeps going.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = DefaultSweepInterval
	}

	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("session.sweep.fail", "err", err)
				continue
			}
			if removed > 0 {
				s.log.Info("session.sweep", "removed", removed)
			}
		}
	}
}

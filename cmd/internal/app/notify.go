package app

import (
	"context"
	"log/slog"

	"splitbite/cmd/internal/session"
)

// logSink satisfies session.NotificationSink by logging the push intent.
// It stands in for a real push/email sender, which is deployed as a separate
// service in production and consumes the same interface.
type logSink struct {
	log *slog.Logger
}

func (s logSink) Push(_ context.Context, recipientID, title, body string) error {
	s.log.Info("notify.push", "recipient", recipientID, "title", title, "body", body)
	return nil
}

var _ session.NotificationSink = logSink{}

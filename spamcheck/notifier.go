package spamcheck

import (
	"context"
	"log/slog"
)

// Interface for a type that can announce batch results to external
// subscribers (alerting, chat, etc).
type Notifier interface {
	// SendSpamFound fires once per sweep that detected any spam, with the
	// count for that batch.
	SendSpamFound(ctx context.Context, count int) error
}

// LogNotifier just writes the event to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendSpamFound(ctx context.Context, count int) error {
	n.Logger.Warn("spam found in sweep", "count", count)
	return nil
}

package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger. Errors are logged at
// warn level, everything else at debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	if event.TagID != "" {
		attrs = append(attrs, slog.String("tag", event.TagID))
	}

	level := slog.LevelDebug
	switch {
	case event.StateChange != nil:
		sc := event.StateChange
		attrs = append(attrs,
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}
		if sc.Attempt > 0 {
			attrs = append(attrs, slog.Int("attempt", sc.Attempt))
		}
		if sc.RetryIn > 0 {
			attrs = append(attrs, slog.Duration("retry_in", sc.RetryIn))
		}
	case event.Subscription != nil:
		attrs = append(attrs, slog.Bool("ok", event.Subscription.OK))
		if event.Subscription.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Subscription.Reason))
		}
	case event.Sync != nil:
		s := event.Sync
		attrs = append(attrs,
			slog.Uint64("tick", s.Tick),
			slog.Int("nodes", s.Nodes),
			slog.Int("written", s.Written),
			slog.Int("failed", s.Failed),
			slog.Duration("duration", s.Duration),
		)
		if s.Skipped {
			attrs = append(attrs, slog.Bool("skipped", true))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error", event.Error.Message),
			slog.String("context", event.Error.Context),
		)
		if event.Error.Panic {
			attrs = append(attrs, slog.Bool("panic", true))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

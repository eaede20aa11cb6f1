// Package notify delivers fire-and-forget player notifications.
package notify

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Event names the kind of notification.
type Event string

const (
	EventCompleted Event = "activity.completed"
	EventPhase     Event = "activity.phase"
	EventFailed    Event = "activity.failed"
	EventAttacked  Event = "war.attacked"
)

// Notification is a message addressed to one player.
type Notification struct {
	PlayerID   string         `json:"player_id"`
	Event      Event          `json:"event"`
	ActivityID string         `json:"activity_id,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	At         time.Time      `json:"at"`
}

// Notifier accepts notifications without blocking the caller on delivery.
// Delivery failures are never reported back.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogNotifier{logger: logger}
}

// Notify logs n at info level.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	l.logger.InfoContext(ctx, "notification",
		"player_id", n.PlayerID,
		"event", n.Event,
		"activity_id", n.ActivityID,
		"message", n.Message,
	)
}

// Nop discards every notification.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Notification) {}

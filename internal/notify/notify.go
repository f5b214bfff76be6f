// Package notify delivers fire-and-forget operator notifications for
// terminal upload outcomes.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"veridoc/internal/capture/models"
)

// LogNotifier writes notifications to the structured log. It is the default
// sink when no richer delivery channel is wired.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, notification models.Notification) {
	if n.logger == nil {
		return
	}
	switch notification.Kind {
	case models.NotificationError:
		n.logger.WarnContext(ctx, notification.Message, "notification_kind", string(notification.Kind))
	default:
		n.logger.InfoContext(ctx, notification.Message, "notification_kind", string(notification.Kind))
	}
}

// Recorder captures notifications for inspection. Tests and the in-process
// dashboard surface read them back.
type Recorder struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, notification models.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, notification)
	r.mu.Unlock()
}

// All returns the notifications published so far, oldest first.
func (r *Recorder) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.notifications...)
}

// Latest returns the most recent notification, or nil when none exists.
func (r *Recorder) Latest() *models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notifications) == 0 {
		return nil
	}
	latest := r.notifications[len(r.notifications)-1]
	return &latest
}

// Fanout publishes to every wired sink in order.
type Fanout []interface {
	Publish(ctx context.Context, n models.Notification)
}

func (f Fanout) Publish(ctx context.Context, notification models.Notification) {
	for _, sink := range f {
		sink.Publish(ctx, notification)
	}
}

package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

const defaultEventTimeout = 5 * time.Second

// EventForwarder publishes progress events to the events queue. Delivery is
// best-effort: failures are logged and dropped.
type EventForwarder struct {
	pub     Publisher
	logger  *slog.Logger
	timeout time.Duration
}

// NewEventForwarder creates a forwarder publishing through pub
func NewEventForwarder(pub Publisher, logger *slog.Logger) *EventForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventForwarder{pub: pub, logger: logger, timeout: defaultEventTimeout}
}

// Attach subscribes the forwarder to every event of d
func (f *EventForwarder) Attach(d *domain.EventDispatcher) {
	d.SubscribeAll(f.Handle)
}

// Handle publishes one event. It matches domain.EventHandler.
func (f *EventForwarder) Handle(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.pub.PublishJSON(ctx, EventQueueName, event.EventType(), event); err != nil {
		f.logger.Warn("failed to forward event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"user_id", event.LearnerID(),
			"error", err,
		)
	}
}

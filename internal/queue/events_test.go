package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

func TestEventForwarder_Attach(t *testing.T) {
	pub := &fakePublisher{}
	d := domain.NewEventDispatcher()
	NewEventForwarder(pub, discardLogger()).Attach(d)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	d.Publish(domain.NewExerciseCompletedEvent("u1", at, 1, "e1", 90, 12, true))
	d.Publish(domain.NewWeekCompletedEvent("u1", at, 1, 2))

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.msgs))
	}

	first := pub.msgs[0]
	if first.queue != EventQueueName || first.msgType != domain.EventExerciseCompleted {
		t.Errorf("published to %s (%s)", first.queue, first.msgType)
	}
	var body map[string]any
	if err := json.Unmarshal(first.body, &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body["type"] != domain.EventExerciseCompleted || body["exerciseId"] != "e1" || body["userId"] != "u1" {
		t.Errorf("event body = %v", body)
	}

	if pub.msgs[1].msgType != domain.EventWeekCompleted {
		t.Errorf("second event type = %s", pub.msgs[1].msgType)
	}
}

func TestEventForwarder_FailureIsSwallowed(t *testing.T) {
	f := NewEventForwarder(&fakePublisher{err: errors.New("down")}, discardLogger())
	// Must not panic or block
	f.Handle(domain.NewWeekCompletedEvent("u1", time.Now(), 3, 4))
}

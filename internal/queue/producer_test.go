package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

func TestProducer_PublishEvaluationJob(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())

	job := &EvaluationJob{UserID: "u1", ExerciseID: "basics-greeting"}
	if err := p.PublishEvaluationJob(context.Background(), job); err != nil {
		t.Fatalf("PublishEvaluationJob() error = %v", err)
	}
	if job.ID == uuid.Nil || job.CreatedAt.IsZero() {
		t.Errorf("job = %+v, want id and creation time filled in", job)
	}

	msg := pub.last(t)
	if msg.queue != EvaluationQueueName || msg.msgType != TypeEvaluationJob {
		t.Errorf("published to %s (%s)", msg.queue, msg.msgType)
	}
	var got EvaluationJob
	if err := json.Unmarshal(msg.body, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != job.ID || got.UserID != "u1" {
		t.Errorf("published job = %+v", got)
	}
}

func TestProducer_KeepsExistingIDs(t *testing.T) {
	p := NewProducer(&fakePublisher{}, discardLogger())
	id := uuid.New()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	job := &EvaluationJob{ID: id, CreatedAt: created}
	if err := p.PublishEvaluationJob(context.Background(), job); err != nil {
		t.Fatalf("PublishEvaluationJob() error = %v", err)
	}
	if job.ID != id || !job.CreatedAt.Equal(created) {
		t.Errorf("job = %+v, want id and time unchanged", job)
	}
}

func TestProducer_PublishError(t *testing.T) {
	cause := errors.New("no channel")
	p := NewProducer(&fakePublisher{err: cause}, discardLogger())

	if err := p.PublishEvaluationJob(context.Background(), &EvaluationJob{}); !errors.Is(err, cause) {
		t.Errorf("PublishEvaluationJob() error = %v, want %v", err, cause)
	}
	if err := p.PublishOutcome(context.Background(), &EvaluationOutcome{}); !errors.Is(err, cause) {
		t.Errorf("PublishOutcome() error = %v, want %v", err, cause)
	}
}

func TestNewEvaluationJob(t *testing.T) {
	sub := domain.Submission{UserID: "u9", ExerciseID: "ignored", Code: "package main"}
	spec := domain.ExerciseSpec{ID: "control-fizzbuzz"}

	job := NewEvaluationJob(sub, spec)
	if job.ID == uuid.Nil || job.CreatedAt.IsZero() {
		t.Error("id and creation time should be set")
	}
	if job.UserID != "u9" || job.ExerciseID != "control-fizzbuzz" || job.Submission.Code != "package main" {
		t.Errorf("job = %+v", job)
	}
}

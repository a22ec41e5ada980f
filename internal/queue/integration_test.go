//go:build integration

package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/queue"
)

// setupRabbitMQ starts a RabbitMQ container and returns its AMQP URL
func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get AMQP URL: %v", err)
	}
	return amqpURL
}

func connect(t *testing.T, url string) *queue.Connection {
	t.Helper()
	conn, err := queue.NewConnection(url, nil)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestIntegration_Connection(t *testing.T) {
	conn := connect(t, setupRabbitMQ(t))

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}
	for _, name := range []string{queue.EvaluationQueueName, queue.ResultQueueName, queue.EventQueueName} {
		if _, err := conn.Channel().QueueInspect(name); err != nil {
			t.Errorf("QueueInspect(%s) error = %v", name, err)
		}
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	if _, err := queue.NewConnection("amqp://invalid:5672", nil); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_EventForwarder(t *testing.T) {
	conn := connect(t, setupRabbitMQ(t))

	d := domain.NewEventDispatcher()
	queue.NewEventForwarder(conn, nil).Attach(d)
	d.Publish(domain.NewWeekCompletedEvent("u1", time.Now().UTC(), 1, 2))

	var msg amqp.Delivery
	var ok bool
	for i := 0; i < 20 && !ok; i++ {
		var err error
		if msg, ok, err = conn.Channel().Get(queue.EventQueueName, true); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !ok {
			time.Sleep(100 * time.Millisecond)
		}
	}
	if !ok {
		t.Fatal("no event was published")
	}
	if msg.Type != domain.EventWeekCompleted {
		t.Errorf("message type = %q, want %q", msg.Type, domain.EventWeekCompleted)
	}
}

func TestIntegration_JobRoundTrip(t *testing.T) {
	conn := connect(t, setupRabbitMQ(t))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var mu sync.Mutex
	seen := map[string]bool{}
	handler := func(_ context.Context, job *queue.EvaluationJob) (*domain.EvaluationResult, error) {
		mu.Lock()
		seen[job.ExerciseID] = true
		mu.Unlock()
		return &domain.EvaluationResult{Status: domain.EvaluationCompleted, Score: 75}, nil
	}

	consumer := queue.NewConsumer(conn, handler, queue.ConsumerConfig{Workers: 2}, nil)
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("Consumer.Start() error = %v", err)
	}
	defer consumer.Stop()

	results := queue.NewResultConsumer(conn, nil)
	if err := results.Start(ctx); err != nil {
		t.Fatalf("ResultConsumer.Start() error = %v", err)
	}
	defer results.Stop()

	job := queue.NewEvaluationJob(
		domain.Submission{UserID: "u1", Code: "package main"},
		domain.ExerciseSpec{ID: "basics-greeting"},
	)
	done := make(chan *queue.EvaluationOutcome, 1)
	results.Subscribe(job.ID.String(), func(o *queue.EvaluationOutcome) { done <- o })

	if err := queue.NewProducer(conn, nil).PublishEvaluationJob(ctx, job); err != nil {
		t.Fatalf("PublishEvaluationJob() error = %v", err)
	}

	select {
	case outcome := <-done:
		if outcome.Result.Score != 75 || outcome.UserID != "u1" {
			t.Errorf("outcome = %+v", outcome)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for outcome")
	}

	mu.Lock()
	defer mu.Unlock()
	if !seen["basics-greeting"] {
		t.Error("handler never saw the job")
	}
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

const (
	defaultJobTimeout = 30 * time.Second
	// jobGrace lets the evaluator report its own timeout before the job
	// context expires.
	jobGrace = 10 * time.Second
)

// errMalformedJob marks a message that can never be processed
var errMalformedJob = errors.New("malformed evaluation job")

// JobHandler evaluates one job
type JobHandler func(ctx context.Context, job *EvaluationJob) (*domain.EvaluationResult, error)

// Consumer runs evaluation jobs from the queue and publishes their outcomes
type Consumer struct {
	conn       *Connection
	handler    JobHandler
	producer   *Producer
	workers    int
	prefetch   int
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int // concurrent workers
	Prefetch int // unacknowledged messages per channel
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  3,
		Prefetch: 1,
	}
}

// NewConsumer creates a consumer. Zero config values take the defaults.
func NewConsumer(conn *Connection, handler JobHandler, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		handler:  handler,
		producer: NewProducer(conn, logger),
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		logger:   logger,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		EvaluationQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("starting evaluation consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage runs one delivery and settles it. Malformed messages are
// rejected without requeue; everything else is acknowledged once an outcome
// has been published.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	outcome, err := c.process(ctx, msg.Body)
	if errors.Is(err, errMalformedJob) {
		c.logger.Error("rejecting evaluation job", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}
	if err != nil {
		c.logger.Error("failed to publish outcome",
			"worker_id", workerID,
			"job_id", outcome.JobID,
			"error", err,
		)
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack message",
			"worker_id", workerID,
			"job_id", outcome.JobID,
			"error", err,
		)
	}
}

// process decodes a job, evaluates it and publishes the outcome. The
// outcome is returned even when publishing fails.
func (c *Consumer) process(ctx context.Context, body []byte) (*EvaluationOutcome, error) {
	var job EvaluationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedJob, err)
	}

	c.logger.Info("processing evaluation job",
		"job_id", job.ID,
		"user_id", job.UserID,
		"exercise_id", job.ExerciseID,
	)

	timeout := time.Duration(job.Spec.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout+jobGrace)
	defer cancel()

	outcome := &EvaluationOutcome{
		JobID:      job.ID,
		UserID:     job.UserID,
		ExerciseID: job.ExerciseID,
	}

	result, err := c.handler(jobCtx, &job)
	switch {
	case err != nil:
		outcome.Error = err.Error()
		outcome.Result = domain.EvaluationResult{Status: domain.EvaluationFailed, TotalTests: len(job.Spec.Tests)}
		if errors.Is(err, context.DeadlineExceeded) {
			outcome.Result.Status = domain.EvaluationTimeout
		}
	case result == nil:
		outcome.Error = "evaluation produced no result"
		outcome.Result = domain.EvaluationResult{Status: domain.EvaluationFailed, TotalTests: len(job.Spec.Tests)}
	default:
		outcome.Result = *result
	}

	if err := c.producer.PublishOutcome(ctx, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Stop cancels the workers and waits for them to finish
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

// ResultHandler handles the outcome of one job
type ResultHandler func(outcome *EvaluationOutcome)

// ResultConsumer routes evaluation outcomes to per-job subscribers
type ResultConsumer struct {
	conn       *Connection
	handlers   map[string]ResultHandler
	handlersMu sync.RWMutex
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewResultConsumer creates a result consumer
func NewResultConsumer(conn *Connection, logger *slog.Logger) *ResultConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultConsumer{
		conn:     conn,
		handlers: make(map[string]ResultHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the outcome of a job, replacing any
// earlier one.
func (rc *ResultConsumer) Subscribe(jobID string, handler ResultHandler) {
	rc.handlersMu.Lock()
	defer rc.handlersMu.Unlock()
	rc.handlers[jobID] = handler
}

// Unsubscribe removes a handler
func (rc *ResultConsumer) Unsubscribe(jobID string) {
	rc.handlersMu.Lock()
	defer rc.handlersMu.Unlock()
	delete(rc.handlers, jobID)
}

// Start begins consuming outcomes
func (rc *ResultConsumer) Start(ctx context.Context) error {
	ctx, rc.cancelFunc = context.WithCancel(ctx)

	msgs, err := rc.conn.Channel().Consume(
		ResultQueueName,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start result consumer: %w", err)
	}

	rc.wg.Add(1)
	go rc.consume(ctx, msgs)

	return nil
}

func (rc *ResultConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer rc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			rc.dispatch(msg.Body)
		}
	}
}

// dispatch decodes an outcome and hands it to the job's subscriber
func (rc *ResultConsumer) dispatch(body []byte) {
	var outcome EvaluationOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		rc.logger.Error("failed to unmarshal outcome", "error", err)
		return
	}

	rc.handlersMu.RLock()
	handler, ok := rc.handlers[outcome.JobID.String()]
	rc.handlersMu.RUnlock()

	if ok {
		handler(&outcome)
	}
}

// Stop stops the result consumer
func (rc *ResultConsumer) Stop() {
	if rc.cancelFunc != nil {
		rc.cancelFunc()
	}
	rc.wg.Wait()
}

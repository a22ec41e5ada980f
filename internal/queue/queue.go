// Package queue moves evaluation jobs and progress events over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Queue names
const (
	EvaluationQueueName = "waypoint.evaluations"
	ResultQueueName     = "waypoint.results"
	EventQueueName      = "waypoint.events"
)

// EvaluationJob asks a worker to evaluate one submission
type EvaluationJob struct {
	ID         uuid.UUID           `json:"id"`
	UserID     string              `json:"userId"`
	ExerciseID string              `json:"exerciseId"`
	Submission domain.Submission   `json:"submission"`
	Spec       domain.ExerciseSpec `json:"spec"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// EvaluationOutcome is published once a job has been evaluated
type EvaluationOutcome struct {
	JobID       uuid.UUID               `json:"jobId"`
	UserID      string                  `json:"userId"`
	ExerciseID  string                  `json:"exerciseId"`
	Result      domain.EvaluationResult `json:"result"`
	Error       string                  `json:"error,omitempty"`
	CompletedAt time.Time               `json:"completedAt"`
}

// Publisher sends a JSON message to a named queue. *Connection implements it.
type Publisher interface {
	PublishJSON(ctx context.Context, queue, msgType string, data any) error
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
	logger     *slog.Logger
}

// NewConnection dials RabbitMQ and declares the waypoint queues
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		url:    url,
		logger: logger,
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// connect establishes connection and channel
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect(c.conn)

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

// queueTTLs holds the message TTL of each declared queue
var queueTTLs = []struct {
	name string
	ttl  int32 // milliseconds
}{
	{EvaluationQueueName, 300000},
	{ResultQueueName, 60000},
	{EventQueueName, 86400000},
}

func (c *Connection) declareQueues() error {
	for _, q := range queueTTLs {
		_, err := c.channel.QueueDeclare(
			q.name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			amqp.Table{"x-message-ttl": q.ttl},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// handleReconnect waits for conn to close and redials with exponential backoff
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	for i := 0; i < 10; i++ {
		c.reconnects++
		backoff := min(time.Duration(1<<i)*time.Second, 30*time.Second)
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	c.logger.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes data as a persistent JSON message. msgType is set as
// the AMQP type property when non-empty.
func (c *Connection) PublishJSON(ctx context.Context, queue, msgType string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch := c.Channel()
	if ch == nil {
		return fmt.Errorf("publish to %s: no open channel", queue)
	}

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         msgType,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// sanitizeURL hides the password of an AMQP URL for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) > 20 {
			return raw[:20] + "..."
		}
		return raw
	}
	return u.Redacted()
}

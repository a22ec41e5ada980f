package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Message types set on published messages
const (
	TypeEvaluationJob     = "evaluation.job"
	TypeEvaluationOutcome = "evaluation.outcome"
)

// Producer publishes evaluation jobs and outcomes
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a producer publishing through pub
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{pub: pub, logger: logger}
}

// PublishEvaluationJob queues a job, filling in its id and creation time
func (p *Producer) PublishEvaluationJob(ctx context.Context, job *EvaluationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	if err := p.pub.PublishJSON(ctx, EvaluationQueueName, TypeEvaluationJob, job); err != nil {
		return fmt.Errorf("failed to publish evaluation job: %w", err)
	}

	p.logger.Info("published evaluation job",
		"job_id", job.ID,
		"user_id", job.UserID,
		"exercise_id", job.ExerciseID,
	)
	return nil
}

// PublishOutcome publishes an evaluation outcome to the results queue
func (p *Producer) PublishOutcome(ctx context.Context, outcome *EvaluationOutcome) error {
	if outcome.CompletedAt.IsZero() {
		outcome.CompletedAt = time.Now().UTC()
	}

	if err := p.pub.PublishJSON(ctx, ResultQueueName, TypeEvaluationOutcome, outcome); err != nil {
		return fmt.Errorf("failed to publish evaluation outcome: %w", err)
	}

	p.logger.Info("published evaluation outcome",
		"job_id", outcome.JobID,
		"status", outcome.Result.Status,
		"score", outcome.Result.Score,
	)
	return nil
}

// NewEvaluationJob creates a job for a submission against spec
func NewEvaluationJob(sub domain.Submission, spec domain.ExerciseSpec) *EvaluationJob {
	return &EvaluationJob{
		ID:         uuid.New(),
		UserID:     sub.UserID,
		ExerciseID: spec.ID,
		Submission: sub,
		Spec:       spec,
		CreatedAt:  time.Now().UTC(),
	}
}

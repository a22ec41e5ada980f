package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/queue"
)

// Job states
const (
	JobPending = "pending"
	JobDone    = "done"
	JobExpired = "expired"
)

// JobStatus reports an asynchronous evaluation
type JobStatus struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	ExerciseID  string                   `json:"exerciseId"`
	State       string                   `json:"state"`
	Result      *domain.EvaluationResult `json:"result,omitempty"`
	Error       string                   `json:"error,omitempty"`
	SubmittedAt time.Time                `json:"submittedAt"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
}

// AsyncEvaluator queues evaluations and reports on them later
type AsyncEvaluator interface {
	Enqueue(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) (JobStatus, error)
	Status(jobID string) (JobStatus, bool)
}

type jobPublisher interface {
	PublishEvaluationJob(ctx context.Context, job *queue.EvaluationJob) error
}

type outcomeSubscriber interface {
	Subscribe(jobID string, handler queue.ResultHandler)
	Unsubscribe(jobID string)
}

const (
	// maxTrackedJobs bounds both the finished jobs kept for status queries
	// and the jobs still waiting for an outcome
	maxTrackedJobs = 1000

	// pendingJobTTL is how long a job may wait for its outcome before it is
	// reported as expired
	pendingJobTTL = 10 * time.Minute
)

// QueueJobs runs evaluations through RabbitMQ and tracks their outcomes
type QueueJobs struct {
	producer jobPublisher
	results  outcomeSubscriber
	now      func() time.Time

	mu       sync.Mutex
	jobs     map[string]*JobStatus
	pending  []string // submission order; may hold ids that have since finished
	waiting  int      // jobs still in JobPending
	finished []string // oldest first
}

// NewQueueJobs creates a job tracker over a producer and result consumer
func NewQueueJobs(producer jobPublisher, results outcomeSubscriber, now func() time.Time) *QueueJobs {
	return &QueueJobs{
		producer: producer,
		results:  results,
		now:      now,
		jobs:     make(map[string]*JobStatus),
	}
}

// Enqueue publishes an evaluation job. The outcome subscription is in place
// before the job is published so a fast worker cannot be missed.
func (q *QueueJobs) Enqueue(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) (JobStatus, error) {
	job := queue.NewEvaluationJob(sub, spec)
	id := job.ID.String()

	status := &JobStatus{
		ID:          id,
		UserID:      sub.UserID,
		ExerciseID:  spec.ID,
		State:       JobPending,
		SubmittedAt: q.now().UTC(),
	}
	q.mu.Lock()
	q.jobs[id] = status
	q.pending = append(q.pending, id)
	q.waiting++
	expired := q.sweepLocked()
	q.mu.Unlock()
	q.unsubscribe(expired)

	q.results.Subscribe(id, q.complete)
	if err := q.producer.PublishEvaluationJob(ctx, job); err != nil {
		q.results.Unsubscribe(id)
		q.mu.Lock()
		if status.State == JobPending {
			q.waiting--
		}
		delete(q.jobs, id)
		q.mu.Unlock()
		return JobStatus{}, err
	}
	return *status, nil
}

func (q *QueueJobs) complete(outcome *queue.EvaluationOutcome) {
	id := outcome.JobID.String()
	q.results.Unsubscribe(id)

	q.mu.Lock()
	defer q.mu.Unlock()

	status, ok := q.jobs[id]
	if !ok || status.State != JobPending {
		return
	}
	result := outcome.Result
	status.Result = &result
	q.finishLocked(status, JobDone, outcome.Error)
}

// finishLocked moves a pending job to a final state and evicts the oldest
// finished job past the cap
func (q *QueueJobs) finishLocked(status *JobStatus, state, errMsg string) {
	at := q.now().UTC()
	q.waiting--
	status.State = state
	status.Error = errMsg
	status.CompletedAt = &at

	q.finished = append(q.finished, status.ID)
	if len(q.finished) > maxTrackedJobs {
		delete(q.jobs, q.finished[0])
		q.finished = q.finished[1:]
	}
}

// sweepLocked expires pending jobs older than pendingJobTTL, and the oldest
// ones while more than maxTrackedJobs are waiting. It returns the expired
// ids so the caller can drop their subscriptions after unlocking.
func (q *QueueJobs) sweepLocked() []string {
	cutoff := q.now().UTC().Add(-pendingJobTTL)
	var expired []string
	for len(q.pending) > 0 {
		id := q.pending[0]
		status, ok := q.jobs[id]
		switch {
		case !ok || status.State != JobPending:
		case status.SubmittedAt.After(cutoff) && q.waiting <= maxTrackedJobs:
			return expired
		default:
			q.finishLocked(status, JobExpired, "no result within "+pendingJobTTL.String())
			expired = append(expired, id)
		}
		q.pending = q.pending[1:]
	}
	return expired
}

func (q *QueueJobs) unsubscribe(ids []string) {
	for _, id := range ids {
		q.results.Unsubscribe(id)
	}
}

// Status returns a copy of a job's state
func (q *QueueJobs) Status(jobID string) (JobStatus, bool) {
	q.mu.Lock()
	expired := q.sweepLocked()
	status, ok := q.jobs[jobID]
	var out JobStatus
	if ok {
		out = *status
	}
	q.mu.Unlock()
	q.unsubscribe(expired)
	return out, ok
}

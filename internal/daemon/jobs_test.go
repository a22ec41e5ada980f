package daemon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/queue"
)

type fakeJobPublisher struct {
	jobs []*queue.EvaluationJob
	err  error
	// deliver, when set, runs before PublishEvaluationJob returns
	deliver func(job *queue.EvaluationJob)
}

func (f *fakeJobPublisher) PublishEvaluationJob(_ context.Context, job *queue.EvaluationJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	if f.deliver != nil {
		f.deliver(job)
	}
	return nil
}

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]queue.ResultHandler
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]queue.ResultHandler)}
}

func (f *fakeSubscriber) Subscribe(jobID string, h queue.ResultHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[jobID] = h
}

func (f *fakeSubscriber) Unsubscribe(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, jobID)
}

func (f *fakeSubscriber) deliver(outcome *queue.EvaluationOutcome) bool {
	f.mu.Lock()
	h, ok := f.handlers[outcome.JobID.String()]
	f.mu.Unlock()
	if ok {
		h(outcome)
	}
	return ok
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestQueueJobs_EnqueueAndComplete(t *testing.T) {
	pub := &fakeJobPublisher{}
	sub := newFakeSubscriber()
	jobs := NewQueueJobs(pub, sub, fixedNow)

	status, err := jobs.Enqueue(context.Background(),
		domain.Submission{UserID: "alice", Code: "package main"},
		domain.ExerciseSpec{ID: "basics-greeting"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if status.State != JobPending || status.UserID != "alice" || status.ExerciseID != "basics-greeting" {
		t.Errorf("status = %+v", status)
	}
	if len(pub.jobs) != 1 || pub.jobs[0].ID.String() != status.ID {
		t.Fatalf("published jobs = %+v", pub.jobs)
	}

	if !sub.deliver(&queue.EvaluationOutcome{
		JobID:  pub.jobs[0].ID,
		Result: domain.EvaluationResult{Score: 90, Status: domain.EvaluationCompleted},
	}) {
		t.Fatal("no subscriber for the job")
	}

	got, ok := jobs.Status(status.ID)
	if !ok {
		t.Fatal("Status() ok = false")
	}
	if got.State != JobDone || got.Result == nil || got.Result.Score != 90 || got.CompletedAt == nil {
		t.Errorf("status = %+v", got)
	}
	if sub.count() != 0 {
		t.Error("subscription should be removed after completion")
	}
}

func TestQueueJobs_OutcomeBeforePublishReturns(t *testing.T) {
	sub := newFakeSubscriber()
	pub := &fakeJobPublisher{}
	pub.deliver = func(job *queue.EvaluationJob) {
		sub.deliver(&queue.EvaluationOutcome{JobID: job.ID, Result: domain.EvaluationResult{Score: 10}})
	}
	jobs := NewQueueJobs(pub, sub, fixedNow)

	status, err := jobs.Enqueue(context.Background(), domain.Submission{}, domain.ExerciseSpec{ID: "x"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if got, _ := jobs.Status(status.ID); got.State != JobDone {
		t.Errorf("State = %s, want done", got.State)
	}
}

func TestQueueJobs_PublishFailure(t *testing.T) {
	cause := errors.New("broker down")
	sub := newFakeSubscriber()
	jobs := NewQueueJobs(&fakeJobPublisher{err: cause}, sub, fixedNow)

	if _, err := jobs.Enqueue(context.Background(), domain.Submission{}, domain.ExerciseSpec{}); !errors.Is(err, cause) {
		t.Fatalf("Enqueue() error = %v, want %v", err, cause)
	}
	if sub.count() != 0 {
		t.Error("subscription should be rolled back")
	}
	if len(jobs.jobs) != 0 {
		t.Error("failed job should not be tracked")
	}
}

func TestQueueJobs_StatusUnknown(t *testing.T) {
	jobs := NewQueueJobs(&fakeJobPublisher{}, newFakeSubscriber(), fixedNow)
	if _, ok := jobs.Status("nope"); ok {
		t.Error("Status() ok = true for unknown job")
	}
}

func TestQueueJobs_EvictsOldestFinished(t *testing.T) {
	pub := &fakeJobPublisher{}
	sub := newFakeSubscriber()
	jobs := NewQueueJobs(pub, sub, fixedNow)

	var first string
	for i := range maxTrackedJobs + 1 {
		status, err := jobs.Enqueue(context.Background(), domain.Submission{}, domain.ExerciseSpec{})
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if i == 0 {
			first = status.ID
		}
		sub.deliver(&queue.EvaluationOutcome{JobID: pub.jobs[i].ID})
	}

	if _, ok := jobs.Status(first); ok {
		t.Error("oldest finished job should be evicted")
	}
	if len(jobs.jobs) != maxTrackedJobs {
		t.Errorf("tracked jobs = %d, want %d", len(jobs.jobs), maxTrackedJobs)
	}
}

func TestQueueJobs_ExpiresStalePending(t *testing.T) {
	pub := &fakeJobPublisher{}
	sub := newFakeSubscriber()
	now := fixedNow()
	jobs := NewQueueJobs(pub, sub, func() time.Time { return now })

	lost, err := jobs.Enqueue(context.Background(), domain.Submission{}, domain.ExerciseSpec{ID: "lost"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	now = now.Add(5 * time.Minute)
	recent, err := jobs.Enqueue(context.Background(), domain.Submission{}, domain.ExerciseSpec{ID: "recent"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	now = now.Add(pendingJobTTL - 4*time.Minute)

	got, ok := jobs.Status(lost.ID)
	if !ok {
		t.Fatal("Status() ok = false for expired job")
	}
	if got.State != JobExpired || got.Error == "" || got.CompletedAt == nil {
		t.Errorf("status = %+v, want expired with an error", got)
	}
	if got, _ := jobs.Status(recent.ID); got.State != JobPending {
		t.Errorf("recent State = %s, want pending", got.State)
	}
	if sub.count() != 1 {
		t.Errorf("subscriptions = %d, want 1", sub.count())
	}
	if sub.deliver(&queue.EvaluationOutcome{JobID: pub.jobs[0].ID, Result: domain.EvaluationResult{Score: 50}}) {
		t.Error("late outcome should have no subscriber")
	}
}

func TestQueueJobs_BoundsPending(t *testing.T) {
	pub := &fakeJobPublisher{}
	sub := newFakeSubscriber()
	jobs := NewQueueJobs(pub, sub, fixedNow)

	var first string
	for i := range maxTrackedJobs + 1 {
		status, err := jobs.Enqueue(context.Background(), domain.Submission{}, domain.ExerciseSpec{})
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if i == 0 {
			first = status.ID
		}
	}

	if got, _ := jobs.Status(first); got.State != JobExpired {
		t.Errorf("oldest State = %s, want expired", got.State)
	}
	if sub.count() != maxTrackedJobs {
		t.Errorf("subscriptions = %d, want %d", sub.count(), maxTrackedJobs)
	}
	if jobs.waiting != maxTrackedJobs {
		t.Errorf("waiting = %d, want %d", jobs.waiting, maxTrackedJobs)
	}
}

func TestAsyncEvaluateEndpoints(t *testing.T) {
	s := setupTestServer(t)
	pub := &fakeJobPublisher{}
	sub := newFakeSubscriber()
	s.svc.Jobs = NewQueueJobs(pub, sub, fixedNow)

	w := doRequest(t, s, http.MethodPost, "/v1/learners/hana/evaluate", evaluateRequest{
		ExerciseID: "basics-greeting", Code: greetSolution, Async: true,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var status JobStatus
	decodeBody(t, w, &status)
	if w.Header().Get("Location") != "/v1/jobs/"+status.ID {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if pub.jobs[0].Submission.UserID != "hana" || pub.jobs[0].Spec.ID != "basics-greeting" {
		t.Errorf("job = %+v", pub.jobs[0])
	}

	w = doRequest(t, s, http.MethodGet, "/v1/jobs/"+status.ID, nil)
	decodeBody(t, w, &status)
	if status.State != JobPending {
		t.Errorf("State = %s, want pending", status.State)
	}

	sub.deliver(&queue.EvaluationOutcome{JobID: pub.jobs[0].ID, Result: domain.EvaluationResult{Score: 75}})
	w = doRequest(t, s, http.MethodGet, "/v1/jobs/"+status.ID, nil)
	decodeBody(t, w, &status)
	if status.State != JobDone || status.Result.Score != 75 {
		t.Errorf("status = %+v", status)
	}

	if w := doRequest(t, s, http.MethodGet, "/v1/jobs/unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", w.Code)
	}
}

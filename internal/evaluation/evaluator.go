package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// DefaultTimeout bounds an evaluation when neither the evaluator nor the
// exercise sets one.
const DefaultTimeout = 30 * time.Second

// Evaluator runs a Strategy under a timeout. It never holds learner state,
// so a slow evaluation cannot block progress operations.
type Evaluator struct {
	strategy Strategy
	timeout  time.Duration
	history  History
	logger   *slog.Logger
	now      func() time.Time
}

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithTimeout sets the default evaluation timeout
func WithTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) { e.timeout = d }
}

// WithHistory records every evaluation outcome in h
func WithHistory(h History) EvaluatorOption {
	return func(e *Evaluator) { e.history = h }
}

// WithLogger sets the evaluator logger
func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// WithClock overrides the time source used for history records
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator creates an evaluator around strategy
func NewEvaluator(strategy Strategy, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		strategy: strategy,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the strategy behind the evaluator
func (e *Evaluator) Strategy() Strategy {
	return e.strategy
}

// Evaluate scores sub against spec. It always returns a result: a strategy
// that overruns its bound yields Status timeout, and one that fails yields
// Status failed, both with score 0 and the reason in Errors.
func (e *Evaluator) Evaluate(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) *domain.EvaluationResult {
	timeout := e.timeout
	if spec.TimeoutSeconds > 0 {
		timeout = time.Duration(spec.TimeoutSeconds) * time.Second
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *domain.EvaluationResult
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		res, err := e.strategy.Evaluate(evalCtx, sub, spec)
		done <- outcome{res, err}
	}()

	var result *domain.EvaluationResult
	select {
	case out := <-done:
		switch {
		case out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && evalCtx.Err() != nil:
			result = e.timedOut(spec, timeout)
		case out.err != nil:
			result = e.failed(spec, out.err)
		case out.result == nil:
			result = e.failed(spec, errors.New("strategy returned no result"))
		default:
			result = out.result
		}
	case <-evalCtx.Done():
		if ctx.Err() != nil {
			result = e.failed(spec, ctx.Err())
		} else {
			result = e.timedOut(spec, timeout)
		}
	}

	result.Score = domain.ClampScore(result.Score)
	result.Duration = time.Since(start)
	if result.Strategy == "" {
		result.Strategy = e.strategy.Name()
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}

	e.logger.Info("submission evaluated",
		"user_id", sub.UserID,
		"exercise_id", spec.ID,
		"strategy", result.Strategy,
		"status", result.Status,
		"score", result.Score,
		"passed", result.PassedTests,
		"total", result.TotalTests,
		"duration", result.Duration)

	e.record(ctx, sub, spec, result)
	return result
}

func (e *Evaluator) timedOut(spec domain.ExerciseSpec, timeout time.Duration) *domain.EvaluationResult {
	msg := fmt.Sprintf("%v after %s", domain.ErrEvaluationTimeout, timeout)
	return &domain.EvaluationResult{
		TotalTests:  len(spec.Tests),
		Errors:      []string{msg},
		Suggestions: []string{"Check for infinite loops or blocking operations, then submit again."},
		Explanation: "The evaluation did not finish in time, so no score was given.",
		Status:      domain.EvaluationTimeout,
		Strategy:    e.strategy.Name(),
	}
}

func (e *Evaluator) failed(spec domain.ExerciseSpec, err error) *domain.EvaluationResult {
	e.logger.Warn("evaluation failed", "exercise_id", spec.ID, "strategy", e.strategy.Name(), "error", err)
	return &domain.EvaluationResult{
		TotalTests:  len(spec.Tests),
		Errors:      []string{"evaluation failed: " + err.Error()},
		Suggestions: []string{},
		Explanation: "The submission could not be evaluated. Try again later.",
		Status:      domain.EvaluationFailed,
		Strategy:    e.strategy.Name(),
	}
}

// record stores the outcome when a history is configured and the submission
// names a learner. Failures are logged only.
func (e *Evaluator) record(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec, r *domain.EvaluationResult) {
	if e.history == nil || sub.UserID == "" {
		return
	}
	rec := domain.EvaluationRecord{
		ID:         uuid.New().String(),
		UserID:     sub.UserID,
		ExerciseID: spec.ID,
		Strategy:   r.Strategy,
		Status:     r.Status,
		Score:      r.Score,
		Passed:     r.PassedTests,
		Total:      r.TotalTests,
		DurationMS: r.Duration.Milliseconds(),
		Errors:     r.Errors,
		CreatedAt:  e.now().UTC(),
	}
	// Record even when the caller has gone away.
	if err := e.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Warn("record evaluation failed", "user_id", sub.UserID, "exercise_id", spec.ID, "error", err)
	}
}

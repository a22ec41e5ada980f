package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// ResilientConfig configures the resilience wrapper
type ResilientConfig struct {
	// MaxConcurrent bounds evaluations running at once (default: 4)
	MaxConcurrent int

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit (default: 3)
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open (default: 30s)
	OpenTimeout time.Duration

	// Retries is the number of extra attempts for transient failures
	Retries int

	Logger *slog.Logger
}

// DefaultResilientConfig returns the defaults used by the daemon
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxConcurrent:    4,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		Retries:          1,
	}
}

// ResilientStrategy guards a primary strategy with a bulkhead, a circuit
// breaker and retries. When the primary fails or the circuit is open the
// submission is scored by the fallback strategy instead.
type ResilientStrategy struct {
	primary  Strategy
	fallback Strategy

	circuitBreaker circuitbreaker.CircuitBreaker[*domain.EvaluationResult]
	retrier        retry.Retry[*domain.EvaluationResult]
	bulkhead       bulkhead.Bulkhead[*domain.EvaluationResult]
	logger         *slog.Logger
}

// NewResilientStrategy wraps primary. fallback may be nil, in which case
// primary failures are returned to the caller.
func NewResilientStrategy(primary, fallback Strategy, cfg ResilientConfig) *ResilientStrategy {
	def := DefaultResilientConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rs := &ResilientStrategy{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}

	threshold := cfg.FailureThreshold
	rs.circuitBreaker = circuitbreaker.New[*domain.EvaluationResult](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= threshold
		},
		// Only runtime failures trip the circuit. A submission the primary
		// cannot handle says nothing about the primary's health.
		IsSuccessful: func(err error) bool {
			return err == nil || isInputError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("evaluation circuit breaker state change",
				"strategy", primary.Name(),
				"from", from.String(),
				"to", to.String())
		},
	})

	if cfg.Retries > 0 {
		rs.retrier = retry.New[*domain.EvaluationResult](retry.Config{
			MaxAttempts:   cfg.Retries + 1,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isTransient,
		})
	}

	rs.bulkhead = bulkhead.New[*domain.EvaluationResult](bulkhead.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxQueue:      cfg.MaxConcurrent * 4,
		QueueTimeout:  30 * time.Second,
	})

	return rs
}

// Name implements Strategy
func (r *ResilientStrategy) Name() string {
	return r.primary.Name()
}

// Evaluate implements Strategy
func (r *ResilientStrategy) Evaluate(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) (*domain.EvaluationResult, error) {
	operation := func(ctx context.Context) (*domain.EvaluationResult, error) {
		return r.bulkhead.Execute(ctx, func(ctx context.Context) (*domain.EvaluationResult, error) {
			return r.primary.Evaluate(ctx, sub, spec)
		})
	}

	result, err := r.circuitBreaker.Execute(ctx, func(ctx context.Context) (*domain.EvaluationResult, error) {
		if r.retrier != nil {
			return r.retrier.Do(ctx, operation)
		}
		return operation(ctx)
	})
	if err == nil {
		return result, nil
	}

	if r.fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	r.logger.Warn("primary evaluation failed, using fallback",
		"strategy", r.primary.Name(),
		"fallback", r.fallback.Name(),
		"exercise_id", spec.ID,
		"error", err)
	return r.fallback.Evaluate(ctx, sub, spec)
}

// isInputError reports errors caused by the submission or exercise rather
// than by the strategy's runtime
func isInputError(err error) bool {
	return errors.Is(err, ErrNoTestCode) || errors.Is(err, ErrUnsupportedLanguage)
}

// isTransient reports whether a failed evaluation is worth retrying.
// Input errors and cancelled contexts never are.
func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case isInputError(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// Package evaluation scores learner submissions. Scoring algorithms are
// pluggable Strategy implementations; the Evaluator bounds each run with a
// timeout and always returns a result.
package evaluation

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Strategy names
const (
	StrategyHeuristic = "heuristic"
	StrategySandbox   = "sandbox"
)

// Strategy scores one submission against an exercise. Implementations must
// honor ctx cancellation and must never execute learner code outside a
// sandbox.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) (*domain.EvaluationResult, error)
}

// submissionLanguage resolves the language of a submission, falling back to
// the exercise language and then Go.
func submissionLanguage(sub domain.Submission, spec domain.ExerciseSpec) string {
	switch {
	case sub.Language != "":
		return strings.ToLower(sub.Language)
	case spec.Language != "":
		return strings.ToLower(spec.Language)
	default:
		return "go"
	}
}

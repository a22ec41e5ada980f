package domain

import "time"

// Submission is a learner's solution for one exercise
type Submission struct {
	UserID     string `json:"userId,omitempty"`
	ExerciseID string `json:"exerciseId"`
	Language   string `json:"language,omitempty"`
	Code       string `json:"code"`
}

// EvaluationStatus reports how an evaluation ended
type EvaluationStatus string

const (
	EvaluationCompleted EvaluationStatus = "completed"
	EvaluationTimeout   EvaluationStatus = "timeout"
	EvaluationFailed    EvaluationStatus = "failed"
)

// EvaluationResult is the outcome of scoring a submission. A result is always
// returned, even when the strategy timed out or failed.
type EvaluationResult struct {
	Score       int              `json:"score"`
	PassedTests int              `json:"passedTests"`
	TotalTests  int              `json:"totalTests"`
	Errors      []string         `json:"errors"`
	Suggestions []string         `json:"suggestions"`
	Explanation string           `json:"explanation"`
	Status      EvaluationStatus `json:"status"`
	Strategy    string           `json:"strategy"`
	Tests       []TestResult     `json:"tests,omitempty"`
	Duration    time.Duration    `json:"durationNs"`
}

// Passed returns true if every test passed
func (r *EvaluationResult) Passed() bool {
	return r.Status == EvaluationCompleted && r.TotalTests > 0 && r.PassedTests == r.TotalTests
}

// TestResult represents the outcome of a single test
type TestResult struct {
	Package  string        `json:"package,omitempty"`
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"durationNs"`
	Output   string        `json:"output,omitempty"`
}

// ClampScore bounds a score to [0, 100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Recommendation is the difficulty advice for upcoming exercises
type Recommendation struct {
	Tier        Tier     `json:"tier"`
	Rationale   string   `json:"rationale"`
	Adjustments []string `json:"adjustments"`
	FocusAreas  []string `json:"focusAreas,omitempty"`
}

// EvaluationRecord is a stored evaluation outcome for one learner
type EvaluationRecord struct {
	ID         string           `json:"id"`
	UserID     string           `json:"userId"`
	ExerciseID string           `json:"exerciseId"`
	Strategy   string           `json:"strategy"`
	Status     EvaluationStatus `json:"status"`
	Score      int              `json:"score"`
	Passed     int              `json:"passedTests"`
	Total      int              `json:"totalTests"`
	DurationMS int64            `json:"durationMs"`
	Errors     []string         `json:"errors"`
	CreatedAt  time.Time        `json:"createdAt"`
}

package domain

// Tier is a difficulty tier for upcoming exercises
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	return t == TierEasy || t == TierMedium || t == TierHard
}

// TierForLevel maps a learner level to the tier used when generating exercises.
func TierForLevel(level int) Tier {
	switch {
	case level >= 6:
		return TierHard
	case level >= 3:
		return TierMedium
	default:
		return TierEasy
	}
}

// ExerciseSpec describes an exercise a submission is evaluated against
type ExerciseSpec struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Topic          string            `json:"topic"`
	Week           int               `json:"week"`
	Tier           Tier              `json:"tier"`
	Language       string            `json:"language"`
	StarterCode    map[string]string `json:"starterCode,omitempty"`
	TestCode       map[string]string `json:"testCode,omitempty"` // filename -> content, run by the sandbox
	Rubric         Rubric            `json:"rubric"`
	Tests          []TestCase        `json:"tests"`
	Hints          []string          `json:"hints,omitempty"`
	TimeoutSeconds int               `json:"timeoutSeconds,omitempty"`
}

// Rubric defines evaluation criteria for an exercise
type Rubric struct {
	Criteria []RubricCriterion `json:"criteria"`
}

// RubricCriterion is one structural marker a solution is expected to show.
// Signals are regular expressions; the criterion is met when any matches.
type RubricCriterion struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Weight      float64  `json:"weight"`
	Signals     []string `json:"signals"`
}

// TestCase names one check of an exercise
type TestCase struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TotalWeight sums criterion weights, treating non-positive weights as 1.
func (r Rubric) TotalWeight() float64 {
	var total float64
	for _, c := range r.Criteria {
		total += c.EffectiveWeight()
	}
	return total
}

// EffectiveWeight returns the criterion weight, defaulting to 1
func (c RubricCriterion) EffectiveWeight() float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

// AllFiles returns the starter files merged with the test files
func (e *ExerciseSpec) AllFiles() map[string]string {
	files := make(map[string]string, len(e.StarterCode)+len(e.TestCode))
	for k, v := range e.StarterCode {
		files[k] = v
	}
	for k, v := range e.TestCode {
		files[k] = v
	}
	return files
}

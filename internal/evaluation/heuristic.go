package evaluation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Score weights for the heuristic: structural markers dominate, simulated
// tests add the rest.
const (
	markerWeight = 70.0
	testWeight   = 30.0
)

// fallbackCriteria apply when an exercise carries no rubric
var fallbackCriteria = []domain.RubricCriterion{
	{ID: "package", Name: "Package clause", Description: "Declare the package the code belongs to.", Signals: []string{`(?m)^\s*package\s+\w+`}},
	{ID: "function", Name: "Function", Description: "Implement the solution in at least one function.", Signals: []string{`\bfunc\s+(\([^)]*\)\s*)?\w+\s*\(`}},
	{ID: "return", Name: "Result", Description: "Produce a result with a return statement.", Signals: []string{`\breturn\b`}},
}

// HeuristicStrategy scores a submission without running it. It checks the
// rubric's structural markers, derives simulated test outcomes from the
// marker coverage and deducts points for quality findings.
//
// It is a placeholder for environments without a sandbox: the score says
// how a solution looks, not whether it works.
type HeuristicStrategy struct {
	linter *Linter

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewHeuristicStrategy creates the heuristic strategy
func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{
		linter: NewLinter(),
		cache:  make(map[string]*regexp.Regexp),
	}
}

// Name implements Strategy
func (h *HeuristicStrategy) Name() string {
	return StrategyHeuristic
}

// Evaluate implements Strategy
func (h *HeuristicStrategy) Evaluate(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) (*domain.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := spec.Rubric.Criteria
	if len(criteria) == 0 {
		criteria = fallbackCriteria
	}
	testNames := simulatedTestNames(spec, criteria)
	total := len(testNames)

	result := &domain.EvaluationResult{
		TotalTests:  total,
		Errors:      []string{},
		Suggestions: []string{},
		Status:      domain.EvaluationCompleted,
		Strategy:    h.Name(),
	}

	if strings.TrimSpace(sub.Code) == "" {
		result.Errors = append(result.Errors, "submission is empty")
		result.Suggestions = append(result.Suggestions, spec.Hints...)
		result.Tests = simulatedTests(testNames, 0)
		result.Explanation = explainWithTests(0, 0, total)
		return result, nil
	}

	ratio, missing := h.coverage(sub.Code, criteria)
	passed := int(math.Round(float64(total) * ratio))
	findings := h.linter.Analyze(sub.Code, submissionLanguage(sub, spec))

	raw := markerWeight*ratio + testWeight*float64(passed)/float64(total)
	score := domain.ClampScore(int(math.Round(raw)) - Penalty(findings))

	for _, c := range missing {
		msg := "missing " + strings.ToLower(c.Name)
		if c.Description != "" {
			msg += ": " + c.Description
		}
		result.Errors = append(result.Errors, msg)
	}
	for _, name := range testNames[passed:] {
		result.Errors = append(result.Errors, name+" failed")
	}

	if len(missing) > 0 {
		result.Suggestions = append(result.Suggestions, spec.Hints...)
	}
	for _, f := range findings {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("line %d: %s. %s", f.Line, f.Title, f.Suggestion))
	}

	result.Score = score
	result.PassedTests = passed
	result.Tests = simulatedTests(testNames, passed)
	result.Explanation = explainWithTests(score, passed, total)
	return result, nil
}

// coverage returns the weighted share of criteria whose signals match code,
// and the criteria that did not match.
func (h *HeuristicStrategy) coverage(code string, criteria []domain.RubricCriterion) (float64, []domain.RubricCriterion) {
	var met, total float64
	var missing []domain.RubricCriterion

	for _, c := range criteria {
		w := c.EffectiveWeight()
		total += w
		if h.matches(code, c.Signals) {
			met += w
		} else {
			missing = append(missing, c)
		}
	}
	if total == 0 {
		return 0, missing
	}
	return met / total, missing
}

func (h *HeuristicStrategy) matches(code string, signals []string) bool {
	for _, s := range signals {
		re := h.compile(s)
		if re != nil && re.MatchString(code) {
			return true
		}
	}
	return false
}

// compile caches compiled signals. Invalid patterns never match.
func (h *HeuristicStrategy) compile(pattern string) *regexp.Regexp {
	h.mu.Lock()
	defer h.mu.Unlock()

	if re, ok := h.cache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	h.cache[pattern] = re
	return re
}

// simulatedTestNames are the exercise's test cases, or one check per
// criterion when it declares none.
func simulatedTestNames(spec domain.ExerciseSpec, criteria []domain.RubricCriterion) []string {
	if len(spec.Tests) > 0 {
		names := make([]string, len(spec.Tests))
		for i, tc := range spec.Tests {
			names[i] = tc.Name
		}
		return names
	}
	names := make([]string, len(criteria))
	for i, c := range criteria {
		names[i] = "check " + c.ID
	}
	return names
}

// simulatedTests marks the first passed tests as passing
func simulatedTests(names []string, passed int) []domain.TestResult {
	tests := make([]domain.TestResult, len(names))
	for i, name := range names {
		tests[i] = domain.TestResult{Name: name, Passed: i < passed}
	}
	return tests
}

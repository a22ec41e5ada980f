package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/sandbox"
)

const (
	defaultSandboxTimeout = 30 * time.Second
	solutionFile          = "solution.go"
	goModTemplate         = "module exercise\n\ngo 1.22\n"
)

// Errors for submissions the sandbox cannot run. Both depend on the input,
// not on the container runtime.
var (
	ErrNoTestCode          = errors.New("exercise has no test code")
	ErrUnsupportedLanguage = errors.New("language not supported by the sandbox")
)

// Runner executes files in an isolated container. *sandbox.Manager is the
// production implementation.
type Runner interface {
	Run(ctx context.Context, label string, files map[string]string, cmd []string, timeout time.Duration) (*sandbox.ExecResult, error)
}

// SandboxStrategy runs the exercise's Go tests against the submission inside
// a container and scores the share of passing tests. Exercises it cannot run
// (no test files, or a language other than Go) go to the untested strategy,
// the heuristic one by default.
type SandboxStrategy struct {
	runner   Runner
	linter   *Linter
	untested Strategy
}

// SandboxOption configures a SandboxStrategy
type SandboxOption func(*SandboxStrategy)

// WithUntested sets the strategy for exercises the sandbox cannot run. A nil
// strategy makes Evaluate return ErrNoTestCode or ErrUnsupportedLanguage.
func WithUntested(s Strategy) SandboxOption {
	return func(ss *SandboxStrategy) {
		ss.untested = s
	}
}

// NewSandboxStrategy creates a sandbox strategy over runner
func NewSandboxStrategy(runner Runner, opts ...SandboxOption) *SandboxStrategy {
	s := &SandboxStrategy{
		runner:   runner,
		linter:   NewLinter(),
		untested: NewHeuristicStrategy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy
func (s *SandboxStrategy) Name() string {
	return StrategySandbox
}

// Evaluate implements Strategy
func (s *SandboxStrategy) Evaluate(ctx context.Context, sub domain.Submission, spec domain.ExerciseSpec) (*domain.EvaluationResult, error) {
	var unrunnable error
	if len(spec.TestCode) == 0 {
		unrunnable = fmt.Errorf("%s: %w", spec.ID, ErrNoTestCode)
	} else if lang := submissionLanguage(sub, spec); lang != "go" {
		unrunnable = fmt.Errorf("%s: %w", lang, ErrUnsupportedLanguage)
	}
	if unrunnable != nil {
		if s.untested == nil {
			return nil, unrunnable
		}
		return s.untested.Evaluate(ctx, sub, spec)
	}

	timeout := defaultSandboxTimeout
	if spec.TimeoutSeconds > 0 {
		timeout = time.Duration(spec.TimeoutSeconds) * time.Second
	}

	exec, err := s.runner.Run(ctx, spec.ID, workspaceFiles(sub, spec),
		[]string{"go", "test", "-json", "-count=1", "./..."}, timeout)
	if err != nil {
		return nil, fmt.Errorf("run tests: %w", err)
	}

	tests, extra := ParseTestOutput(exec.Stdout)
	result := &domain.EvaluationResult{
		Errors:      []string{},
		Suggestions: []string{},
		Status:      domain.EvaluationCompleted,
		Strategy:    s.Name(),
		Tests:       tests,
	}

	if len(tests) == 0 {
		// Nothing ran: the package did not build
		result.TotalTests = max(len(spec.Tests), 1)
		result.Errors = ParseBuildErrors(extra + exec.Stderr)
		if len(result.Errors) == 0 {
			result.Errors = []string{fmt.Sprintf("go test exited with code %d", exec.ExitCode)}
		}
		result.Suggestions = append(result.Suggestions, spec.Hints...)
		result.Explanation = explainWithTests(0, 0, result.TotalTests)
		return result, nil
	}

	for _, t := range tests {
		if t.Passed {
			result.PassedTests++
			continue
		}
		result.Errors = append(result.Errors, failureSummary(t))
	}
	result.TotalTests = len(tests)

	findings := s.linter.Analyze(sub.Code, "go")
	raw := 100 * float64(result.PassedTests) / float64(result.TotalTests)
	result.Score = domain.ClampScore(int(math.Round(raw)) - Penalty(findings))

	if result.PassedTests < result.TotalTests {
		result.Suggestions = append(result.Suggestions, spec.Hints...)
	}
	for _, f := range findings {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("line %d: %s. %s", f.Line, f.Title, f.Suggestion))
	}
	result.Explanation = explainWithTests(result.Score, result.PassedTests, result.TotalTests)
	return result, nil
}

// workspaceFiles lays out the container workspace: the exercise's test
// files, the submission in place of the single starter source file, and a
// go.mod when the exercise does not ship one.
func workspaceFiles(sub domain.Submission, spec domain.ExerciseSpec) map[string]string {
	files := make(map[string]string, len(spec.TestCode)+2)
	for name, content := range spec.TestCode {
		files[name] = content
	}

	target := solutionFile
	var sources []string
	for name := range spec.StarterCode {
		if path.Ext(name) == ".go" && !strings.HasSuffix(name, "_test.go") {
			sources = append(sources, name)
		}
	}
	if len(sources) == 1 {
		target = sources[0]
	}
	files[target] = sub.Code

	if gomod, ok := spec.StarterCode["go.mod"]; ok {
		files["go.mod"] = gomod
	} else if _, ok := files["go.mod"]; !ok {
		files["go.mod"] = goModTemplate
	}
	return files
}

// failureSummary names a failed test with the first assertion line it printed
func failureSummary(t domain.TestResult) string {
	for _, line := range strings.Split(t.Output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "=== ") || strings.HasPrefix(line, "--- ") {
			continue
		}
		return fmt.Sprintf("%s failed: %s", t.Name, line)
	}
	return t.Name + " failed"
}

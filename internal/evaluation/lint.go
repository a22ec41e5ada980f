package evaluation

import (
	"regexp"
	"strings"
)

// Severity ranks a quality finding
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// penalty is the score deduction for one finding of the severity
func (s Severity) penalty() int {
	switch s {
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 5
	default:
		return 2
	}
}

// maxLintPenalty caps the total deduction from quality findings
const maxLintPenalty = 30

// Finding is one quality issue found in a submission
type Finding struct {
	ID         string   `json:"id"`
	Severity   Severity `json:"severity"`
	Title      string   `json:"title"`
	Line       int      `json:"line"`
	Suggestion string   `json:"suggestion"`
}

// LintRule is a line-based quality check
type LintRule struct {
	ID         string
	Severity   Severity
	Title      string
	Suggestion string
	Regex      *regexp.Regexp
	Languages  []string // empty means all languages
}

// Linter scans submissions line by line for quality issues. It never runs
// the code.
type Linter struct {
	rules []LintRule
}

// NewLinter creates a linter with the default rules
func NewLinter() *Linter {
	return &Linter{rules: defaultLintRules()}
}

// Analyze returns the findings for code written in language
func (l *Linter) Analyze(code, language string) []Finding {
	var findings []Finding
	lines := strings.Split(code, "\n")

	for _, rule := range l.rules {
		if len(rule.Languages) > 0 && !contains(rule.Languages, language) {
			continue
		}
		for i, line := range lines {
			if rule.Regex.MatchString(line) {
				findings = append(findings, Finding{
					ID:         rule.ID,
					Severity:   rule.Severity,
					Title:      rule.Title,
					Line:       i + 1,
					Suggestion: rule.Suggestion,
				})
			}
		}
	}
	return findings
}

// Penalty sums finding deductions, capped at maxLintPenalty
func Penalty(findings []Finding) int {
	total := 0
	for _, f := range findings {
		total += f.Severity.penalty()
	}
	return min(total, maxLintPenalty)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func defaultLintRules() []LintRule {
	return []LintRule{
		{
			ID:         "Q001",
			Severity:   SeverityMedium,
			Title:      "Unchecked error",
			Suggestion: "Check the error instead of discarding it: if err != nil { return err }",
			Regex:      regexp.MustCompile(`^\s*_\s*=\s*[\w.]+\([^)]*\)`),
			Languages:  []string{"go"},
		},
		{
			ID:         "Q002",
			Severity:   SeverityLow,
			Title:      "Unfinished work marker",
			Suggestion: "Finish or remove TODO and FIXME notes before submitting.",
			Regex:      regexp.MustCompile(`(?i)(//|#)\s*(TODO|FIXME|HACK|XXX)\b`),
		},
		{
			ID:         "Q003",
			Severity:   SeverityMedium,
			Title:      "Panic used for error handling",
			Suggestion: "Return an error to the caller instead of panicking.",
			Regex:      regexp.MustCompile(`^\s*panic\(`),
			Languages:  []string{"go"},
		},
		{
			ID:         "Q004",
			Severity:   SeverityLow,
			Title:      "Debug print",
			Suggestion: "Remove leftover debug output or use a logger.",
			Regex:      regexp.MustCompile(`^\s*(println|print)\(|fmt\.Print(ln)?\("(DEBUG|debug)`),
			Languages:  []string{"go"},
		},
		{
			ID:         "Q005",
			Severity:   SeverityMedium,
			Title:      "Empty error branch",
			Suggestion: "Handle the error inside the if err != nil block.",
			Regex:      regexp.MustCompile(`if\s+err\s*!=\s*nil\s*\{\s*\}`),
			Languages:  []string{"go"},
		},
		{
			ID:         "Q006",
			Severity:   SeverityLow,
			Title:      "Commented-out code",
			Suggestion: "Delete commented-out code; version control keeps history.",
			Regex:      regexp.MustCompile(`^\s*(//|#)\s*(if|for|func|return|var|const)\s+\w+`),
		},
		{
			ID:         "Q007",
			Severity:   SeverityHigh,
			Title:      "Hardcoded secret",
			Suggestion: "Read secrets from the environment or a secrets manager.",
			Regex:      regexp.MustCompile(`(?i)(password|secret|api_?key|token)\s*:?=\s*"[\w\-]{6,}"`),
		},
		{
			ID:         "Q008",
			Severity:   SeverityMedium,
			Title:      "Bare except clause",
			Suggestion: "Catch specific exceptions instead of using bare 'except:'.",
			Regex:      regexp.MustCompile(`^\s*except\s*:`),
			Languages:  []string{"python"},
		},
	}
}

package adaptive

import (
	"regexp"
	"sort"
	"strings"
)

// errorPattern maps a raw error line to a normalized signature
type errorPattern struct {
	pattern   *regexp.Regexp
	signature string
}

// Compiler diagnostics
var buildPatterns = []errorPattern{
	{regexp.MustCompile(`undefined: \w+`), "undefined: <identifier>"},
	{regexp.MustCompile(`cannot use .+ as .+`), "type mismatch"},
	{regexp.MustCompile(`not enough arguments in call to \w+`), "missing arguments"},
	{regexp.MustCompile(`too many arguments in call to \w+`), "too many arguments"},
	{regexp.MustCompile(`missing return`), "missing return"},
	{regexp.MustCompile(`declared (but|and) not used`), "unused variable"},
	{regexp.MustCompile(`imported and not used`), "unused import"},
	{regexp.MustCompile(`cannot assign to .+`), "invalid assignment"},
	{regexp.MustCompile(`syntax error`), "syntax error"},
	{regexp.MustCompile(`expected .+, found .+`), "syntax error"},
	{regexp.MustCompile(`redeclared in this block`), "redeclaration"},
}

// Test and runtime failures
var failurePatterns = []errorPattern{
	{regexp.MustCompile(`got .+, want .+`), "assertion failed: wrong value"},
	{regexp.MustCompile(`expected .+ but got .+`), "assertion failed: wrong value"},
	{regexp.MustCompile(`nil pointer dereference`), "nil pointer"},
	{regexp.MustCompile(`panic: .+`), "panic"},
	{regexp.MustCompile(`(?i)timed? ?out`), "timeout"},
	{regexp.MustCompile(`index out of range`), "index out of bounds"},
	{regexp.MustCompile(`deadlock`), "deadlock"},
	{regexp.MustCompile(`(?i)data race`), "data race"},
}

// Categories returned by CategorizeError
const (
	CategorySyntax      = "syntax"
	CategoryTypes       = "types"
	CategoryScope       = "scope"
	CategoryRuntime     = "runtime"
	CategoryLogic       = "logic"
	CategoryConcurrency = "concurrency"
	CategoryOther       = "other"
)

// NormalizeError reduces an error line to a stable signature, or "" when no
// known pattern matches.
func NormalizeError(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	for _, set := range [][]errorPattern{buildPatterns, failurePatterns} {
		for _, p := range set {
			if p.pattern.MatchString(line) {
				return p.signature
			}
		}
	}
	return ""
}

// ExtractErrorPatterns returns the distinct signatures found in output,
// sorted.
func ExtractErrorPatterns(output string) []string {
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		if sig := NormalizeError(line); sig != "" {
			seen[sig] = true
		}
	}

	result := make([]string, 0, len(seen))
	for sig := range seen {
		result = append(result, sig)
	}
	sort.Strings(result)
	return result
}

// CategorizeError maps a signature or raw error to a broad category
func CategorizeError(errorSig string) string {
	sig := strings.ToLower(errorSig)
	switch {
	case strings.Contains(sig, "syntax"):
		return CategorySyntax
	case strings.Contains(sig, "type"), strings.Contains(sig, "argument"), strings.Contains(sig, "assignment"):
		return CategoryTypes
	case strings.Contains(sig, "undefined"), strings.Contains(sig, "unused"), strings.Contains(sig, "redeclar"):
		return CategoryScope
	case strings.Contains(sig, "timeout"), strings.Contains(sig, "deadlock"), strings.Contains(sig, "race"):
		return CategoryConcurrency
	case strings.Contains(sig, "nil"), strings.Contains(sig, "panic"), strings.Contains(sig, "out of bounds"):
		return CategoryRuntime
	case strings.Contains(sig, "assertion"), strings.Contains(sig, "missing return"):
		return CategoryLogic
	default:
		return CategoryOther
	}
}

// FocusAreas categorizes errors and returns the categories ordered by how
// often they occur, most frequent first. Ties keep category name order.
// Uncategorized errors are left out. At most limit areas are returned.
func FocusAreas(errors []string, limit int) []string {
	counts := make(map[string]int)
	for _, e := range errors {
		sig := NormalizeError(e)
		if sig == "" {
			sig = e
		}
		if cat := CategorizeError(sig); cat != CategoryOther {
			counts[cat]++
		}
	}

	areas := make([]string, 0, len(counts))
	for cat := range counts {
		areas = append(areas, cat)
	}
	sort.Slice(areas, func(i, j int) bool {
		if counts[areas[i]] != counts[areas[j]] {
			return counts[areas[i]] > counts[areas[j]]
		}
		return areas[i] < areas[j]
	})
	if limit > 0 && len(areas) > limit {
		areas = areas[:limit]
	}
	return areas
}

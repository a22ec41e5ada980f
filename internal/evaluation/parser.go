package evaluation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// buildErrorRegex matches compiler diagnostics: file.go:line:col: message
var buildErrorRegex = regexp.MustCompile(`^(?:\./)?(.+\.go):(\d+):(\d+):\s*(.+)$`)

// testEvent is one line of `go test -json` output
type testEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// ParseBuildErrors extracts compiler diagnostics as "file:line:col: message"
func ParseBuildErrors(output string) []string {
	var diagnostics []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		m := buildErrorRegex.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		diagnostics = append(diagnostics, fmt.Sprintf("%s:%s:%s: %s", m[1], m[2], m[3], m[4]))
	}
	return diagnostics
}

// ParseTestOutput parses `go test -json` output into per-test results in
// execution order. Subtests are reported like top-level tests. Lines that
// are not JSON, such as build errors, are returned as extra output.
func ParseTestOutput(output string) ([]domain.TestResult, string) {
	tests := make(map[string]*domain.TestResult)
	var order []string
	var extra strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var event testEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			extra.WriteString(line)
			extra.WriteByte('\n')
			continue
		}

		if event.Test == "" {
			// Package-level output carries build failures
			if event.Action == "output" {
				extra.WriteString(event.Output)
			}
			continue
		}

		key := event.Package + "/" + event.Test
		switch event.Action {
		case "run":
			tests[key] = &domain.TestResult{Package: event.Package, Name: event.Test}
			order = append(order, key)
		case "output":
			if t, ok := tests[key]; ok {
				t.Output += event.Output
			}
		case "pass", "skip":
			if t, ok := tests[key]; ok {
				t.Passed = true
				t.Duration = time.Duration(event.Elapsed * float64(time.Second))
			}
		case "fail":
			if t, ok := tests[key]; ok {
				t.Passed = false
				t.Duration = time.Duration(event.Elapsed * float64(time.Second))
			}
		}
	}

	results := make([]domain.TestResult, 0, len(order))
	for _, key := range order {
		results = append(results, *tests[key])
	}
	return results, extra.String()
}

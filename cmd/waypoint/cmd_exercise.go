package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

func cmdExercise(c *client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: waypoint exercise list [topic] | info <id>")
	}
	switch args[0] {
	case "list":
		return cmdExerciseList(c, args[1:])
	case "info":
		if len(args) < 2 {
			return fmt.Errorf("exercise ID required")
		}
		return cmdExerciseInfo(c, args[1])
	default:
		return fmt.Errorf("unknown exercise command: %s (valid: list, info)", args[0])
	}
}

func cmdExerciseList(c *client, args []string) error {
	path := "/v1/exercises"
	if len(args) > 0 {
		path += "?topic=" + url.QueryEscape(args[0])
	}

	var resp struct {
		Exercises []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Topic string `json:"topic"`
			Tier  string `json:"tier"`
		} `json:"exercises"`
	}
	if err := c.get(path, &resp); err != nil {
		return err
	}

	topic := ""
	for _, ex := range resp.Exercises {
		if ex.Topic != topic {
			topic = ex.Topic
			fmt.Printf("\n%s\n", topic)
		}
		fmt.Printf("  %-24s %-7s %s\n", ex.ID, ex.Tier, ex.Title)
	}
	return nil
}

func cmdExerciseInfo(c *client, id string) error {
	var spec domain.ExerciseSpec
	if err := c.get("/v1/exercises/"+url.PathEscape(id), &spec); err != nil {
		return err
	}
	printSpec(spec)
	return nil
}

func printSpec(spec domain.ExerciseSpec) {
	fmt.Printf("%s (%s, %s)\n", spec.Title, spec.Topic, spec.Tier)
	fmt.Printf("ID: %s\n", spec.ID)
	if spec.Week > 0 {
		fmt.Printf("Week: %d\n", spec.Week)
	}
	fmt.Printf("\n%s\n", spec.Description)
	for name, code := range spec.StarterCode {
		fmt.Printf("\n--- %s ---\n%s", name, code)
	}
	if len(spec.Tests) > 0 {
		fmt.Println("\nTests:")
		for _, tc := range spec.Tests {
			fmt.Printf("  - %s: %s\n", tc.Name, tc.Description)
		}
	}
	if len(spec.Hints) > 0 {
		fmt.Println("\nHints:")
		for _, h := range spec.Hints {
			fmt.Printf("  - %s\n", h)
		}
	}
}

// languageFor guesses the submission language from a file extension
func languageFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".js", ".mjs":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".rs":
		return "rust"
	default:
		return "go"
	}
}

func cmdEvaluate(c *client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: waypoint evaluate <file> <exercise-id>")
	}
	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read solution: %w", err)
	}

	req := map[string]any{
		"exerciseId": args[1],
		"code":       string(code),
		"language":   languageFor(args[0]),
	}
	var res domain.EvaluationResult
	if err := c.post(c.learnerPath("/evaluate"), req, &res); err != nil {
		return err
	}

	fmt.Printf("Score: %d/100  %s\n", res.Score, renderProgressBar(float64(res.Score)/100, 20))
	if res.TotalTests > 0 {
		fmt.Printf("Tests: %d/%d passed\n", res.PassedTests, res.TotalTests)
	}
	fmt.Printf("Status: %s (%s)\n", res.Status, res.Strategy)
	if res.Explanation != "" {
		fmt.Printf("\n%s\n", res.Explanation)
	}
	if len(res.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range res.Errors {
			fmt.Printf("  ✗ %s\n", e)
		}
	}
	if len(res.Suggestions) > 0 {
		fmt.Println("\nSuggestions:")
		for _, s := range res.Suggestions {
			fmt.Printf("  → %s\n", s)
		}
	}
	return nil
}

func cmdNext(c *client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: waypoint next <topic>")
	}
	var spec domain.ExerciseSpec
	if err := c.post(c.learnerPath("/exercises/generate"), map[string]any{"topic": args[0]}, &spec); err != nil {
		return err
	}
	printSpec(spec)
	return nil
}

func cmdDifficulty(c *client) error {
	var rec domain.Recommendation
	if err := c.get(c.learnerPath("/difficulty"), &rec); err != nil {
		return err
	}

	fmt.Printf("Recommended tier: %s\n\n%s\n", rec.Tier, rec.Rationale)
	if len(rec.Adjustments) > 0 {
		fmt.Println("\nAdjustments:")
		for _, a := range rec.Adjustments {
			fmt.Printf("  - %s\n", a)
		}
	}
	if len(rec.FocusAreas) > 0 {
		fmt.Printf("\nFocus areas: %s\n", strings.Join(rec.FocusAreas, ", "))
	}
	return nil
}

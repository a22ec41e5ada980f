package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

func cmdProgress(c *client) error {
	var p domain.LearnerProfile
	if err := c.get(c.learnerPath("/progress"), &p); err != nil {
		return err
	}

	fmt.Printf("Progress for %s\n", p.UserID)
	fmt.Println(strings.Repeat("=", 13+len(p.UserID)))
	fmt.Printf("Level %d  %s %d/%d XP\n\n", p.Stats.Level,
		renderProgressBar(ratio(p.Stats.Experience, p.Stats.ExperienceToNextLevel), 20),
		p.Stats.Experience, p.Stats.ExperienceToNextLevel)

	for _, w := range p.Weeks {
		done := 0
		for _, ex := range w.Exercises {
			if ex.Completed {
				done++
			}
		}
		mark := "  "
		switch {
		case w.Completed:
			mark = "✓ "
		case !w.Unlocked:
			mark = "🔒"
		}
		fmt.Printf("%s Week %d  %-28s %s %d/%d\n", mark, w.Number, w.Title,
			renderProgressBar(ratio(done, len(w.Exercises)), 10), done, len(w.Exercises))
	}
	return nil
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func cmdStats(c *client) error {
	var s domain.Stats
	if err := c.get(c.learnerPath("/stats"), &s); err != nil {
		return err
	}

	fmt.Println("Learning Statistics")
	fmt.Println("===================")
	fmt.Printf("Level:              %d (%d/%d XP)\n", s.Level, s.Experience, s.ExperienceToNextLevel)
	fmt.Printf("Total Points:       %d\n", s.TotalPoints)
	fmt.Printf("Exercises:          %d completed, %d attempts\n", s.ExercisesCompleted, s.TotalAttempts)
	fmt.Printf("Weeks Completed:    %d\n", s.WeeksCompleted)
	fmt.Printf("Average Score:      %.1f\n", s.AverageScore)
	fmt.Printf("Time Invested:      %dh %02dm\n", s.TotalTimeMinutes/60, s.TotalTimeMinutes%60)
	fmt.Printf("Streak:             %d days (best %d)\n", s.CurrentStreakDays, s.BestStreakDays)
	return nil
}

func cmdWeek(c *client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: waypoint week <number>")
	}
	if _, err := strconv.Atoi(args[0]); err != nil {
		return fmt.Errorf("week must be a number: %s", args[0])
	}

	var w domain.WeekProgress
	if err := c.get(c.learnerPath("/weeks/"+args[0]), &w); err != nil {
		return err
	}

	state := "locked"
	switch {
	case w.Completed:
		state = "completed"
	case w.Unlocked:
		state = "in progress"
	}
	fmt.Printf("Week %d: %s (%s)\n\n", w.Number, w.Title, state)
	for _, ex := range w.Exercises {
		status := "todo"
		if ex.Completed && ex.Score != nil {
			status = fmt.Sprintf("✓ %d", *ex.Score)
		}
		fmt.Printf("  %-5s %-28s %-9s %-6s %3d min, %d attempts\n",
			ex.ID, ex.Title, ex.Type, status, ex.TimeInvestedMinutes, ex.Attempts)
	}
	return nil
}

func cmdAchievements(c *client) error {
	var resp struct {
		Achievements []domain.Achievement `json:"achievements"`
	}
	if err := c.get(c.learnerPath("/achievements"), &resp); err != nil {
		return err
	}

	fmt.Println("Achievements")
	fmt.Println("============")
	for _, a := range resp.Achievements {
		mark := "·"
		if a.Unlocked {
			mark = "★"
		}
		fmt.Printf("%s %-20s %s %d/%d  %s\n", mark, a.Name,
			renderProgressBar(ratio(a.Progress, a.MaxProgress), 10), a.Progress, a.MaxProgress, a.Description)
	}
	return nil
}

func cmdComplete(c *client, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: waypoint complete <week> <exercise-id> <score> <minutes>")
	}
	nums := make([]int, 0, 3)
	for _, i := range []int{0, 2, 3} {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return fmt.Errorf("not a number: %s", args[i])
		}
		nums = append(nums, n)
	}

	req := map[string]any{
		"week":             nums[0],
		"exerciseId":       args[1],
		"score":            nums[1],
		"timeSpentMinutes": nums[2],
	}
	var resp struct {
		UnlockedAchievements []domain.Achievement `json:"unlockedAchievements"`
		Stats                domain.Stats         `json:"stats"`
	}
	if err := c.post(c.learnerPath("/complete"), req, &resp); err != nil {
		return err
	}

	fmt.Printf("✓ Recorded %s (score %d)\n", args[1], nums[1])
	fmt.Printf("Level %d, %d/%d XP\n", resp.Stats.Level, resp.Stats.Experience, resp.Stats.ExperienceToNextLevel)
	for _, a := range resp.UnlockedAchievements {
		fmt.Printf("★ Achievement unlocked: %s (+%d)\n", a.Name, a.Points)
	}
	return nil
}

func cmdReset(c *client, args []string) error {
	if len(args) == 0 || args[0] != "--yes" {
		return fmt.Errorf("this erases all progress for %s; rerun with --yes to confirm", c.userID)
	}
	if err := c.post(c.learnerPath("/reset"), nil, nil); err != nil {
		return err
	}
	fmt.Println("✓ Progress reset")
	return nil
}

func cmdExport(c *client, args []string) error {
	var data []byte
	if err := c.get(c.learnerPath("/export"), &data); err != nil {
		return err
	}
	if len(args) == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("✓ Exported to %s\n", args[0])
	return nil
}

func cmdImport(c *client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: waypoint import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}

	var p domain.LearnerProfile
	if err := c.post(c.learnerPath("/import"), data, &p); err != nil {
		return err
	}
	fmt.Printf("✓ Imported progress: level %d, %d exercises completed\n", p.Stats.Level, p.Stats.ExercisesCompleted)
	return nil
}

// settingKinds lists the settings that take non-string values
var settingKinds = map[string]string{
	"theme":                "string",
	"notifications":        "bool",
	"dailyGoalMinutes":     "int",
	"preferredLanguage":    "string",
	"difficultyPreference": "string",
}

// parseSettings turns key=value arguments into a settings patch body
func parseSettings(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		kind, known := settingKinds[key]
		if !known {
			return nil, fmt.Errorf("unknown setting %q", key)
		}
		switch kind {
		case "bool":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%s must be true or false", key)
			}
			patch[key] = b
		case "int":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", key)
			}
			patch[key] = n
		default:
			patch[key] = value
		}
	}
	return patch, nil
}

func cmdSettings(c *client, args []string) error {
	var s domain.Settings
	if len(args) == 0 {
		var p domain.LearnerProfile
		if err := c.get(c.learnerPath("/progress"), &p); err != nil {
			return err
		}
		s = p.Settings
	} else {
		patch, err := parseSettings(args)
		if err != nil {
			return err
		}
		if err := c.do(http.MethodPatch, c.learnerPath("/settings"), patch, &s); err != nil {
			return err
		}
	}

	fmt.Printf("theme:                %s\n", s.Theme)
	fmt.Printf("notifications:        %t\n", s.Notifications)
	fmt.Printf("dailyGoalMinutes:     %d\n", s.DailyGoalMinutes)
	fmt.Printf("preferredLanguage:    %s\n", s.PreferredLanguage)
	fmt.Printf("difficultyPreference: %s\n", s.DifficultyPreference)
	return nil
}

// Package mcp exposes waypoint progress, evaluation and adaptation as MCP
// tools for editor integrations.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/waypoint/internal/daemon"
	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/progress"
)

// Server wraps the MCP server with waypoint functionality
type Server struct {
	mcpServer *server.Server
	svc       *daemon.Services
	userID    string
}

// Config contains configuration for the MCP server
type Config struct {
	Services *daemon.Services
	// UserID is used when a tool call names no learner
	UserID string
}

// NewServer creates a new MCP server for waypoint
func NewServer(cfg Config) *Server {
	userID := cfg.UserID
	if userID == "" {
		userID = "default"
	}
	s := &Server{svc: cfg.Services, userID: userID}

	s.mcpServer = server.New(server.Info{
		Name:    "waypoint",
		Version: daemon.Version,
	}, server.WithInstructions(`
Waypoint tracks progress through a weekly programming curriculum, scores
submissions and adapts difficulty.

Available tools:
- waypoint_progress: Show level, streak and weekly progress
- waypoint_week: Show one week's exercises
- waypoint_achievements: List achievements and their progress
- waypoint_complete: Record a completed exercise
- waypoint_exercise: Show an exercise template
- waypoint_evaluate: Score code against an exercise
- waypoint_generate: Pick the next exercise for a topic
- waypoint_difficulty: Recommend a difficulty tier

Every tool accepts an optional user_id; the configured learner is used
when it is omitted.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("waypoint_progress").
		Description("Show a learner's level, streak and weekly progress.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("waypoint_week").
		Description("Show the exercises of one curriculum week.").
		Handler(s.handleWeek)

	s.mcpServer.Tool("waypoint_achievements").
		Description("List achievements with their progress.").
		Handler(s.handleAchievements)

	s.mcpServer.Tool("waypoint_complete").
		Description("Record a completed exercise with its score and time spent.").
		Handler(s.handleComplete)

	s.mcpServer.Tool("waypoint_exercise").
		Description("Show an exercise template with its starter code.").
		Handler(s.handleExercise)

	s.mcpServer.Tool("waypoint_evaluate").
		Description("Score code against an exercise and explain the result.").
		Handler(s.handleEvaluate)

	s.mcpServer.Tool("waypoint_generate").
		Description("Pick the next exercise on a topic at the learner's level.").
		Handler(s.handleGenerate)

	s.mcpServer.Tool("waypoint_difficulty").
		Description("Recommend a difficulty tier from recent performance.").
		Handler(s.handleDifficulty)
}

// Input/Output types for tools

type LearnerInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured learner)"`
}

type ProgressOutput struct {
	UserID             string  `json:"user_id"`
	Level              int     `json:"level"`
	Experience         int     `json:"experience"`
	ExperienceToNext   int     `json:"experience_to_next_level"`
	ExercisesCompleted int     `json:"exercises_completed"`
	WeeksCompleted     int     `json:"weeks_completed"`
	CurrentStreakDays  int     `json:"current_streak_days"`
	AverageScore       float64 `json:"average_score"`
	Summary            string  `json:"summary"`
}

type WeekInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured learner)"`
	Week   int    `json:"week" jsonschema:"description=Week number starting at 1"`
}

type WeekOutput struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Unlocked  bool   `json:"unlocked"`
	Completed bool   `json:"completed"`
	Summary   string `json:"summary"`
}

type AchievementsOutput struct {
	Unlocked int    `json:"unlocked"`
	Total    int    `json:"total"`
	Summary  string `json:"summary"`
}

type CompleteInput struct {
	UserID           string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured learner)"`
	Week             int    `json:"week" jsonschema:"description=Week number of the exercise"`
	ExerciseID       string `json:"exercise_id" jsonschema:"description=Curriculum exercise ID"`
	Score            int    `json:"score" jsonschema:"description=Score from 0 to 100"`
	TimeSpentMinutes int    `json:"time_spent_minutes" jsonschema:"description=Minutes spent on the exercise"`
}

type CompleteOutput struct {
	Unlocked []string `json:"unlocked_achievements"`
	Level    int      `json:"level"`
	Message  string   `json:"message"`
}

type ExerciseInput struct {
	ExerciseID string `json:"exercise_id" jsonschema:"description=Exercise template ID"`
}

type ExerciseOutput struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Topic       string            `json:"topic"`
	Tier        string            `json:"tier"`
	Week        int               `json:"week,omitempty"`
	Description string            `json:"description"`
	StarterCode map[string]string `json:"starter_code,omitempty"`
	Hints       []string          `json:"hints,omitempty"`
}

type EvaluateInput struct {
	UserID     string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured learner)"`
	ExerciseID string `json:"exercise_id" jsonschema:"description=Exercise template ID"`
	Code       string `json:"code" jsonschema:"description=Submitted source code"`
	Language   string `json:"language,omitempty" jsonschema:"description=Source language (default: go)"`
}

type EvaluateOutput struct {
	Score       int      `json:"score"`
	PassedTests int      `json:"passed_tests"`
	TotalTests  int      `json:"total_tests"`
	Status      string   `json:"status"`
	Strategy    string   `json:"strategy"`
	Errors      []string `json:"errors,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Explanation string   `json:"explanation"`
}

type GenerateInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured learner)"`
	Topic  string `json:"topic" jsonschema:"description=Curriculum topic such as basics or concurrency"`
	Week   int    `json:"week,omitempty" jsonschema:"description=Week to label the exercise with (default: current week)"`
}

type DifficultyOutput struct {
	Tier        string   `json:"tier"`
	Rationale   string   `json:"rationale"`
	Adjustments []string `json:"adjustments"`
	FocusAreas  []string `json:"focus_areas,omitempty"`
}

// Tool handlers

func (s *Server) learner(id string) string {
	if id == "" {
		return s.userID
	}
	return id
}

func (s *Server) handleProgress(ctx context.Context, input LearnerInput) (ProgressOutput, error) {
	p, err := s.svc.Profile(ctx, s.learner(input.UserID))
	if err != nil {
		return ProgressOutput{}, toolError("load progress", err)
	}

	st := p.Stats
	return ProgressOutput{
		UserID:             p.UserID,
		Level:              st.Level,
		Experience:         st.Experience,
		ExperienceToNext:   st.ExperienceToNextLevel,
		ExercisesCompleted: st.ExercisesCompleted,
		WeeksCompleted:     st.WeeksCompleted,
		CurrentStreakDays:  st.CurrentStreakDays,
		AverageScore:       st.AverageScore,
		Summary:            weeksSummary(p.Weeks),
	}, nil
}

// weeksSummary renders one line per week such as "Week 1 Foundations: 3/5"
func weeksSummary(weeks []domain.WeekProgress) string {
	lines := make([]string, 0, len(weeks))
	for _, w := range weeks {
		done := 0
		for _, ex := range w.Exercises {
			if ex.Completed {
				done++
			}
		}
		mark := ""
		switch {
		case w.Completed:
			mark = " ✓"
		case !w.Unlocked:
			mark = " (locked)"
		}
		lines = append(lines, fmt.Sprintf("Week %d %s: %d/%d%s", w.Number, w.Title, done, len(w.Exercises), mark))
	}
	return strings.Join(lines, "\n")
}

func (s *Server) handleWeek(ctx context.Context, input WeekInput) (WeekOutput, error) {
	var week domain.WeekProgress
	err := s.svc.Manager.Do(ctx, s.learner(input.UserID), func(t *progress.Tracker) error {
		var err error
		week, err = t.GetWeek(input.Week)
		return err
	})
	if err != nil {
		return WeekOutput{}, toolError("load week", err)
	}

	lines := make([]string, 0, len(week.Exercises))
	for _, ex := range week.Exercises {
		status := "todo"
		if ex.Completed && ex.Score != nil {
			status = fmt.Sprintf("done (%d)", *ex.Score)
		}
		lines = append(lines, fmt.Sprintf("%s  %-28s %-9s %s", ex.ID, ex.Title, ex.Type, status))
	}
	return WeekOutput{
		Number:    week.Number,
		Title:     week.Title,
		Unlocked:  week.Unlocked,
		Completed: week.Completed,
		Summary:   strings.Join(lines, "\n"),
	}, nil
}

func (s *Server) handleAchievements(ctx context.Context, input LearnerInput) (AchievementsOutput, error) {
	var achievements []domain.Achievement
	err := s.svc.Manager.Do(ctx, s.learner(input.UserID), func(t *progress.Tracker) error {
		achievements = t.GetAchievements()
		return nil
	})
	if err != nil {
		return AchievementsOutput{}, toolError("load achievements", err)
	}

	out := AchievementsOutput{Total: len(achievements)}
	lines := make([]string, 0, len(achievements))
	for _, a := range achievements {
		mark := "·"
		if a.Unlocked {
			out.Unlocked++
			mark = "★"
		}
		lines = append(lines, fmt.Sprintf("%s %s (%d/%d): %s", mark, a.Name, a.Progress, a.MaxProgress, a.Description))
	}
	out.Summary = strings.Join(lines, "\n")
	return out, nil
}

func (s *Server) handleComplete(ctx context.Context, input CompleteInput) (CompleteOutput, error) {
	var (
		unlocked []domain.Achievement
		stats    domain.Stats
	)
	err := s.svc.Manager.Do(ctx, s.learner(input.UserID), func(t *progress.Tracker) error {
		var err error
		unlocked, err = t.CompleteExercise(ctx, input.Week, input.ExerciseID, input.Score, input.TimeSpentMinutes)
		stats = t.GetStats()
		return err
	})
	if err != nil {
		return CompleteOutput{}, toolError("complete exercise", err)
	}

	out := CompleteOutput{Unlocked: make([]string, 0, len(unlocked)), Level: stats.Level}
	for _, a := range unlocked {
		out.Unlocked = append(out.Unlocked, a.Name)
	}
	out.Message = fmt.Sprintf("Recorded %s with score %d. Level %d, %d exercises completed.",
		input.ExerciseID, input.Score, stats.Level, stats.ExercisesCompleted)
	if len(out.Unlocked) > 0 {
		out.Message += " Unlocked: " + strings.Join(out.Unlocked, ", ") + "."
	}
	return out, nil
}

func (s *Server) handleExercise(ctx context.Context, input ExerciseInput) (ExerciseOutput, error) {
	spec, err := s.svc.Catalog.Get(input.ExerciseID)
	if err != nil {
		return ExerciseOutput{}, toolError("load exercise", err)
	}
	return exerciseOutput(spec), nil
}

func exerciseOutput(spec domain.ExerciseSpec) ExerciseOutput {
	return ExerciseOutput{
		ID:          spec.ID,
		Title:       spec.Title,
		Topic:       spec.Topic,
		Tier:        string(spec.Tier),
		Week:        spec.Week,
		Description: spec.Description,
		StarterCode: spec.StarterCode,
		Hints:       spec.Hints,
	}
}

func (s *Server) handleEvaluate(ctx context.Context, input EvaluateInput) (EvaluateOutput, error) {
	res, err := s.svc.EvaluateExercise(ctx, s.learner(input.UserID), input.ExerciseID, input.Language, input.Code)
	if err != nil {
		return EvaluateOutput{}, toolError("evaluate", err)
	}
	return EvaluateOutput{
		Score:       res.Score,
		PassedTests: res.PassedTests,
		TotalTests:  res.TotalTests,
		Status:      string(res.Status),
		Strategy:    res.Strategy,
		Errors:      res.Errors,
		Suggestions: res.Suggestions,
		Explanation: res.Explanation,
	}, nil
}

func (s *Server) handleGenerate(ctx context.Context, input GenerateInput) (ExerciseOutput, error) {
	spec, err := s.svc.GenerateExercise(ctx, s.learner(input.UserID), daemon.GenerateRequest{
		Topic: input.Topic,
		Week:  input.Week,
	})
	if err != nil {
		return ExerciseOutput{}, toolError("generate exercise", err)
	}
	return exerciseOutput(spec), nil
}

func (s *Server) handleDifficulty(ctx context.Context, input LearnerInput) (DifficultyOutput, error) {
	rec, err := s.svc.RecommendDifficulty(ctx, s.learner(input.UserID))
	if err != nil {
		return DifficultyOutput{}, toolError("recommend difficulty", err)
	}
	return DifficultyOutput{
		Tier:        string(rec.Tier),
		Rationale:   rec.Rationale,
		Adjustments: rec.Adjustments,
		FocusAreas:  rec.FocusAreas,
	}, nil
}

// toolError keeps domain errors readable for the calling assistant
func toolError(op string, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%s: invalid input: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}

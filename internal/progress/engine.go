package progress

import (
	"strconv"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/curriculum"
	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Engine applies exercise completions to a learner profile. It works purely
// on the in-memory aggregate; persistence is the Tracker's job.
type Engine struct {
	curriculum   *curriculum.Model
	achievements *AchievementEngine
	now          func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source. The clock's location decides which
// calendar day "today" is for date-based achievements.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAchievements replaces the default achievement catalog
func WithAchievements(a *AchievementEngine) Option {
	return func(e *Engine) { e.achievements = a }
}

// NewEngine creates an engine for a curriculum
func NewEngine(model *curriculum.Model, opts ...Option) *Engine {
	e := &Engine{
		curriculum:   model,
		achievements: NewAchievementEngine(DefaultRules(model.WeekCount())),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Curriculum returns the curriculum the engine was built for
func (e *Engine) Curriculum() *curriculum.Model {
	return e.curriculum
}

// Achievements returns the achievement engine
func (e *Engine) Achievements() *AchievementEngine {
	return e.achievements
}

// Now returns the engine clock's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// NewProfile creates a fresh profile defaulted from the curriculum: week 1
// unlocked, every achievement at zero progress, level 1.
func (e *Engine) NewProfile(userID string) *domain.LearnerProfile {
	now := e.now().UTC()
	weeks := e.curriculum.Weeks()

	p := &domain.LearnerProfile{
		UserID:         userID,
		RegisteredAt:   now,
		LastActivityAt: now,
		Weeks:          make([]domain.WeekProgress, len(weeks)),
		Achievements:   e.achievements.Seed(),
		Stats: domain.Stats{
			Level:                 1,
			ExperienceToNextLevel: experiencePerLevel,
		},
		Settings: domain.DefaultSettings(),
	}
	for i, w := range weeks {
		wp := domain.WeekProgress{
			Number:    w.Number,
			Title:     w.Title,
			Unlocked:  i == 0,
			Exercises: make([]domain.ExerciseRecord, len(w.Exercises)),
		}
		for j, ex := range w.Exercises {
			wp.Exercises[j] = domain.ExerciseRecord{ID: ex.ID, Title: ex.Title, Type: ex.Type}
		}
		p.Weeks[i] = wp
	}
	return p
}

// Completion is the outcome of one CompleteExercise call
type Completion struct {
	Unlocked        []domain.Achievement
	FirstCompletion bool // the exercise flipped to completed in this call
	WeekCompleted   bool // the owning week reached 100% in this call
	UnlockedWeek    int  // week number unlocked by this call, 0 if none
	At              time.Time
}

// CompleteExercise records a submission for an exercise. It returns a
// NotFoundError without touching the profile when the week or exercise does
// not exist, and a ValidationError for a score outside 0..100 or negative
// time.
//
// Re-submitting a completed exercise updates score, time and attempts but
// never re-runs first-completion counters, week completion or unlocks.
func (e *Engine) CompleteExercise(p *domain.LearnerProfile, weekNumber int, exerciseID string, score, minutes int) (Completion, error) {
	week := p.Week(weekNumber)
	if week == nil {
		return Completion{}, domain.NewNotFound("week", strconv.Itoa(weekNumber))
	}
	ex := week.Exercise(exerciseID)
	if ex == nil {
		return Completion{}, domain.NewNotFound("exercise", exerciseID)
	}
	if score < 0 || score > 100 {
		return Completion{}, domain.NewValidation("score", "must be between 0 and 100")
	}
	if minutes < 0 {
		return Completion{}, domain.NewValidation("timeSpentMinutes", "must not be negative")
	}

	clock := e.now()
	now := clock.UTC()
	result := Completion{At: now}
	stats := &p.Stats

	stats.CurrentStreakDays, stats.BestStreakDays = UpdateStreak(
		p.LastActivityAt, now, stats.CurrentStreakDays, stats.BestStreakDays)
	p.LastActivityAt = now
	if week.StartedAt == nil {
		started := now
		week.StartedAt = &started
	}

	if !ex.Completed {
		completedAt := now
		ex.Completed = true
		ex.CompletedAt = &completedAt
		stats.ExercisesCompleted++
		result.FirstCompletion = true
	}

	s := score
	ex.Score = &s
	ex.TimeInvestedMinutes += minutes
	ex.Attempts++
	week.TotalTimeMinutes += minutes
	stats.TotalTimeMinutes += minutes
	stats.TotalAttempts++

	stats.AverageScore = averageScore(p)

	stats.Experience += score * 2
	stats.Level, stats.Experience, stats.ExperienceToNextLevel = ApplyLevel(
		stats.Level, stats.Experience, stats.ExperienceToNextLevel)

	week.CompletionPercent = domain.CompletionPercentFor(week.CompletedCount(), len(week.Exercises))
	if !week.Completed && week.CompletionPercent == 100 && len(week.Exercises) > 0 {
		completedAt := now
		week.Completed = true
		week.CompletedAt = &completedAt
		stats.WeeksCompleted++
		result.WeekCompleted = true

		if next := p.Week(weekNumber + 1); next != nil && !next.Unlocked {
			next.Unlocked = true
			result.UnlockedWeek = next.Number
		}
	}

	result.Unlocked = e.achievements.Evaluate(p, clock)
	if len(result.Unlocked) > 0 {
		stats.Level, stats.Experience, stats.ExperienceToNextLevel = ApplyLevel(
			stats.Level, stats.Experience, stats.ExperienceToNextLevel)
	}

	return result, nil
}

// averageScore is the mean score of completed, scored exercises, recomputed
// from scratch so it cannot drift.
func averageScore(p *domain.LearnerProfile) float64 {
	total, n := 0, 0
	for _, ex := range p.CompletedExercises() {
		if ex.Score != nil {
			total += *ex.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

package progress

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Achievement categories
const (
	CategoryProgress   = "progress"
	CategorySpeed      = "speed"
	CategoryMastery    = "mastery"
	CategoryTime       = "time"
	CategoryStreak     = "streak"
	CategoryDedication = "dedication"
)

// ProgressFunc extracts an achievement's progress from a profile. now is the
// evaluation time in the caller's location.
type ProgressFunc func(p *domain.LearnerProfile, now time.Time) int

// Rule is one achievement catalog entry. Adding an achievement means adding
// a Rule; the engine evaluates every rule the same way.
type Rule struct {
	ID          string
	Name        string
	Description string
	Category    string
	Points      int
	Threshold   int
	Progress    ProgressFunc
}

// DefaultRules returns the built-in catalog for a curriculum with weekCount
// weeks.
func DefaultRules(weekCount int) []Rule {
	return []Rule{
		{
			ID: "first-exercise", Name: "First Steps", Category: CategoryProgress,
			Description: "Complete your first exercise",
			Points:      10, Threshold: 1, Progress: exercisesCompleted,
		},
		{
			ID: "first-week", Name: "Week One Down", Category: CategoryProgress,
			Description: "Complete every exercise in a week",
			Points:      50, Threshold: 1, Progress: weeksCompleted,
		},
		{
			ID: "speedrunner", Name: "Speedrunner", Category: CategorySpeed,
			Description: "Complete 5 exercises in a single day",
			Points:      30, Threshold: 5, Progress: completedToday,
		},
		{
			ID: "perfectionist", Name: "Perfectionist", Category: CategoryMastery,
			Description: "Score 100 on 3 exercises in a row",
			Points:      40, Threshold: 3, Progress: longestPerfectRun,
		},
		{
			ID: "marathoner", Name: "Marathoner", Category: CategoryTime,
			Description: "Invest 600 minutes of practice",
			Points:      60, Threshold: 600,
			Progress: func(p *domain.LearnerProfile, _ time.Time) int { return p.Stats.TotalTimeMinutes },
		},
		{
			ID: "consistency", Name: "Consistency", Category: CategoryStreak,
			Description: "Keep a 7 day streak",
			Points:      50, Threshold: 7,
			Progress: func(p *domain.LearnerProfile, _ time.Time) int { return p.Stats.CurrentStreakDays },
		},
		{
			ID: "master", Name: "Curriculum Master", Category: CategoryMastery,
			Description: "Complete every week of the curriculum",
			Points:      200, Threshold: max(weekCount, 1), Progress: weeksCompleted,
		},
		{
			ID: "halfway", Name: "Halfway There", Category: CategoryProgress,
			Description: "Complete half of the curriculum's weeks",
			Points:      100, Threshold: max((weekCount+1)/2, 1), Progress: weeksCompleted,
		},
		{
			ID: "persistent", Name: "Persistent", Category: CategoryDedication,
			Description: "Submit 50 attempts",
			Points:      30, Threshold: 50,
			Progress: func(p *domain.LearnerProfile, _ time.Time) int { return p.Stats.TotalAttempts },
		},
		{
			ID: "high-achiever", Name: "High Achiever", Category: CategoryMastery,
			Description: "Score 90 or more on 10 exercises",
			Points:      40, Threshold: 10, Progress: highScores,
		},
		{
			ID: "project-builder", Name: "Project Builder", Category: CategoryProgress,
			Description: "Complete 3 project exercises",
			Points:      75, Threshold: 3, Progress: projectsCompleted,
		},
	}
}

func exercisesCompleted(p *domain.LearnerProfile, _ time.Time) int {
	return p.Stats.ExercisesCompleted
}

func weeksCompleted(p *domain.LearnerProfile, _ time.Time) int {
	return p.Stats.WeeksCompleted
}

// completedToday counts exercises whose completion date, as a date string in
// now's location, equals now's date string.
func completedToday(p *domain.LearnerProfile, now time.Time) int {
	today := now.Format(time.DateOnly)
	n := 0
	for _, ex := range p.CompletedExercises() {
		if ex.CompletedAt != nil && ex.CompletedAt.In(now.Location()).Format(time.DateOnly) == today {
			n++
		}
	}
	return n
}

// longestPerfectRun orders scored, completed exercises by completion time and
// returns the longest run of consecutive 100 scores.
func longestPerfectRun(p *domain.LearnerProfile, _ time.Time) int {
	var done []domain.ExerciseRecord
	for _, ex := range p.CompletedExercises() {
		if ex.Score != nil && ex.CompletedAt != nil {
			done = append(done, ex)
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].CompletedAt.Before(*done[j].CompletedAt)
	})

	best, run := 0, 0
	for _, ex := range done {
		if *ex.Score == 100 {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

func highScores(p *domain.LearnerProfile, _ time.Time) int {
	n := 0
	for _, ex := range p.CompletedExercises() {
		if ex.Score != nil && *ex.Score >= 90 {
			n++
		}
	}
	return n
}

func projectsCompleted(p *domain.LearnerProfile, _ time.Time) int {
	n := 0
	for _, ex := range p.CompletedExercises() {
		if ex.Type == domain.ExerciseProject {
			n++
		}
	}
	return n
}

// AchievementEngine evaluates a fixed rule catalog against a profile
type AchievementEngine struct {
	rules []Rule
}

// NewAchievementEngine creates an engine over rules
func NewAchievementEngine(rules []Rule) *AchievementEngine {
	return &AchievementEngine{rules: rules}
}

// Rules returns the catalog
func (e *AchievementEngine) Rules() []Rule {
	return e.rules
}

// Seed returns the learner-side achievement list at zero progress
func (e *AchievementEngine) Seed() []domain.Achievement {
	out := make([]domain.Achievement, len(e.rules))
	for i, r := range e.rules {
		out[i] = seedAchievement(r)
	}
	return out
}

func seedAchievement(r Rule) domain.Achievement {
	return domain.Achievement{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Points:      r.Points,
		MaxProgress: r.Threshold,
	}
}

// Reconcile appends catalog achievements missing from the profile. Stored
// entries, including ones no longer in the catalog, are left untouched.
// It reports whether anything was added.
func (e *AchievementEngine) Reconcile(p *domain.LearnerProfile) bool {
	added := false
	for _, r := range e.rules {
		if p.Achievement(r.ID) == nil {
			p.Achievements = append(p.Achievements, seedAchievement(r))
			added = true
		}
	}
	return added
}

// Evaluate recomputes progress for every locked achievement and unlocks the
// ones that reach their maximum. It returns only the achievements unlocked
// during this call.
//
// Each unlock adds its points to Stats.TotalPoints and twice its points to
// Stats.Experience. Evaluate does not roll that experience into levels: the
// caller must run ApplyLevel afterwards.
func (e *AchievementEngine) Evaluate(p *domain.LearnerProfile, now time.Time) []domain.Achievement {
	var unlocked []domain.Achievement
	for _, r := range e.rules {
		a := p.Achievement(r.ID)
		if a == nil || a.Unlocked {
			continue
		}

		progress := min(r.Progress(p, now), a.MaxProgress)
		if progress > a.Progress {
			a.Progress = progress
		}
		if a.Progress < a.MaxProgress {
			continue
		}

		at := now.UTC()
		stamp := at
		a.Unlocked = true
		a.UnlockedAt = &stamp
		p.Stats.TotalPoints += a.Points
		p.Stats.Experience += a.Points * 2
		snapshot := *a
		snapshot.UnlockedAt = &at
		unlocked = append(unlocked, snapshot)
	}
	return unlocked
}

package domain

import (
	"time"
)

// ExerciseType classifies a curriculum exercise
type ExerciseType string

const (
	ExerciseConcept  ExerciseType = "concept"
	ExercisePractice ExerciseType = "practice"
	ExerciseProject  ExerciseType = "project"
)

// Valid reports whether t is a known exercise type
func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseConcept, ExercisePractice, ExerciseProject:
		return true
	}
	return false
}

// LearnerProfile is the root aggregate for one learner. It is persisted as a
// single JSON document and has exactly one writer at a time.
type LearnerProfile struct {
	UserID         string         `json:"userId"`
	RegisteredAt   time.Time      `json:"registeredAt"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	Weeks          []WeekProgress `json:"weeks"`
	Achievements   []Achievement  `json:"achievements"`
	Stats          Stats          `json:"stats"`
	Settings       Settings       `json:"settings"`
}

// WeekProgress tracks one curriculum week
type WeekProgress struct {
	Number            int              `json:"number"`
	Title             string           `json:"title"`
	Completed         bool             `json:"completed"`
	CompletionPercent float64          `json:"completionPercent"`
	Unlocked          bool             `json:"unlocked"`
	Exercises         []ExerciseRecord `json:"exercises"`
	TotalTimeMinutes  int              `json:"totalTimeMinutes"`
	StartedAt         *time.Time       `json:"startedAt,omitempty"`
	CompletedAt       *time.Time       `json:"completedAt,omitempty"`
}

// ExerciseRecord tracks a learner's work on one exercise
type ExerciseRecord struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title,omitempty"`
	Type                ExerciseType `json:"type"`
	Completed           bool         `json:"completed"`
	Score               *int         `json:"score,omitempty"`
	TimeInvestedMinutes int          `json:"timeInvestedMinutes"`
	Attempts            int          `json:"attempts"`
	CompletedAt         *time.Time   `json:"completedAt,omitempty"`
}

// Achievement is the learner-side state of one catalog entry
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Points      int        `json:"points"`
	MaxProgress int        `json:"maxProgress"`
	Progress    int        `json:"progress"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// Stats holds aggregate counters for a learner
type Stats struct {
	Level                 int     `json:"level"`
	Experience            int     `json:"experience"`
	ExperienceToNextLevel int     `json:"experienceToNextLevel"`
	TotalPoints           int     `json:"totalPoints"`
	WeeksCompleted        int     `json:"weeksCompleted"`
	ExercisesCompleted    int     `json:"exercisesCompleted"`
	TotalTimeMinutes      int     `json:"totalTimeMinutes"`
	CurrentStreakDays     int     `json:"currentStreakDays"`
	BestStreakDays        int     `json:"bestStreakDays"`
	AverageScore          float64 `json:"averageScore"`
	TotalAttempts         int     `json:"totalAttempts"`
}

// Week returns the week with the given number, or nil
func (p *LearnerProfile) Week(number int) *WeekProgress {
	for i := range p.Weeks {
		if p.Weeks[i].Number == number {
			return &p.Weeks[i]
		}
	}
	return nil
}

// Achievement returns the achievement with the given id, or nil
func (p *LearnerProfile) Achievement(id string) *Achievement {
	for i := range p.Achievements {
		if p.Achievements[i].ID == id {
			return &p.Achievements[i]
		}
	}
	return nil
}

// CompletedExercises returns every completed exercise record across all weeks,
// in curriculum order.
func (p *LearnerProfile) CompletedExercises() []ExerciseRecord {
	var out []ExerciseRecord
	for _, w := range p.Weeks {
		for _, ex := range w.Exercises {
			if ex.Completed {
				out = append(out, ex)
			}
		}
	}
	return out
}

// Exercise returns the exercise record with the given id, or nil
func (w *WeekProgress) Exercise(id string) *ExerciseRecord {
	for i := range w.Exercises {
		if w.Exercises[i].ID == id {
			return &w.Exercises[i]
		}
	}
	return nil
}

// CompletedCount returns how many exercises in the week are completed
func (w *WeekProgress) CompletedCount() int {
	n := 0
	for _, ex := range w.Exercises {
		if ex.Completed {
			n++
		}
	}
	return n
}

// CompletionPercentFor computes 100 * completed / total, or 0 for an empty week.
func CompletionPercentFor(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(completed) / float64(total)
}

// Clone returns a deep copy of the profile. Snapshots handed to callers are
// clones so they cannot mutate the live aggregate.
func (p *LearnerProfile) Clone() *LearnerProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Weeks = make([]WeekProgress, len(p.Weeks))
	for i, w := range p.Weeks {
		c.Weeks[i] = w.Clone()
	}
	c.Achievements = make([]Achievement, len(p.Achievements))
	for i, a := range p.Achievements {
		c.Achievements[i] = a
		c.Achievements[i].UnlockedAt = cloneTime(a.UnlockedAt)
	}
	return &c
}

// Clone returns a deep copy of the week
func (w WeekProgress) Clone() WeekProgress {
	c := w
	c.StartedAt = cloneTime(w.StartedAt)
	c.CompletedAt = cloneTime(w.CompletedAt)
	c.Exercises = make([]ExerciseRecord, len(w.Exercises))
	for i, ex := range w.Exercises {
		c.Exercises[i] = ex
		c.Exercises[i].CompletedAt = cloneTime(ex.CompletedAt)
		if ex.Score != nil {
			s := *ex.Score
			c.Exercises[i].Score = &s
		}
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

package domain

import (
	"errors"
	"fmt"
)

// CheckInvariants verifies the structural rules of a learner profile and
// returns every violation found, joined. A nil result means the profile is
// consistent.
func CheckInvariants(p *LearnerProfile) error {
	if p == nil {
		return NewValidation("profile", "is nil")
	}

	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, NewValidation(field, fmt.Sprintf(format, args...)))
	}

	if p.UserID == "" {
		fail("userId", "is empty")
	}
	if len(p.Weeks) == 0 {
		fail("weeks", "is empty")
	}

	seen := make(map[string]bool)
	completedExercises := 0
	completedWeeks := 0
	for i := range p.Weeks {
		w := &p.Weeks[i]
		field := fmt.Sprintf("weeks[%d]", i)

		if w.Number != i+1 {
			fail(field, "number %d, want %d", w.Number, i+1)
		}

		done := w.CompletedCount()
		completedExercises += done
		want := CompletionPercentFor(done, len(w.Exercises))
		if w.CompletionPercent != want {
			fail(field, "completionPercent %.2f, want %.2f", w.CompletionPercent, want)
		}
		if w.Completed != (want == 100 && len(w.Exercises) > 0) {
			fail(field, "completed=%t with completionPercent %.2f", w.Completed, want)
		}
		if w.Completed {
			completedWeeks++
		}

		if i == 0 && !w.Unlocked {
			fail(field, "first week must be unlocked")
		}
		if i > 0 && w.Unlocked != p.Weeks[i-1].Completed {
			fail(field, "unlocked=%t but previous week completed=%t", w.Unlocked, p.Weeks[i-1].Completed)
		}

		for _, ex := range w.Exercises {
			if seen[ex.ID] {
				fail(field, "duplicate exercise id %q", ex.ID)
			}
			seen[ex.ID] = true
			if ex.Score != nil && (*ex.Score < 0 || *ex.Score > 100) {
				fail(field, "exercise %q score %d out of range", ex.ID, *ex.Score)
			}
			if ex.Completed && ex.CompletedAt == nil {
				fail(field, "exercise %q completed without completedAt", ex.ID)
			}
			if ex.TimeInvestedMinutes < 0 || ex.Attempts < 0 {
				fail(field, "exercise %q has negative counters", ex.ID)
			}
		}
	}

	points := 0
	for i, a := range p.Achievements {
		field := fmt.Sprintf("achievements[%d]", i)
		if a.Progress < 0 || a.Progress > a.MaxProgress {
			fail(field, "%s progress %d outside 0..%d", a.ID, a.Progress, a.MaxProgress)
		}
		if a.Unlocked {
			points += a.Points
			if a.UnlockedAt == nil {
				fail(field, "%s unlocked without unlockedAt", a.ID)
			}
		}
	}

	s := p.Stats
	if s.ExercisesCompleted != completedExercises {
		fail("stats.exercisesCompleted", "%d, want %d", s.ExercisesCompleted, completedExercises)
	}
	if s.WeeksCompleted != completedWeeks {
		fail("stats.weeksCompleted", "%d, want %d", s.WeeksCompleted, completedWeeks)
	}
	if s.TotalPoints != points {
		fail("stats.totalPoints", "%d, want %d", s.TotalPoints, points)
	}
	if s.Level < 1 {
		fail("stats.level", "%d is below 1", s.Level)
	}
	if s.Experience < 0 || s.Experience >= s.ExperienceToNextLevel {
		fail("stats.experience", "%d outside 0..%d", s.Experience, s.ExperienceToNextLevel)
	}
	if s.BestStreakDays < s.CurrentStreakDays {
		fail("stats.bestStreakDays", "%d below current streak %d", s.BestStreakDays, s.CurrentStreakDays)
	}

	return errors.Join(errs...)
}

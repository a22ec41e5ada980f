package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func sampleProfile() *LearnerProfile {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &LearnerProfile{
		UserID:         "learner-1",
		RegisteredAt:   now,
		LastActivityAt: now,
		Weeks: []WeekProgress{
			{
				Number:            1,
				Title:             "Foundations",
				Unlocked:          true,
				CompletionPercent: 50,
				StartedAt:         &now,
				Exercises: []ExerciseRecord{
					{ID: "e1", Type: ExerciseConcept, Completed: true, Score: intPtr(90), Attempts: 1, TimeInvestedMinutes: 10, CompletedAt: &now},
					{ID: "e2", Type: ExercisePractice},
				},
			},
			{
				Number:    2,
				Title:     "Control Flow",
				Exercises: []ExerciseRecord{{ID: "e3", Type: ExerciseProject}},
			},
		},
		Achievements: []Achievement{
			{ID: "first-exercise", Points: 10, MaxProgress: 1, Progress: 1, Unlocked: true, UnlockedAt: &now},
			{ID: "first-week", Points: 50, MaxProgress: 1},
		},
		Stats: Stats{
			Level:                 1,
			Experience:            200,
			ExperienceToNextLevel: 1000,
			TotalPoints:           10,
			ExercisesCompleted:    1,
			AverageScore:          90,
			TotalAttempts:         1,
		},
		Settings: DefaultSettings(),
	}
}

func TestLearnerProfile_Lookup(t *testing.T) {
	p := sampleProfile()

	if w := p.Week(2); w == nil || w.Title != "Control Flow" {
		t.Errorf("Week(2) = %+v, want Control Flow", w)
	}
	if w := p.Week(9); w != nil {
		t.Errorf("Week(9) = %+v, want nil", w)
	}
	if ex := p.Week(1).Exercise("e2"); ex == nil || ex.Type != ExercisePractice {
		t.Errorf("Exercise(e2) = %+v", ex)
	}
	if ex := p.Week(1).Exercise("e3"); ex != nil {
		t.Error("Exercise(e3) should not be found in week 1")
	}
	if a := p.Achievement("first-week"); a == nil || a.Points != 50 {
		t.Errorf("Achievement(first-week) = %+v", a)
	}
	if got := len(p.CompletedExercises()); got != 1 {
		t.Errorf("CompletedExercises() len = %d, want 1", got)
	}
}

func TestLearnerProfile_Clone(t *testing.T) {
	p := sampleProfile()
	c := p.Clone()

	if !reflect.DeepEqual(p, c) {
		t.Fatal("Clone() should be deeply equal to the original")
	}

	*c.Weeks[0].Exercises[0].Score = 10
	c.Weeks[0].Exercises[1].Completed = true
	later := p.LastActivityAt.Add(time.Hour)
	*c.Achievements[0].UnlockedAt = later

	if *p.Weeks[0].Exercises[0].Score != 90 {
		t.Error("mutating clone score changed original")
	}
	if p.Weeks[0].Exercises[1].Completed {
		t.Error("mutating clone exercise changed original")
	}
	if p.Achievements[0].UnlockedAt.Equal(later) {
		t.Error("mutating clone unlockedAt changed original")
	}

	var nilProfile *LearnerProfile
	if nilProfile.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestCompletionPercentFor(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 0, 0},
		{0, 5, 0},
		{4, 5, 80},
		{5, 5, 100},
		{1, 3, 100.0 / 3},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := CompletionPercentFor(tt.done, tt.total); got != tt.want {
			t.Errorf("CompletionPercentFor(%d, %d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestCheckInvariants(t *testing.T) {
	if err := CheckInvariants(sampleProfile()); err != nil {
		t.Fatalf("CheckInvariants() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *LearnerProfile)
	}{
		{"wrong percent", func(p *LearnerProfile) { p.Weeks[0].CompletionPercent = 40 }},
		{"completed below 100", func(p *LearnerProfile) { p.Weeks[0].Completed = true }},
		{"first week locked", func(p *LearnerProfile) { p.Weeks[0].Unlocked = false }},
		{"unlocked before previous completed", func(p *LearnerProfile) { p.Weeks[1].Unlocked = true }},
		{"duplicate exercise id", func(p *LearnerProfile) { p.Weeks[1].Exercises[0].ID = "e1" }},
		{"score out of range", func(p *LearnerProfile) { p.Weeks[0].Exercises[0].Score = intPtr(101) }},
		{"progress above max", func(p *LearnerProfile) { p.Achievements[1].Progress = 2 }},
		{"points mismatch", func(p *LearnerProfile) { p.Stats.TotalPoints = 70 }},
		{"exercise count mismatch", func(p *LearnerProfile) { p.Stats.ExercisesCompleted = 3 }},
		{"experience overflow", func(p *LearnerProfile) { p.Stats.Experience = 1000 }},
		{"week numbering", func(p *LearnerProfile) { p.Weeks[1].Number = 3 }},
		{"empty user", func(p *LearnerProfile) { p.UserID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sampleProfile()
			tt.mutate(p)
			err := CheckInvariants(p)
			if err == nil {
				t.Fatal("CheckInvariants() should report a violation")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("CheckInvariants() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSettings_Merge(t *testing.T) {
	s := DefaultSettings()
	theme := "dark"
	goal := 45
	if err := s.Merge(SettingsPatch{Theme: &theme, DailyGoalMinutes: &goal}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if s.Theme != "dark" || s.DailyGoalMinutes != 45 {
		t.Errorf("Merge() = %+v", s)
	}
	if !s.Notifications || s.PreferredLanguage != "go" {
		t.Error("Merge() should leave unset fields unchanged")
	}

	bad := "impossible"
	before := s
	err := s.Merge(SettingsPatch{Theme: &theme, DifficultyPreference: &bad})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Merge() error = %v, want ErrInvalidInput", err)
	}
	if s != before {
		t.Error("invalid patch should not modify settings")
	}

	negative := -1
	if err := s.Merge(SettingsPatch{DailyGoalMinutes: &negative}); err == nil {
		t.Error("Merge() should reject a negative daily goal")
	}
}

func TestErrors(t *testing.T) {
	nf := NewNotFound("week", "7")
	if !errors.Is(nf, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if nf.Error() != "week not found: 7" {
		t.Errorf("Error() = %q", nf.Error())
	}

	cause := errors.New("disk full")
	pe := &PersistenceError{Op: "save", UserID: "u1", Err: cause}
	if !errors.Is(pe, ErrPersistence) || !errors.Is(pe, cause) {
		t.Error("PersistenceError should match ErrPersistence and its cause")
	}

	ve := NewValidation("weeks", "missing")
	var target *ValidationError
	if !errors.As(ve, &target) || target.Field != "weeks" {
		t.Errorf("errors.As(ValidationError) failed: %v", ve)
	}
}

func TestTierForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  Tier
	}{
		{0, TierEasy}, {1, TierEasy}, {2, TierEasy},
		{3, TierMedium}, {5, TierMedium},
		{6, TierHard}, {12, TierHard},
	}
	for _, tt := range tests {
		if got := TierForLevel(tt.level); got != tt.want {
			t.Errorf("TierForLevel(%d) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	for in, want := range map[int]int{-5: 0, 0: 0, 55: 55, 100: 100, 140: 100} {
		if got := ClampScore(in); got != want {
			t.Errorf("ClampScore(%d) = %d, want %d", in, got, want)
		}
	}
}

package adaptive

import (
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

func TestRecommend_Tiers(t *testing.T) {
	tests := []struct {
		name    string
		scores  []float64
		minutes float64
		want    domain.Tier
	}{
		{"no scores", nil, 0, domain.TierEasy},
		{"fast and high", []float64{90, 95}, 20, domain.TierHard},
		{"high but slow", []float64{90, 95}, 45, domain.TierMedium},
		{"exactly hard threshold", []float64{85}, 29.9, domain.TierHard},
		{"slow at the time limit", []float64{85}, 30, domain.TierMedium},
		{"exactly medium threshold", []float64{70}, 60, domain.TierMedium},
		{"just below medium", []float64{69.9}, 10, domain.TierEasy},
		{"low", []float64{40, 55, 30}, 15, domain.TierEasy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(tt.scores, tt.minutes, nil, 1)
			if rec.Tier != tt.want {
				t.Errorf("Recommend() tier = %s, want %s", rec.Tier, tt.want)
			}
			if rec.Rationale == "" || len(rec.Adjustments) == 0 {
				t.Errorf("Recommend() = %+v, want rationale and adjustments", rec)
			}
		})
	}
}

func TestRecommend_ProjectAdjustment(t *testing.T) {
	early := Recommend([]float64{95}, 10, nil, 4)
	if slices.Contains(early.Adjustments, projectAdjustment) {
		t.Error("project adjustment offered before week 5")
	}

	late := Recommend([]float64{95}, 10, nil, 5)
	if !slices.Contains(late.Adjustments, projectAdjustment) {
		t.Errorf("Adjustments = %v, want project adjustment at week 5", late.Adjustments)
	}

	medium := Recommend([]float64{75}, 10, nil, 6)
	if slices.Contains(medium.Adjustments, projectAdjustment) {
		t.Error("project adjustment is only for the hard tier")
	}
}

func TestRecommend_DoesNotShareAdjustments(t *testing.T) {
	first := Recommend([]float64{95}, 10, nil, 6)
	first.Adjustments[0] = "changed"

	second := Recommend([]float64{95}, 10, nil, 6)
	if second.Adjustments[0] == "changed" {
		t.Error("recommendations share the adjustment slice")
	}
}

func TestRecommend_FocusAreas(t *testing.T) {
	errs := []string{
		"./main.go:4:2: undefined: fmtx",
		"./main.go:6:2: x declared and not used",
		"./main.go:9:1: syntax error: unexpected }",
		"panic: boom",
		"something unrecognized",
	}

	rec := Recommend([]float64{50}, 10, errs, 1)
	want := []string{CategoryScope, CategoryRuntime, CategorySyntax}
	if !reflect.DeepEqual(rec.FocusAreas, want) {
		t.Errorf("FocusAreas = %v, want %v", rec.FocusAreas, want)
	}
}

func TestApplyPreference(t *testing.T) {
	rec := Recommend([]float64{50}, 10, []string{"syntax error"}, 1)

	tests := []struct {
		preference string
		want       domain.Tier
		overridden bool
	}{
		{"auto", domain.TierEasy, false},
		{"", domain.TierEasy, false},
		{"extreme", domain.TierEasy, false},
		{"easy", domain.TierEasy, false},
		{"hard", domain.TierHard, true},
		{"medium", domain.TierMedium, true},
	}

	for _, tt := range tests {
		got := ApplyPreference(rec, tt.preference)
		if got.Tier != tt.want {
			t.Errorf("ApplyPreference(%q) tier = %s, want %s", tt.preference, got.Tier, tt.want)
		}
		if overridden := got.Rationale != rec.Rationale; overridden != tt.overridden {
			t.Errorf("ApplyPreference(%q) rationale = %q", tt.preference, got.Rationale)
		}
		if !reflect.DeepEqual(got.FocusAreas, rec.FocusAreas) {
			t.Errorf("ApplyPreference(%q) FocusAreas = %v, want %v", tt.preference, got.FocusAreas, rec.FocusAreas)
		}
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
	if got := Mean([]float64{80, 90, 100}); got != 90 {
		t.Errorf("Mean() = %v, want 90", got)
	}
}

func TestSignalsFrom(t *testing.T) {
	at := func(day int) *time.Time {
		ts := time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
		return &ts
	}
	score := func(v int) *int { return &v }

	p := &domain.LearnerProfile{
		UserID: "u1",
		Weeks: []domain.WeekProgress{
			{Number: 1, Unlocked: true, Completed: true, Exercises: []domain.ExerciseRecord{
				{ID: "e1", Completed: true, Score: score(60), TimeInvestedMinutes: 10, CompletedAt: at(1)},
				{ID: "e2", Completed: true, Score: score(80), TimeInvestedMinutes: 30, CompletedAt: at(3)},
			}},
			{Number: 2, Unlocked: true, Exercises: []domain.ExerciseRecord{
				{ID: "e3", Completed: true, Score: score(100), TimeInvestedMinutes: 20, CompletedAt: at(2)},
				{ID: "e4", TimeInvestedMinutes: 40},
			}},
			{Number: 3},
		},
	}

	t.Run("from profile", func(t *testing.T) {
		s := SignalsFrom(p, nil, 2)
		if s.CurrentWeek != 2 {
			t.Errorf("CurrentWeek = %d, want 2", s.CurrentWeek)
		}
		if s.AvgTimeMinutes != 20 {
			t.Errorf("AvgTimeMinutes = %v, want 20", s.AvgTimeMinutes)
		}
		if want := []float64{80, 100}; !reflect.DeepEqual(s.RecentScores, want) {
			t.Errorf("RecentScores = %v, want %v (latest first)", s.RecentScores, want)
		}
	})

	t.Run("from evaluations", func(t *testing.T) {
		records := []domain.EvaluationRecord{
			{Status: domain.EvaluationCompleted, Score: 90, Errors: []string{"syntax error"}},
			{Status: domain.EvaluationTimeout, Score: 0},
			{Status: domain.EvaluationCompleted, Score: 70},
			{Status: domain.EvaluationCompleted, Score: 10, Errors: []string{"panic: x"}},
		}
		s := SignalsFrom(p, records, 2)
		if want := []float64{90, 70}; !reflect.DeepEqual(s.RecentScores, want) {
			t.Errorf("RecentScores = %v, want %v", s.RecentScores, want)
		}
		if want := []string{"syntax error", "panic: x"}; !reflect.DeepEqual(s.CommonErrors, want) {
			t.Errorf("CommonErrors = %v, want %v", s.CommonErrors, want)
		}
	})
}

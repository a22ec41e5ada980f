// Package adaptive recommends a difficulty tier from recent performance and
// picks the next exercise for a learner.
package adaptive

import (
	"sort"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Tier thresholds
const (
	hardMinScore   = 85.0
	hardMaxMinutes = 30.0
	mediumMinScore = 70.0

	// projectWeek is the first week where hard learners get project-scale work
	projectWeek = 5

	maxFocusAreas = 3
)

type tierAdvice struct {
	rationale   string
	adjustments []string
}

var advice = map[domain.Tier]tierAdvice{
	domain.TierHard: {
		rationale: "Consistently high scores completed quickly. Ready for harder material.",
		adjustments: []string{
			"Offer more advanced exercises",
			"Reduce hints and scaffolding",
		},
	},
	domain.TierMedium: {
		rationale: "Solid scores with room to grow. Keep a steady pace with some reinforcement.",
		adjustments: []string{
			"Add reinforcement exercises on recent topics",
			"Keep hints available on request",
		},
	},
	domain.TierEasy: {
		rationale: "Recent scores show the material needs more practice before moving on.",
		adjustments: []string{
			"Provide extra hints",
			"Give detailed explanations with each result",
			"Repeat core exercises before advancing",
		},
	},
}

const projectAdjustment = "Introduce project-scale exercises that combine earlier weeks"

// Recommend picks a tier from the mean of recentScores and the average time
// per exercise. An empty score list counts as a mean of 0. The common errors
// are categorized into focus areas.
func Recommend(recentScores []float64, avgTimeMinutes float64, commonErrors []string, currentWeek int) domain.Recommendation {
	mean := Mean(recentScores)

	tier := domain.TierEasy
	switch {
	case mean >= hardMinScore && avgTimeMinutes < hardMaxMinutes:
		tier = domain.TierHard
	case mean >= mediumMinScore:
		tier = domain.TierMedium
	}

	rec := recommendationFor(tier)
	if tier == domain.TierHard && currentWeek >= projectWeek {
		rec.Adjustments = append(rec.Adjustments, projectAdjustment)
	}
	rec.FocusAreas = FocusAreas(commonErrors, maxFocusAreas)
	return rec
}

// ApplyPreference overrides the recommended tier with a learner's explicit
// difficulty preference. "auto" and unknown values keep the recommendation.
func ApplyPreference(rec domain.Recommendation, preference string) domain.Recommendation {
	tier := domain.Tier(preference)
	if !tier.Valid() || tier == rec.Tier {
		return rec
	}
	out := recommendationFor(tier)
	out.Rationale = "Set by the learner's difficulty preference."
	out.FocusAreas = rec.FocusAreas
	return out
}

func recommendationFor(tier domain.Tier) domain.Recommendation {
	a := advice[tier]
	return domain.Recommendation{
		Tier:        tier,
		Rationale:   a.rationale,
		Adjustments: append([]string(nil), a.adjustments...),
	}
}

// Mean returns the arithmetic mean, or 0 for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Signals are the inputs to Recommend derived from stored data
type Signals struct {
	RecentScores   []float64
	AvgTimeMinutes float64
	CommonErrors   []string
	CurrentWeek    int
}

// SignalsFrom derives recommendation inputs from a learner profile and
// recent evaluation records (newest first). Completed evaluations supply the
// scores and errors; without any, the latest completed exercise scores are
// used. The current week is the highest unlocked week.
func SignalsFrom(p *domain.LearnerProfile, records []domain.EvaluationRecord, window int) Signals {
	var s Signals

	for _, r := range records {
		if r.Status != domain.EvaluationCompleted {
			continue
		}
		if window <= 0 || len(s.RecentScores) < window {
			s.RecentScores = append(s.RecentScores, float64(r.Score))
		}
		s.CommonErrors = append(s.CommonErrors, r.Errors...)
	}

	var minutes int
	var scored []domain.ExerciseRecord
	done := p.CompletedExercises()
	for _, w := range p.Weeks {
		if w.Unlocked {
			s.CurrentWeek = max(s.CurrentWeek, w.Number)
		}
	}
	for _, ex := range done {
		minutes += ex.TimeInvestedMinutes
		if ex.Score != nil && ex.CompletedAt != nil {
			scored = append(scored, ex)
		}
	}
	if len(done) > 0 {
		s.AvgTimeMinutes = float64(minutes) / float64(len(done))
	}

	if len(s.RecentScores) == 0 {
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].CompletedAt.After(*scored[j].CompletedAt)
		})
		for _, ex := range scored {
			if window > 0 && len(s.RecentScores) >= window {
				break
			}
			s.RecentScores = append(s.RecentScores, float64(*ex.Score))
		}
	}
	return s
}

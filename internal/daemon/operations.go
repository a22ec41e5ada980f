package daemon

import (
	"context"

	"github.com/felixgeelhaar/waypoint/internal/adaptive"
	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/progress"
)

const (
	// signalWindow is how many recent scores feed a recommendation
	signalWindow = 10
	// historyWindow is how many past evaluations count as seen exercises
	historyWindow = 100
)

// GenerateRequest asks for the next exercise on a topic. Zero values are
// filled from the learner: the level from their stats, the week from their
// highest unlocked week and the history from their evaluations.
type GenerateRequest struct {
	Topic   string   `json:"topic"`
	Week    int      `json:"week,omitempty"`
	Level   *int     `json:"level,omitempty"`
	History []string `json:"history,omitempty"`
}

// Profile returns a snapshot of a learner's progress
func (s *Services) Profile(ctx context.Context, userID string) (*domain.LearnerProfile, error) {
	var p *domain.LearnerProfile
	err := s.Manager.Do(ctx, userID, func(t *progress.Tracker) error {
		p = t.GetProgress()
		return nil
	})
	return p, err
}

// GenerateExercise picks the next exercise for a learner
func (s *Services) GenerateExercise(ctx context.Context, userID string, req GenerateRequest) (domain.ExerciseSpec, error) {
	if req.Topic == "" {
		return domain.ExerciseSpec{}, domain.NewValidation("topic", "is required")
	}

	p, err := s.Profile(ctx, userID)
	if err != nil {
		return domain.ExerciseSpec{}, err
	}

	level := p.Stats.Level
	if req.Level != nil {
		level = *req.Level
	}
	week := req.Week
	if week == 0 {
		week = adaptive.SignalsFrom(p, nil, 0).CurrentWeek
	}
	history := req.History
	if history == nil {
		records, err := s.History.Recent(ctx, userID, historyWindow)
		if err != nil {
			return domain.ExerciseSpec{}, err
		}
		for _, rec := range records {
			history = append(history, rec.ExerciseID)
		}
	}

	return s.Generator.GenerateExercise(req.Topic, week, level, history)
}

// RecommendDifficulty recommends a tier from a learner's stored progress and
// recent evaluations, honoring their difficulty preference.
func (s *Services) RecommendDifficulty(ctx context.Context, userID string) (domain.Recommendation, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return domain.Recommendation{}, err
	}

	records, err := s.History.Recent(ctx, userID, signalWindow)
	if err != nil {
		return domain.Recommendation{}, err
	}

	sig := adaptive.SignalsFrom(p, records, signalWindow)
	rec := adaptive.Recommend(sig.RecentScores, sig.AvgTimeMinutes, sig.CommonErrors, sig.CurrentWeek)
	return adaptive.ApplyPreference(rec, p.Settings.DifficultyPreference), nil
}

// EvaluateExercise scores code against a catalog exercise for a learner
func (s *Services) EvaluateExercise(ctx context.Context, userID, exerciseID, language, code string) (*domain.EvaluationResult, error) {
	spec, err := s.Catalog.Get(exerciseID)
	if err != nil {
		return nil, err
	}
	sub := domain.Submission{UserID: userID, ExerciseID: spec.ID, Language: language, Code: code}
	return s.Evaluator.Evaluate(ctx, sub, spec), nil
}

package progress

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Tracker is the per-learner handle for every progress operation. It owns
// the learner's in-memory profile and persists it after each mutation.
// A Tracker is not safe for concurrent use; Manager serializes access.
type Tracker struct {
	userID string
	engine *Engine
	store  *Store
	events domain.EventPublisher
	logger *slog.Logger

	profile *domain.LearnerProfile
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithEvents publishes progress events to p
func WithEvents(p domain.EventPublisher) TrackerOption {
	return func(t *Tracker) { t.events = p }
}

// WithLogger sets the tracker logger
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker loads the learner's profile and returns a handle to it
func NewTracker(ctx context.Context, userID string, engine *Engine, store *Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		userID: userID,
		engine: engine,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.profile = store.Load(ctx, userID)
	return t
}

// UserID returns the learner this tracker belongs to
func (t *Tracker) UserID() string {
	return t.userID
}

// CompleteExercise records a submission and returns the achievements it
// unlocked. NotFound and validation errors leave the profile untouched.
func (t *Tracker) CompleteExercise(ctx context.Context, week int, exerciseID string, score, minutes int) ([]domain.Achievement, error) {
	res, err := t.engine.CompleteExercise(t.profile, week, exerciseID, score, minutes)
	if err != nil {
		return nil, err
	}

	t.logger.Info("exercise recorded",
		"user_id", t.userID,
		"week", week,
		"exercise_id", exerciseID,
		"score", score,
		"first_completion", res.FirstCompletion,
		"unlocked", len(res.Unlocked))

	t.save(ctx)

	t.publish(domain.NewExerciseCompletedEvent(t.userID, res.At, week, exerciseID, score, minutes, res.FirstCompletion))
	if res.WeekCompleted {
		t.publish(domain.NewWeekCompletedEvent(t.userID, res.At, week, res.UnlockedWeek))
	}
	for _, a := range res.Unlocked {
		t.publish(domain.NewAchievementUnlockedEvent(t.userID, res.At, a))
	}

	if res.Unlocked == nil {
		return []domain.Achievement{}, nil
	}
	return res.Unlocked, nil
}

// GetProgress returns a snapshot of the whole profile
func (t *Tracker) GetProgress() *domain.LearnerProfile {
	return t.profile.Clone()
}

// GetStats returns the learner's stats
func (t *Tracker) GetStats() domain.Stats {
	return t.profile.Stats
}

// GetWeek returns a snapshot of one week
func (t *Tracker) GetWeek(number int) (domain.WeekProgress, error) {
	w := t.profile.Week(number)
	if w == nil {
		return domain.WeekProgress{}, domain.NewNotFound("week", strconv.Itoa(number))
	}
	return w.Clone(), nil
}

// GetAchievements returns a snapshot of every achievement
func (t *Tracker) GetAchievements() []domain.Achievement {
	return t.profile.Clone().Achievements
}

// ResetProgress replaces the profile with a fresh default
func (t *Tracker) ResetProgress(ctx context.Context) {
	t.profile = t.engine.NewProfile(t.userID)
	t.logger.Info("progress reset", "user_id", t.userID)
	t.save(ctx)
	t.publish(domain.ProgressResetEvent{
		BaseEvent: domain.NewBaseEvent(domain.EventProgressReset, t.userID, t.profile.RegisteredAt),
	})
}

// ExportProgress serializes the profile
func (t *Tracker) ExportProgress() ([]byte, error) {
	return t.store.Export(t.profile)
}

// ImportProgress replaces the profile with an exported document. The
// document is re-keyed to this learner. On error the current profile is
// left unchanged.
func (t *Tracker) ImportProgress(ctx context.Context, data []byte) error {
	p, err := t.store.Import(data)
	if err != nil {
		return err
	}
	if p.UserID != t.userID {
		t.logger.Info("importing progress from another learner", "user_id", t.userID, "source_user_id", p.UserID)
		p.UserID = t.userID
	}
	t.profile = p
	t.save(ctx)
	return nil
}

// UpdateSettings merges a partial settings update and persists it
func (t *Tracker) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := t.profile.Settings.Merge(patch); err != nil {
		return t.profile.Settings, err
	}
	t.save(ctx)
	return t.profile.Settings, nil
}

// save persists the profile; failures are logged by the store and the
// in-memory mutation stands.
func (t *Tracker) save(ctx context.Context) {
	_ = t.store.Save(ctx, t.profile)
}

func (t *Tracker) publish(e domain.Event) {
	if t.events != nil {
		t.events.Publish(e)
	}
}

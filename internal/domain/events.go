package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// LearnerID returns the learner whose profile produced this event
	LearnerID() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType, userID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		UserID:    userID,
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) LearnerID() string     { return e.UserID }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventPublisher accepts domain events
type EventPublisher interface {
	Publish(event Event)
}

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler // handlers for all events
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers[event.EventType()] {
		h(event)
	}
	for _, h := range d.allHandlers {
		h(event)
	}
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

const (
	EventExerciseCompleted   = "exercise.completed"
	EventWeekCompleted       = "week.completed"
	EventAchievementUnlocked = "achievement.unlocked"
	EventProgressReset       = "progress.reset"
)

// ExerciseCompletedEvent is published on every CompleteExercise call.
// FirstCompletion is false for re-submissions.
type ExerciseCompletedEvent struct {
	BaseEvent
	Week            int    `json:"week"`
	ExerciseID      string `json:"exerciseId"`
	Score           int    `json:"score"`
	TimeMinutes     int    `json:"timeMinutes"`
	FirstCompletion bool   `json:"firstCompletion"`
}

// NewExerciseCompletedEvent creates a new exercise completed event
func NewExerciseCompletedEvent(userID string, at time.Time, week int, exerciseID string, score, minutes int, first bool) ExerciseCompletedEvent {
	return ExerciseCompletedEvent{
		BaseEvent:       NewBaseEvent(EventExerciseCompleted, userID, at),
		Week:            week,
		ExerciseID:      exerciseID,
		Score:           score,
		TimeMinutes:     minutes,
		FirstCompletion: first,
	}
}

// WeekCompletedEvent is published once when a week reaches 100%
type WeekCompletedEvent struct {
	BaseEvent
	Week         int `json:"week"`
	UnlockedWeek int `json:"unlockedWeek,omitempty"` // 0 when it was the last week
}

// NewWeekCompletedEvent creates a new week completed event
func NewWeekCompletedEvent(userID string, at time.Time, week, unlocked int) WeekCompletedEvent {
	return WeekCompletedEvent{
		BaseEvent:    NewBaseEvent(EventWeekCompleted, userID, at),
		Week:         week,
		UnlockedWeek: unlocked,
	}
}

// AchievementUnlockedEvent is published once per achievement per profile
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievementId"`
	Points        int    `json:"points"`
}

// NewAchievementUnlockedEvent creates a new achievement unlocked event
func NewAchievementUnlockedEvent(userID string, at time.Time, a Achievement) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID, at),
		AchievementID: a.ID,
		Points:        a.Points,
	}
}

// ProgressResetEvent is published when a learner resets their profile
type ProgressResetEvent struct {
	BaseEvent
}

package progress

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/storage"
)

// Manager hands out Trackers for many learners. Operations on one learner
// run one at a time in call order; different learners proceed in parallel.
type Manager struct {
	engine *Engine
	store  *Store
	opts   []TrackerOption

	mu       sync.Mutex
	learners map[string]*learnerSlot
}

type learnerSlot struct {
	mu      sync.Mutex
	tracker *Tracker
}

// NewManager creates a manager; opts are applied to every Tracker it creates
func NewManager(engine *Engine, store *Store, opts ...TrackerOption) *Manager {
	return &Manager{
		engine:   engine,
		store:    store,
		opts:     opts,
		learners: make(map[string]*learnerSlot),
	}
}

// Engine returns the progression engine
func (m *Manager) Engine() *Engine {
	return m.engine
}

// CheckUserID rejects ids that cannot key a learner document
func CheckUserID(userID string) error {
	if !storage.ValidKey(userID) {
		return domain.NewValidation("userId", "must be 1-128 characters of letters, digits, '-', '_', '.', '@'")
	}
	return nil
}

// Do runs fn with exclusive access to the learner's Tracker, loading the
// profile on first use.
func (m *Manager) Do(ctx context.Context, userID string, fn func(t *Tracker) error) error {
	if err := CheckUserID(userID); err != nil {
		return err
	}

	slot := m.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.tracker == nil {
		slot.tracker = NewTracker(ctx, userID, m.engine, m.store, m.opts...)
	}
	return fn(slot.tracker)
}

func (m *Manager) slot(userID string) *learnerSlot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.learners[userID]
	if !ok {
		s = &learnerSlot{}
		m.learners[userID] = s
	}
	return s
}

// Evict drops the cached tracker so the next call reloads from storage
func (m *Manager) Evict(userID string) {
	slot := m.slot(userID)
	slot.mu.Lock()
	slot.tracker = nil
	slot.mu.Unlock()
}

// Active returns the number of learners with a cached tracker
func (m *Manager) Active() int {
	m.mu.Lock()
	slots := make([]*learnerSlot, 0, len(m.learners))
	for _, s := range m.learners {
		slots = append(slots, s)
	}
	m.mu.Unlock()

	n := 0
	for _, s := range slots {
		s.mu.Lock()
		if s.tracker != nil {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

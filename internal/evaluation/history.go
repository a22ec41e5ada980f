package evaluation

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// History stores evaluation outcomes per learner. sqlite.EvaluationStore
// implements it for the daemon.
type History interface {
	Record(ctx context.Context, rec domain.EvaluationRecord) error
	Recent(ctx context.Context, userID string, limit int) ([]domain.EvaluationRecord, error)
}

// maxMemoryRecords bounds the records kept per learner by MemoryHistory
const maxMemoryRecords = 100

// MemoryHistory keeps the latest evaluation records per learner in memory
type MemoryHistory struct {
	mu      sync.Mutex
	records map[string][]domain.EvaluationRecord
}

// NewMemoryHistory creates an empty in-memory history
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{records: make(map[string][]domain.EvaluationRecord)}
}

// Record implements History
func (h *MemoryHistory) Record(_ context.Context, rec domain.EvaluationRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	recs := append(h.records[rec.UserID], rec)
	if len(recs) > maxMemoryRecords {
		recs = recs[len(recs)-maxMemoryRecords:]
	}
	h.records[rec.UserID] = recs
	return nil
}

// Recent implements History, newest first
func (h *MemoryHistory) Recent(_ context.Context, userID string, limit int) ([]domain.EvaluationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	recs := h.records[userID]
	n := min(limit, len(recs))
	out := make([]domain.EvaluationRecord, 0, max(n, 0))
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

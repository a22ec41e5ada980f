package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/storage"
)

// requiredFields must be present at the top level of an imported document
var requiredFields = []string{"userId", "weeks", "achievements", "stats"}

// Store is the I/O boundary for learner profiles. It serializes profiles to
// JSON documents and keeps every failure away from the engine.
type Store struct {
	backend storage.Storage
	engine  *Engine
	logger  *slog.Logger
}

// NewStore creates a profile store over a storage backend
func NewStore(backend storage.Storage, engine *Engine, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, engine: engine, logger: logger}
}

// Load returns the stored profile for userID. It never fails: a missing,
// unreadable or unparseable document yields a fresh default profile.
func (s *Store) Load(ctx context.Context, userID string) *domain.LearnerProfile {
	data, err := s.backend.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("load progress failed, starting fresh",
				"user_id", userID,
				"error", &domain.PersistenceError{Op: "load", UserID: userID, Err: err})
		}
		return s.engine.NewProfile(userID)
	}

	var p domain.LearnerProfile
	if err := json.Unmarshal(data, &p); err != nil || len(p.Weeks) == 0 {
		s.logger.Warn("stored progress unreadable, starting fresh", "user_id", userID, "error", err)
		return s.engine.NewProfile(userID)
	}
	if p.UserID != userID {
		s.logger.Warn("stored progress belongs to another learner", "user_id", userID, "stored_user_id", p.UserID)
		p.UserID = userID
	}

	s.engine.Achievements().Reconcile(&p)
	if err := domain.CheckInvariants(&p); err != nil {
		s.logger.Warn("stored progress violates invariants", "user_id", userID, "error", err)
	}
	return &p
}

// Save persists a profile. Failures are logged and returned as a
// PersistenceError; the in-memory profile is never rolled back.
func (s *Store) Save(ctx context.Context, p *domain.LearnerProfile) error {
	data, err := json.Marshal(p)
	if err == nil {
		err = s.backend.Save(ctx, p.UserID, data)
	}
	if err != nil {
		perr := &domain.PersistenceError{Op: "save", UserID: p.UserID, Err: err}
		s.logger.Error("save progress failed", "user_id", p.UserID, "error", perr)
		return perr
	}
	return nil
}

// Delete removes a stored profile. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.backend.Delete(ctx, userID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return &domain.PersistenceError{Op: "delete", UserID: userID, Err: err}
	}
	return nil
}

// Export serializes a profile as indented JSON
func (s *Store) Export(p *domain.LearnerProfile) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Import parses an exported document. It checks the top-level shape, then
// that the weeks and exercise ids are the engine's curriculum, then the
// profile invariants; any failure is a ValidationError.
func (s *Store) Import(data []byte) (*domain.LearnerProfile, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, domain.NewValidation("", "document is not a JSON object")
	}
	for _, field := range requiredFields {
		raw, ok := shape[field]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, domain.NewValidation(field, "is required")
		}
	}

	var p domain.LearnerProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, domain.NewValidation("", "malformed profile: "+err.Error())
	}
	if err := s.matchCurriculum(&p); err != nil {
		return nil, err
	}
	s.engine.Achievements().Reconcile(&p)
	if err := domain.CheckInvariants(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// matchCurriculum requires p to carry exactly the curriculum's weeks and
// exercise ids, in curriculum order
func (s *Store) matchCurriculum(p *domain.LearnerProfile) error {
	weeks := s.engine.Curriculum().Weeks()
	if len(p.Weeks) != len(weeks) {
		return domain.NewValidation("weeks",
			fmt.Sprintf("has %d weeks, curriculum has %d", len(p.Weeks), len(weeks)))
	}

	for i, w := range weeks {
		got := p.Weeks[i]
		if got.Number != w.Number {
			return domain.NewValidation(fmt.Sprintf("weeks[%d].number", i),
				fmt.Sprintf("is %d, curriculum has %d", got.Number, w.Number))
		}
		if len(got.Exercises) != len(w.Exercises) {
			return domain.NewValidation(fmt.Sprintf("weeks[%d].exercises", i),
				fmt.Sprintf("has %d exercises, curriculum week %d has %d", len(got.Exercises), w.Number, len(w.Exercises)))
		}
		for j, ex := range w.Exercises {
			if id := got.Exercises[j].ID; id != ex.ID {
				return domain.NewValidation(fmt.Sprintf("weeks[%d].exercises[%d].id", i, j),
					fmt.Sprintf("is %q, curriculum has %q", id, ex.ID))
			}
		}
	}
	return nil
}

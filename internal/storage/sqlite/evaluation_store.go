package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// EvaluationStore records evaluation results in SQLite.
type EvaluationStore struct {
	db *DB
}

// NewEvaluationStore creates a new SQLite-backed evaluation store.
func NewEvaluationStore(db *DB) *EvaluationStore {
	return &EvaluationStore{db: db}
}

// Record inserts an evaluation record.
func (s *EvaluationStore) Record(ctx context.Context, rec domain.EvaluationRecord) error {
	errs := rec.Errors
	if errs == nil {
		errs = []string{}
	}
	errJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, user_id, exercise_id, strategy, status, score,
			passed, total, duration_ms, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.ExerciseID, rec.Strategy, string(rec.Status), rec.Score,
		rec.Passed, rec.Total, rec.DurationMS, string(errJSON), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// Recent returns up to limit records for a user, newest first.
func (s *EvaluationStore) Recent(ctx context.Context, userID string, limit int) ([]domain.EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, exercise_id, strategy, status, score, passed, total,
			duration_ms, errors, created_at
		FROM evaluations WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []domain.EvaluationRecord
	for rows.Next() {
		var rec domain.EvaluationRecord
		var status, errJSON string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ExerciseID, &rec.Strategy, &status,
			&rec.Score, &rec.Passed, &rec.Total, &rec.DurationMS, &errJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		rec.Status = domain.EvaluationStatus(status)
		if err := json.Unmarshal([]byte(errJSON), &rec.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal errors: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

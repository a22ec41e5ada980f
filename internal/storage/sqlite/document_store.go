package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/storage"
)

// DocumentStore implements storage.Storage backed by SQLite. Every save bumps
// the row version.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new SQLite-backed document store.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save persists a document (insert or update).
func (s *DocumentStore) Save(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learner_documents (user_id, document, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			document=excluded.document,
			version=learner_documents.version + 1,
			updated_at=excluded.updated_at`,
		key, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Load retrieves a document by key.
func (s *DocumentStore) Load(ctx context.Context, key string) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM learner_documents WHERE user_id = ?`, key,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	return []byte(doc), nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM learner_documents WHERE user_id = ?`, key)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Version returns how many times a document has been saved.
func (s *DocumentStore) Version(ctx context.Context, key string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM learner_documents WHERE user_id = ?`, key,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	return version, err
}

var _ storage.Storage = (*DocumentStore)(nil)

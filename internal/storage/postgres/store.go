// Package postgres stores learner documents in PostgreSQL as JSONB rows.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/waypoint/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS learner_documents (
	user_id    TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store implements storage.Storage on a pgx connection pool
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and ensures the documents table exists
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the documents table if needed
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create learner_documents: %w", err)
	}
	return nil
}

// Save upserts a document and bumps its version
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO learner_documents (user_id, document)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (user_id) DO UPDATE SET
			document = EXCLUDED.document,
			version = learner_documents.version + 1,
			updated_at = now()`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Load returns the stored document. JSONB normalizes key order and
// whitespace, so the bytes may differ from what was saved while decoding to
// the same value.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var doc string
	err := s.pool.QueryRow(ctx,
		`SELECT document::text FROM learner_documents WHERE user_id = $1`, key,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	return []byte(doc), nil
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM learner_documents WHERE user_id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Version returns how many times a document has been saved
func (s *Store) Version(ctx context.Context, key string) (int, error) {
	var version int
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM learner_documents WHERE user_id = $1`, key,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	return version, err
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

var _ storage.Storage = (*Store)(nil)

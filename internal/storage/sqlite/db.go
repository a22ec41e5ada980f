// Package sqlite keeps learner documents and evaluation history in a single
// SQLite file, with schema changes applied from embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/waypoint/internal/storage/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// DB is a SQLite handle limited to one writer
type DB struct {
	*sql.DB
}

// Open connects to the database at path. File databases run in WAL mode with
// a busy timeout so the CLI and daemon can share them.
func Open(path string) (*DB, error) {
	dsn := "file::memory:?_foreign_keys=ON"
	if path != MemoryPath {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{DB: db}, nil
}

type migration struct {
	version int
	name    string
}

// loadMigrations lists the numbered .sql files in fsys in version order
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		v, err := parseVersion(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, e.Name(), v)
		}
		seen[v] = e.Name()
		out = append(out, migration{version: v, name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// parseVersion reads the numeric prefix of a name like "002_evaluations.sql"
func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: missing version prefix", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("migration %s: invalid version %q", name, prefix)
	}
	return v, nil
}

func (db *DB) ensureVersionTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Version returns the highest applied migration, 0 for a fresh database
func (db *DB) Version(ctx context.Context) (int, error) {
	if err := db.ensureVersionTable(ctx); err != nil {
		return 0, err
	}
	var v int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Pending names the migrations Migrate would apply
func (db *DB) Pending(ctx context.Context) ([]string, error) {
	current, err := db.Version(ctx)
	if err != nil {
		return nil, err
	}
	all, err := loadMigrations(migrations.FS)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range all {
		if m.version > current {
			names = append(names, m.name)
		}
	}
	return names, nil
}

// Migrate applies every pending migration, each in its own transaction
func (db *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	current, err := db.Version(ctx)
	if err != nil {
		return err
	}
	all, err := loadMigrations(migrations.FS)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		if m.version <= current {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return err
		}
		applied++
		logger.Info("applied migration", "name", m.name, "version", m.version)
	}
	if applied > 0 {
		logger.Info("sqlite schema up to date", "applied", applied)
	}
	return nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	body, err := fs.ReadFile(migrations.FS, m.name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.name, err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens the journal database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// =============================================================================
// Journal Operations
// =============================================================================

// RecordStage appends one journal entry, filling ID and CreatedAt if unset.
func (s *SQLiteStore) RecordStage(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO saga_journal (id, saga_id, project_id, stage, status, error, created_at)
		VALUES (:id, :saga_id, :project_id, :stage, :status, :error, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		return NewStoreError("RecordStage", entry.SagaID, "failed to insert entry", err)
	}
	return nil
}

// ListBySaga returns all entries of one saga execution in insertion order.
func (s *SQLiteStore) ListBySaga(ctx context.Context, sagaID string) ([]Entry, error) {
	const query = `
		SELECT id, saga_id, project_id, stage, status, error, created_at
		FROM saga_journal
		WHERE saga_id = ?
		ORDER BY created_at ASC, rowid ASC`

	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, query, sagaID); err != nil {
		return nil, NewStoreError("ListBySaga", sagaID, "failed to query entries", err)
	}
	return entries, nil
}

// ListRecent returns the newest entries, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, saga_id, project_id, stage, status, error, created_at
		FROM saga_journal
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, NewStoreError("ListRecent", "", "failed to query entries", err)
	}
	return entries, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Package store persists the saga journal: one row per stage transition of
// every deployment saga execution, giving operators an audit trail of
// deployments and compensations.
package store

import (
	"context"
	"time"
)

// =============================================================================
// Journal Entry
// =============================================================================

// StageStatus is the outcome of one saga stage.
type StageStatus string

const (
	StageStarted     StageStatus = "started"
	StageCompleted   StageStatus = "completed"
	StageFailed      StageStatus = "failed"
	StageCompensated StageStatus = "compensated"
)

// Entry is one journal row.
type Entry struct {
	ID        string      `db:"id"`
	SagaID    string      `db:"saga_id"`
	ProjectID string      `db:"project_id"`
	Stage     string      `db:"stage"`
	Status    StageStatus `db:"status"`
	Error     string      `db:"error"`
	CreatedAt time.Time   `db:"created_at"`
}

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the journal persistence interface.
type Store interface {
	// RecordStage appends one journal entry.
	RecordStage(ctx context.Context, entry *Entry) error

	// ListBySaga returns all entries of one saga execution in insertion order.
	ListBySaga(ctx context.Context, sagaID string) ([]Entry, error)

	// ListRecent returns the newest entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]Entry, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when an entry is not found.
	ErrNotFound = errors.New("entry not found")

	// ErrConnectionFailed is returned when the database connection fails.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")
)

// StoreError wraps errors with operation context.
type StoreError struct {
	Op      string // Operation that failed (e.g., "RecordStage")
	SagaID  string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.SagaID != "" {
		return fmt.Sprintf("%s saga %s: %s", e.Op, e.SagaID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, sagaID, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		SagaID:  sagaID,
		Message: message,
		Err:     err,
	}
}

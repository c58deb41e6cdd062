package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordStage_FillsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &Entry{SagaID: "saga-1", Stage: "provisioning", Status: StageStarted}
	require.NoError(t, s.RecordStage(ctx, entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestListBySaga_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stages := []string{"validating", "provisioning", "wiring"}
	for _, stage := range stages {
		require.NoError(t, s.RecordStage(ctx, &Entry{
			SagaID: "saga-1",
			Stage:  stage,
			Status: StageCompleted,
		}))
	}
	require.NoError(t, s.RecordStage(ctx, &Entry{
		SagaID: "saga-2",
		Stage:  "validating",
		Status: StageFailed,
		Error:  "deploy code rejected",
	}))

	entries, err := s.ListBySaga(ctx, "saga-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, stage := range stages {
		assert.Equal(t, stage, entries[i].Stage)
	}
}

func TestListBySaga_Empty(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.ListBySaga(context.Background(), "unknown")

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListRecent_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordStage(ctx, &Entry{
			SagaID:    "saga-1",
			ProjectID: "prj-1",
			Stage:     "wiring",
			Status:    StageCompleted,
		}))
	}

	entries, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestListRecent_DefaultLimit(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.ListRecent(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMigrations_Idempotent(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "journal.db")

	s1, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening the same database must not fail on already-applied migrations.
	s2, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	assert.NoError(t, s2.Ping(context.Background()))
	require.NoError(t, s2.Close())
}

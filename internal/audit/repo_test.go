package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	runs := `
CREATE TABLE import_runs (
  id TEXT PRIMARY KEY,
  content_hash TEXT NOT NULL,
  delimiter TEXT NOT NULL,
  total_rows INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  error_summary TEXT,
  started_by TEXT,
  finished_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	rows := `
CREATE TABLE import_rows (
  id TEXT PRIMARY KEY,
  run_id TEXT NOT NULL,
  row_number INTEGER NOT NULL,
  row_raw TEXT NOT NULL,
  row_hash TEXT NOT NULL,
  normalization_ok INTEGER NOT NULL DEFAULT 0,
  normalization_error TEXT,
  persistence_ok INTEGER NOT NULL DEFAULT 0,
  persistence_error TEXT,
  created_at DATETIME,
  UNIQUE (run_id, row_number)
);`
	require.NoError(t, db.Exec(runs).Error)
	require.NoError(t, db.Exec(rows).Error)
	return db
}

func newRunningRun(t *testing.T, repo Repository) *models.ImportRun {
	t.Helper()
	run := &models.ImportRun{
		ContentHash: "abc123",
		Delimiter:   ";",
		TotalRows:   3,
		Status:      enums.ImportRunStatusRunning,
	}
	require.NoError(t, repo.CreateRun(context.Background(), run))
	return run
}

func TestCreateRunAssignsID(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	assert.NotEqual(t, uuid.Nil, run.ID)

	found, err := repo.FindRunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportRunStatusRunning, found.Status)
	assert.Equal(t, "abc123", found.ContentHash)
}

func TestRunStatusRereadsCurrentValue(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	ctx := context.Background()

	status, err := repo.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportRunStatusRunning, status)

	run.Status = enums.ImportRunStatusDone
	applied, err := repo.FinishRun(ctx, run)
	require.NoError(t, err)
	assert.True(t, applied)

	status, err = repo.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportRunStatusDone, status)
}

func TestFinishRunPreservesCancelledState(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	ctx := context.Background()

	cancelled, err := repo.CancelRun(ctx, run.ID, "cancelled by operator")
	require.NoError(t, err)
	require.True(t, cancelled)

	now := time.Now()
	run.Status = enums.ImportRunStatusDone
	run.FinishedAt = &now
	applied, err := repo.FinishRun(ctx, run)
	require.NoError(t, err)
	assert.False(t, applied)

	found, err := repo.FindRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportRunStatusError, found.Status)
	require.NotNil(t, found.ErrorSummary)
	assert.Equal(t, "cancelled by operator", *found.ErrorSummary)
}

func TestRunStatusUnknownRun(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	_, err := repo.RunStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCancelRunOnlyFlipsRunningRuns(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	ctx := context.Background()

	cancelled, err := repo.CancelRun(ctx, run.ID, "cancelled by operator")
	require.NoError(t, err)
	assert.True(t, cancelled)

	found, err := repo.FindRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportRunStatusError, found.Status)
	require.NotNil(t, found.ErrorSummary)
	assert.Equal(t, "cancelled by operator", *found.ErrorSummary)

	// already terminal: second cancel is a no-op
	cancelled, err = repo.CancelRun(ctx, run.ID, "again")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestRowStatsByRun(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	ctx := context.Background()

	persistErr := "duplicate key"
	normErr := "tag normalizes to 9 digits"
	rows := []*models.ImportRow{
		{RunID: run.ID, RowNumber: 1, RowRaw: "a", RowHash: "h1", NormalizationOK: true, PersistenceOK: true},
		{RunID: run.ID, RowNumber: 2, RowRaw: "b", RowHash: "h2", NormalizationOK: true, PersistenceError: &persistErr},
		{RunID: run.ID, RowNumber: 3, RowRaw: "c", RowHash: "h3", NormalizationError: &normErr},
	}
	for _, row := range rows {
		require.NoError(t, repo.CreateRow(ctx, row))
	}

	stats, err := repo.RowStatsByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Lines)
	assert.Equal(t, int64(1), stats.PersistenceOK)
	assert.Equal(t, int64(1), stats.FailedPersistence)
	assert.Equal(t, int64(1), stats.FailedNormalization)
}

func TestMarkRowPersistence(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	ctx := context.Background()

	row := &models.ImportRow{RunID: run.ID, RowNumber: 1, RowRaw: "a", RowHash: "h1", NormalizationOK: true}
	require.NoError(t, repo.CreateRow(ctx, row))

	failure := "duplicate key"
	require.NoError(t, repo.MarkRowPersistence(ctx, row.ID, false, &failure))

	rows, err := repo.ListRowsByRun(ctx, run.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].PersistenceOK)
	require.NotNil(t, rows[0].PersistenceError)
	assert.Equal(t, "duplicate key", *rows[0].PersistenceError)
}

func TestListRowsByRunFailedOnly(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	run := newRunningRun(t, repo)
	ctx := context.Background()

	normErr := "bad tag"
	require.NoError(t, repo.CreateRow(ctx, &models.ImportRow{RunID: run.ID, RowNumber: 1, RowRaw: "ok", RowHash: "h1", NormalizationOK: true, PersistenceOK: true}))
	require.NoError(t, repo.CreateRow(ctx, &models.ImportRow{RunID: run.ID, RowNumber: 2, RowRaw: "bad", RowHash: "h2", NormalizationError: &normErr}))

	failed, err := repo.ListRowsByRun(ctx, run.ID, true)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].RowNumber)

	all, err := repo.ListRowsByRun(ctx, run.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// RowStats aggregates per-row outcomes for one import run.
type RowStats struct {
	Lines               int64
	PersistenceOK       int64
	FailedPersistence   int64
	FailedNormalization int64
}

// Repository is the append-only audit store for import runs and their raw
// rows. Rows are immutable after their terminal write; runs are updated in
// place only by the orchestrator and the cancel endpoint.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRun(ctx context.Context, run *models.ImportRun) error
	FindRunByID(ctx context.Context, id uuid.UUID) (*models.ImportRun, error)
	RunStatus(ctx context.Context, id uuid.UUID) (enums.ImportRunStatus, error)
	FinishRun(ctx context.Context, run *models.ImportRun) (bool, error)
	CancelRun(ctx context.Context, id uuid.UUID, summary string) (bool, error)

	CreateRow(ctx context.Context, row *models.ImportRow) error
	MarkRowPersistence(ctx context.Context, rowID uuid.UUID, ok bool, failure *string) error
	RowStatsByRun(ctx context.Context, runID uuid.UUID) (RowStats, error)
	ListRowsByRun(ctx context.Context, runID uuid.UUID, failedOnly bool) ([]models.ImportRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRun(ctx context.Context, run *models.ImportRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) FindRunByID(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	var run models.ImportRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// RunStatus re-reads only the status column. The orchestrator calls this at
// every chunk boundary, so cancellations are never observed through a stale
// in-memory copy of the run.
func (r *repository) RunStatus(ctx context.Context, id uuid.UUID) (enums.ImportRunStatus, error) {
	var run models.ImportRun
	err := r.db.WithContext(ctx).
		Select("status").
		Where("id = ?", id).
		Take(&run).Error
	if err != nil {
		return "", err
	}
	return run.Status, nil
}

// FinishRun writes a run's terminal state, guarded on the run still being
// RUNNING so a cancel that won the race is never overwritten. Returns false
// when the run already left its running state.
func (r *repository) FinishRun(ctx context.Context, run *models.ImportRun) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("id = ? AND status = ?", run.ID, enums.ImportRunStatusRunning).
		Updates(map[string]any{
			"status":        run.Status,
			"error_summary": run.ErrorSummary,
			"finished_at":   run.FinishedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CancelRun flips a RUNNING run to ERROR. Returns false when the run was
// already terminal, so callers can distinguish a late cancel from a
// successful one. Committed rows are never touched.
func (r *repository) CancelRun(ctx context.Context, id uuid.UUID, summary string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("id = ? AND status = ?", id, enums.ImportRunStatusRunning).
		Updates(map[string]any{
			"status":        enums.ImportRunStatusError,
			"error_summary": summary,
			"finished_at":   time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateRow(ctx context.Context, row *models.ImportRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// MarkRowPersistence writes a row's persistence outcome. The pair is
// written exactly once per row, after the row's sub-transaction settles.
func (r *repository) MarkRowPersistence(ctx context.Context, rowID uuid.UUID, ok bool, failure *string) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportRow{}).
		Where("id = ?", rowID).
		Updates(map[string]any{
			"persistence_ok":    ok,
			"persistence_error": failure,
		}).Error
}

func (r *repository) RowStatsByRun(ctx context.Context, runID uuid.UUID) (RowStats, error) {
	var stats RowStats
	err := r.db.WithContext(ctx).
		Model(&models.ImportRow{}).
		Select(
			"COUNT(*) AS lines, "+
				"COALESCE(SUM(CASE WHEN persistence_ok THEN 1 ELSE 0 END), 0) AS persistence_ok, "+
				"COALESCE(SUM(CASE WHEN normalization_ok AND NOT persistence_ok THEN 1 ELSE 0 END), 0) AS failed_persistence, "+
				"COALESCE(SUM(CASE WHEN NOT normalization_ok THEN 1 ELSE 0 END), 0) AS failed_normalization").
		Where("run_id = ?", runID).
		Scan(&stats).Error
	return stats, err
}

func (r *repository) ListRowsByRun(ctx context.Context, runID uuid.UUID, failedOnly bool) ([]models.ImportRow, error) {
	q := r.db.WithContext(ctx).Where("run_id = ?", runID)
	if failedOnly {
		q = q.Where("NOT normalization_ok OR NOT persistence_ok")
	}

	var rows []models.ImportRow
	if err := q.Order("row_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

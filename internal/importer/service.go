package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/internal/audit"
	"github.com/dfcarvalho/patrimonio-backend/internal/catalog"
	"github.com/dfcarvalho/patrimonio-backend/internal/geafin"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
	"github.com/dfcarvalho/patrimonio-backend/pkg/metrics"
)

const defaultChunkSize = 25

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RunInput is one import request: the raw payload plus the optional unit
// used when a row carries no resolvable unit of its own.
type RunInput struct {
	Payload      []byte
	FallbackUnit enums.Unit
	StartedBy    *uuid.UUID
}

// Failure describes one row that did not reach the operational model.
type Failure struct {
	RowNumber int    `json:"row_number"`
	Tag       string `json:"tag,omitempty"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

// Summary is the terminal report of one import run.
type Summary struct {
	RunID     uuid.UUID `json:"run_id"`
	TotalRows int       `json:"total_rows"`
	Processed int       `json:"processed"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Cancelled bool      `json:"cancelled"`
	Failures  []Failure `json:"failures"`
}

// Progress is the poll-endpoint view of a run, derived entirely from the
// audit store so it reflects committed chunks only.
type Progress struct {
	Status              enums.ImportRunStatus `json:"status"`
	TotalRows           int                   `json:"total_rows"`
	LinesInserted       int64                 `json:"lines_inserted"`
	PersistenceOK       int64                 `json:"persistence_ok"`
	FailedPersistence   int64                 `json:"failed_persistence"`
	FailedNormalization int64                 `json:"failed_normalization"`
	Percent             float64               `json:"percent"`
}

// Service drives GEAFIN imports end to end.
type Service interface {
	Run(ctx context.Context, input RunInput) (*Summary, error)
	Start(ctx context.Context, input RunInput) (uuid.UUID, error)
	Progress(ctx context.Context, runID uuid.UUID) (*Progress, error)
	Cancel(ctx context.Context, runID uuid.UUID) error
}

type service struct {
	audit     audit.Repository
	catalog   catalog.Repository
	tx        txRunner
	logg      *logger.Logger
	metrics   *metrics.ImportMetrics
	caps      db.Capabilities
	chunkSize int
}

// ServiceParams wires the import orchestrator's dependencies. Capabilities
// come from the startup schema probe, never from per-request checks.
type ServiceParams struct {
	Audit        audit.Repository
	Catalog      catalog.Repository
	Tx           txRunner
	Logger       *logger.Logger
	Metrics      *metrics.ImportMetrics
	Capabilities db.Capabilities
	ChunkSize    int
}

// NewService validates dependencies and builds the orchestrator.
func NewService(p ServiceParams) (Service, error) {
	if p.Audit == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = defaultChunkSize
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewImportMetrics(nil)
	}
	return &service{
		audit:     p.Audit,
		catalog:   p.Catalog,
		tx:        p.Tx,
		logg:      p.Logger,
		metrics:   p.Metrics,
		caps:      p.Capabilities,
		chunkSize: p.ChunkSize,
	}, nil
}

// Run executes one import. The run record is committed before any row work
// so pollers see it immediately; rows are processed in chunk transactions
// with one savepoint per row, and cancellation is re-checked from the store
// at every chunk boundary.
func (s *service) Run(ctx context.Context, input RunInput) (*Summary, error) {
	table, run, err := s.openRun(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.processRun(ctx, table, run, input.FallbackUnit)
}

// Start opens a run and returns its id immediately; row processing continues
// in the background and is observable through Progress.
func (s *service) Start(ctx context.Context, input RunInput) (uuid.UUID, error) {
	table, run, err := s.openRun(ctx, input)
	if err != nil {
		return uuid.Nil, err
	}

	go func() {
		bg := context.WithoutCancel(ctx)
		if _, err := s.processRun(bg, table, run, input.FallbackUnit); err != nil {
			s.logg.Error(s.logg.WithRunID(bg, run.ID.String()), "background import run failed", err)
		}
	}()

	return run.ID, nil
}

func (s *service) openRun(ctx context.Context, input RunInput) (*geafin.Table, *models.ImportRun, error) {
	table, err := geafin.ParseTable(input.Payload)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to parse import payload")
	}

	run := &models.ImportRun{
		ContentHash: geafin.ContentHash(input.Payload),
		Delimiter:   string(table.Delimiter),
		TotalRows:   len(table.Rows),
		Status:      enums.ImportRunStatusRunning,
		StartedBy:   input.StartedBy,
	}
	if err := s.audit.CreateRun(ctx, run); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unable to open import run")
	}
	return table, run, nil
}

func (s *service) processRun(ctx context.Context, table *geafin.Table, run *models.ImportRun, fallback enums.Unit) (*Summary, error) {
	started := time.Now()

	ctx = s.logg.WithRunID(ctx, run.ID.String())
	s.logg.Info(ctx, fmt.Sprintf("import run opened: %d rows, delimiter %q", run.TotalRows, run.Delimiter))

	summary := &Summary{RunID: run.ID, TotalRows: len(table.Rows), Failures: []Failure{}}
	var rowErrs error

	for start := 0; start < len(table.Rows); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		chunk := table.Rows[start:end]

		var cancelled bool
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			status, err := s.audit.WithTx(tx).RunStatus(ctx, run.ID)
			if err != nil {
				return err
			}
			if status != enums.ImportRunStatusRunning {
				cancelled = true
				return nil
			}

			for _, raw := range chunk {
				if err := s.processRow(ctx, tx, run.ID, raw, fallback, summary, &rowErrs); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return s.finishRun(ctx, run, summary, started, err)
		}
		if cancelled {
			summary.Cancelled = true
			s.logg.Warn(ctx, "import run cancelled externally, stopping at chunk boundary")
			s.metrics.ObserveRun("cancelled", time.Since(started))
			return summary, nil
		}
	}

	return s.finishRun(ctx, run, summary, started, nil)
}

// processRow handles one raw row inside the chunk transaction. The audit
// row is written unconditionally; the operational upsert runs in its own
// savepoint so a failure rolls back this row only.
func (s *service) processRow(ctx context.Context, tx *gorm.DB, runID uuid.UUID, raw geafin.RawRow, fallback enums.Unit, summary *Summary, rowErrs *error) error {
	auditRepo := s.audit.WithTx(tx)

	rowRec := &models.ImportRow{
		RunID:     runID,
		RowNumber: raw.Number,
		RowRaw:    raw.Raw,
		RowHash:   geafin.RowHash(raw.Fields),
	}

	row, normErr := geafin.Normalize(raw, fallback)
	if normErr != nil {
		msg := normErr.Error()
		rowRec.NormalizationError = &msg
	} else {
		rowRec.NormalizationOK = true
	}

	if err := auditRepo.CreateRow(ctx, rowRec); err != nil {
		return fmt.Errorf("writing audit row %d: %w", raw.Number, err)
	}

	summary.Processed++

	if normErr != nil {
		summary.Skipped++
		summary.Failures = append(summary.Failures, Failure{
			RowNumber: raw.Number,
			Tag:       raw.Fields[geafin.FieldTag],
			Stage:     "normalization",
			Message:   normErr.Error(),
		})
		*rowErrs = multierr.Append(*rowErrs, fmt.Errorf("row %d: %w", raw.Number, normErr))
		s.metrics.AddRows("failed_normalization", 1)
		return nil
	}

	var outcome catalog.UpsertOutcome
	persistErr := tx.Transaction(func(sub *gorm.DB) error {
		repo := s.catalog.WithTx(sub)

		item, err := repo.UpsertCatalogItem(ctx, catalog.CatalogItemUpsert{
			CatalogCode: row.CatalogCode,
			Description: row.Description,
			Group:       row.Group,
		})
		if err != nil {
			return err
		}

		var standardLocationID *uuid.UUID
		if s.caps.HasStandardLocation && row.PhysicalLocation != "" {
			loc, err := repo.FindStandardLocation(ctx, row.OwnerUnit, row.PhysicalLocation)
			if err != nil {
				return err
			}
			if loc != nil {
				standardLocationID = &loc.ID
			}
		}

		_, outcome, err = repo.UpsertAsset(ctx, catalog.AssetUpsert{
			TagNumber:          row.TagNumber,
			CatalogItemID:      item.ID,
			OwnerUnit:          row.OwnerUnit,
			PhysicalLocation:   row.PhysicalLocation,
			StandardLocationID: standardLocationID,
			AcquisitionValue:   row.AcquisitionValue,
			AcquisitionDate:    row.AcquisitionDate,
		})
		return err
	})

	if persistErr != nil {
		msg := summarizeError(persistErr)
		if err := auditRepo.MarkRowPersistence(ctx, rowRec.ID, false, &msg); err != nil {
			return fmt.Errorf("recording persistence failure for row %d: %w", raw.Number, err)
		}
		summary.Failures = append(summary.Failures, Failure{
			RowNumber: raw.Number,
			Tag:       row.TagNumber,
			Stage:     "persistence",
			Message:   msg,
		})
		*rowErrs = multierr.Append(*rowErrs, fmt.Errorf("row %d: %w", raw.Number, persistErr))
		s.metrics.AddRows("failed_persistence", 1)
		return nil
	}

	if err := auditRepo.MarkRowPersistence(ctx, rowRec.ID, true, nil); err != nil {
		return fmt.Errorf("recording persistence success for row %d: %w", raw.Number, err)
	}

	if outcome.Inserted {
		summary.Inserted++
	} else {
		summary.Updated++
	}
	s.metrics.AddRows("persisted", 1)
	return nil
}

// finishRun writes the terminal run state. fatal is a structural failure
// that aborted the loop; per-row failures alone still terminate as done.
func (s *service) finishRun(ctx context.Context, run *models.ImportRun, summary *Summary, started time.Time, fatal error) (*Summary, error) {
	run.Status = enums.ImportRunStatusDone
	if fatal != nil {
		run.Status = enums.ImportRunStatusError
		msg := summarizeError(fatal)
		run.ErrorSummary = &msg
	} else if len(summary.Failures) > 0 {
		msg := fmt.Sprintf("%d of %d rows failed", len(summary.Failures), summary.TotalRows)
		run.ErrorSummary = &msg
	}
	now := time.Now()
	run.FinishedAt = &now

	applied, err := s.audit.FinishRun(ctx, run)
	if err != nil {
		s.logg.Error(ctx, "unable to write terminal import run state", err)
		if fatal == nil {
			fatal = err
		}
	} else if !applied && fatal == nil {
		// a cancel landed after the last chunk's status check; its stored
		// outcome wins
		summary.Cancelled = true
		s.logg.Warn(ctx, "import run cancelled during the final chunk, keeping the cancelled state")
		s.metrics.ObserveRun("cancelled", time.Since(started))
		return summary, nil
	}

	s.metrics.ObserveRun(string(run.Status), time.Since(started))

	if fatal != nil {
		s.logg.Error(ctx, "import run failed", fatal)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, fatal, "import run failed")
	}

	s.logg.Info(ctx, fmt.Sprintf(
		"import run finished: %d processed, %d inserted, %d updated, %d failures",
		summary.Processed, summary.Inserted, summary.Updated, len(summary.Failures)))
	return summary, nil
}

// Progress reports a run's committed state for the poll endpoint.
func (s *service) Progress(ctx context.Context, runID uuid.UUID) (*Progress, error) {
	run, err := s.audit.FindRunByID(ctx, runID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "import run not found")
	}

	stats, err := s.audit.RowStatsByRun(ctx, runID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unable to aggregate run progress")
	}

	percent := 100.0
	if run.TotalRows > 0 {
		percent = float64(stats.Lines) / float64(run.TotalRows) * 100
	}

	return &Progress{
		Status:              run.Status,
		TotalRows:           run.TotalRows,
		LinesInserted:       stats.Lines,
		PersistenceOK:       stats.PersistenceOK,
		FailedPersistence:   stats.FailedPersistence,
		FailedNormalization: stats.FailedNormalization,
		Percent:             percent,
	}, nil
}

// Cancel flips a running run to its error state. Already-committed chunks
// are left untouched; the orchestrator notices at the next chunk boundary.
func (s *service) Cancel(ctx context.Context, runID uuid.UUID) error {
	cancelled, err := s.audit.CancelRun(ctx, runID, "cancelled by operator")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unable to cancel import run")
	}
	if !cancelled {
		run, err := s.audit.FindRunByID(ctx, runID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "import run not found")
		}
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("import run is already %s", run.Status))
	}
	return nil
}

const maxErrorSummaryLen = 200

// summarizeError turns a driver error into a short human-readable message
// safe to store and render.
func summarizeError(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	msg := err.Error()
	if len(msg) > maxErrorSummaryLen {
		msg = msg[:maxErrorSummaryLen]
	}
	return msg
}

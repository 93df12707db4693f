package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/internal/audit"
	"github.com/dfcarvalho/patrimonio-backend/internal/catalog"
	pkgdb "github.com/dfcarvalho/patrimonio-backend/pkg/db"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
)

func setupImporterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
);`, `
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
  created_at DATETIME
);`, `
CREATE TABLE catalog_items (
  id TEXT PRIMARY KEY,
  catalog_code TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL,
  item_group TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE assets (
  id TEXT PRIMARY KEY,
  tag_number TEXT UNIQUE,
  external_id TEXT,
  catalog_item_id TEXT NOT NULL,
  owner_unit INTEGER NOT NULL,
  physical_location TEXT,
  standard_location_id TEXT,
  status TEXT NOT NULL,
  is_third_party INTEGER NOT NULL DEFAULT 0,
  custodian_profile_id TEXT,
  acquisition_value TEXT,
  acquisition_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE standard_locations (
  id TEXT PRIMARY KEY,
  unit INTEGER NOT NULL,
  name TEXT NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB, chunkSize int) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Audit:     audit.NewRepository(db),
		Catalog:   catalog.NewRepository(db),
		Tx:        gormTxRunner{db: db},
		Logger:    logger.New(logger.Options{ServiceName: "importer-test"}),
		ChunkSize: chunkSize,
	})
	require.NoError(t, err)
	return svc
}

const validPayload = "TOMBAMENTO;DESCRICAO;UNIDADE;LOCALIZACAO\n" +
	"1290001788;NOTEBOOK;1a aud;Sala 101\n" +
	"0000000002;MESA DE REUNIAO;2a aud;Sala 203\n"

func TestRunImportsValidRows(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)

	summary, err := svc.Run(context.Background(), RunInput{Payload: []byte(validPayload)})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)
	assert.Empty(t, summary.Failures)
	assert.False(t, summary.Cancelled)

	var asset models.Asset
	require.NoError(t, db.Where("tag_number = ?", "1290001788").First(&asset).Error)
	assert.Equal(t, enums.AssetStatusAwaitingReceipt, asset.Status)
	assert.Equal(t, enums.UnitFirst, asset.OwnerUnit)

	var run models.ImportRun
	require.NoError(t, db.Where("id = ?", summary.RunID).First(&run).Error)
	assert.Equal(t, enums.ImportRunStatusDone, run.Status)
	assert.NotNil(t, run.FinishedAt)
}

func TestRunIsIdempotent(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)
	ctx := context.Background()

	first, err := svc.Run(ctx, RunInput{Payload: []byte(validPayload)})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := svc.Run(ctx, RunInput{Payload: []byte(validPayload)})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)

	var count int64
	require.NoError(t, db.Model(&models.Asset{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRunIsolatesMalformedRow(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)

	payload := "TOMBAMENTO;DESCRICAO;UNIDADE\n" +
		"1290001788;NOTEBOOK;1a aud\n" +
		"123456789;IMPRESSORA;1a aud\n" + // nine digits: normalization failure
		"0000000002;MESA;2a aud\n"

	summary, err := svc.Run(context.Background(), RunInput{Payload: []byte(payload)})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Inserted)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 2, summary.Failures[0].RowNumber)
	assert.Equal(t, "normalization", summary.Failures[0].Stage)

	// audit completeness: one ImportRow per input row, regardless of outcome
	var rowCount int64
	require.NoError(t, db.Model(&models.ImportRow{}).Where("run_id = ?", summary.RunID).Count(&rowCount).Error)
	assert.Equal(t, int64(3), rowCount)

	// the malformed row never became an asset
	var assetCount int64
	require.NoError(t, db.Model(&models.Asset{}).Count(&assetCount).Error)
	assert.Equal(t, int64(2), assetCount)
}

func TestRunUsesFallbackUnit(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)

	payload := "TOMBAMENTO;DESCRICAO\n1290001788;NOTEBOOK\n"
	summary, err := svc.Run(context.Background(), RunInput{
		Payload:      []byte(payload),
		FallbackUnit: enums.UnitThird,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)

	var asset models.Asset
	require.NoError(t, db.Where("tag_number = ?", "1290001788").First(&asset).Error)
	assert.Equal(t, enums.UnitThird, asset.OwnerUnit)
}

func TestRunRejectsUnparseablePayload(t *testing.T) {
	svc := newTestService(t, setupImporterTestDB(t), 0)

	_, err := svc.Run(context.Background(), RunInput{Payload: []byte("DESCRICAO;UNIDADE\nX;1a aud\n")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

// cancellingAudit flips the run to its cancelled state right after the
// first chunk's status check, simulating an out-of-band cancel call.
type cancellingAudit struct {
	audit.Repository
	inner       audit.Repository
	statusReads *int
}

func (c cancellingAudit) WithTx(tx *gorm.DB) audit.Repository {
	return cancellingAudit{Repository: c.Repository.WithTx(tx), inner: c.inner, statusReads: c.statusReads}
}

func (c cancellingAudit) RunStatus(ctx context.Context, id uuid.UUID) (enums.ImportRunStatus, error) {
	*c.statusReads++
	if *c.statusReads == 2 {
		if _, err := c.inner.CancelRun(ctx, id, "cancelled by operator"); err != nil {
			return "", err
		}
	}
	return c.Repository.RunStatus(ctx, id)
}

func TestRunStopsAtChunkBoundaryOnCancellation(t *testing.T) {
	db := setupImporterTestDB(t)
	real := audit.NewRepository(db)
	reads := 0

	svc, err := NewService(ServiceParams{
		Audit:     cancellingAudit{Repository: real, inner: real, statusReads: &reads},
		Catalog:   catalog.NewRepository(db),
		Tx:        gormTxRunner{db: db},
		Logger:    logger.New(logger.Options{ServiceName: "importer-test"}),
		ChunkSize: 1,
	})
	require.NoError(t, err)

	payload := "TOMBAMENTO;DESCRICAO;UNIDADE\n" +
		"1290001788;NOTEBOOK;1a aud\n" +
		"0000000002;MESA;2a aud\n" +
		"0000000003;CADEIRA;2a aud\n"

	summary, err := svc.Run(context.Background(), RunInput{Payload: []byte(payload)})
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Processed)

	// the first chunk's committed work survives the cancellation
	var assetCount int64
	require.NoError(t, db.Model(&models.Asset{}).Count(&assetCount).Error)
	assert.Equal(t, int64(1), assetCount)
}

func TestProgressReflectsCommittedRows(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)
	ctx := context.Background()

	payload := "TOMBAMENTO;DESCRICAO;UNIDADE\n" +
		"1290001788;NOTEBOOK;1a aud\n" +
		"123456789;IMPRESSORA;1a aud\n"
	summary, err := svc.Run(ctx, RunInput{Payload: []byte(payload)})
	require.NoError(t, err)

	progress, err := svc.Progress(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportRunStatusDone, progress.Status)
	assert.Equal(t, 2, progress.TotalRows)
	assert.Equal(t, int64(2), progress.LinesInserted)
	assert.Equal(t, int64(1), progress.PersistenceOK)
	assert.Equal(t, int64(1), progress.FailedNormalization)
	assert.InDelta(t, 100.0, progress.Percent, 0.01)
}

func TestCancelIsRejectedOnTerminalRun(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)
	ctx := context.Background()

	summary, err := svc.Run(ctx, RunInput{Payload: []byte(validPayload)})
	require.NoError(t, err)

	err = svc.Cancel(ctx, summary.RunID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCancelUnknownRun(t *testing.T) {
	svc := newTestService(t, setupImporterTestDB(t), 0)
	err := svc.Cancel(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRunRecordsDetectedDelimiter(t *testing.T) {
	db := setupImporterTestDB(t)
	svc := newTestService(t, db, 0)

	summary, err := svc.Run(context.Background(), RunInput{Payload: []byte(strings.ReplaceAll(validPayload, ";", ","))})
	require.NoError(t, err)

	var run models.ImportRun
	require.NoError(t, db.Where("id = ?", summary.RunID).First(&run).Error)
	assert.Equal(t, ",", run.Delimiter)
}

func TestRunLinksStandardLocation(t *testing.T) {
	db := setupImporterTestDB(t)

	loc := models.StandardLocation{ID: uuid.New(), Unit: enums.UnitFirst, Name: "Sala 101"}
	require.NoError(t, db.Create(&loc).Error)

	svc, err := NewService(ServiceParams{
		Audit:        audit.NewRepository(db),
		Catalog:      catalog.NewRepository(db),
		Tx:           gormTxRunner{db: db},
		Logger:       logger.New(logger.Options{ServiceName: "importer-test"}),
		Capabilities: pkgdb.Capabilities{HasStandardLocation: true},
	})
	require.NoError(t, err)

	payload := "TOMBAMENTO;DESCRICAO;UNIDADE;LOCALIZACAO\n" +
		"1290001788;NOTEBOOK;1a aud;sala 101\n" + // case-insensitive registry match
		"0000000002;MESA;1a aud;Deposito\n"
	summary, err := svc.Run(context.Background(), RunInput{Payload: []byte(payload)})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	var matched models.Asset
	require.NoError(t, db.Where("tag_number = ?", "1290001788").First(&matched).Error)
	require.NotNil(t, matched.StandardLocationID)
	assert.Equal(t, loc.ID, *matched.StandardLocationID)

	// no registry entry: free-text location only
	var unmatched models.Asset
	require.NoError(t, db.Where("tag_number = ?", "0000000002").First(&unmatched).Error)
	assert.Nil(t, unmatched.StandardLocationID)
	assert.Equal(t, "Deposito", unmatched.PhysicalLocation)
}

// lateCancelAudit simulates a cancel flip landing between the final
// chunk's status check and the terminal write.
type lateCancelAudit struct {
	audit.Repository
}

func (a lateCancelAudit) FinishRun(ctx context.Context, run *models.ImportRun) (bool, error) {
	return false, nil
}

func TestRunReportsCancelLandingDuringFinalChunk(t *testing.T) {
	db := setupImporterTestDB(t)
	svc, err := NewService(ServiceParams{
		Audit:   lateCancelAudit{Repository: audit.NewRepository(db)},
		Catalog: catalog.NewRepository(db),
		Tx:      gormTxRunner{db: db},
		Logger:  logger.New(logger.Options{ServiceName: "importer-test"}),
	})
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), RunInput{Payload: []byte(validPayload)})
	require.NoError(t, err)
	assert.True(t, summary.Cancelled)

	// committed row work is never rolled back by the late cancel
	var assetCount int64
	require.NoError(t, db.Model(&models.Asset{}).Count(&assetCount).Error)
	assert.Equal(t, int64(2), assetCount)
}

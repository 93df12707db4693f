package movements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/internal/assets"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
)

func setupMovementsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
CREATE TABLE movements (
  id TEXT PRIMARY KEY,
  asset_id TEXT NOT NULL,
  type TEXT NOT NULL,
  origin_unit INTEGER NOT NULL,
  destination_unit INTEGER,
  temporary_custodian_id TEXT,
  expected_return_date DATETIME,
  reference_document TEXT,
  justification TEXT,
  authorizer_id TEXT,
  executor_id TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE evidence_documents (
  id TEXT PRIMARY KEY,
  movement_id TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE inventory_events (
  id TEXT PRIMARY KEY,
  event_code TEXT NOT NULL UNIQUE,
  scope_unit INTEGER,
  status TEXT NOT NULL,
  opened_by TEXT NOT NULL,
  closed_by TEXT,
  opened_at DATETIME,
  closed_at DATETIME,
  updated_at DATETIME
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

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Assets: assets.NewRepository(db),
		Repo:   NewRepository(db),
		Tx:     gormTxRunner{db: db},
		Logger: logger.New(logger.Options{ServiceName: "movements-test"}),
	})
	require.NoError(t, err)
	return svc
}

func seedAsset(t *testing.T, db *gorm.DB, mutate func(*models.Asset)) *models.Asset {
	t.Helper()
	tag := "1290001788"
	asset := &models.Asset{
		ID:            uuid.New(),
		TagNumber:     &tag,
		CatalogItemID: uuid.New(),
		OwnerUnit:     enums.UnitFirst,
		Status:        enums.AssetStatusOK,
	}
	if mutate != nil {
		mutate(asset)
	}
	require.NoError(t, db.Create(asset).Error)
	return asset
}

func refDoc() *string {
	doc := "OF-2026/041"
	return &doc
}

func TestTransferMovesOwnershipAndAppendsRecord(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil)

	dest := enums.UnitSecond
	authorizer := uuid.New()
	result, err := svc.Execute(context.Background(), Request{
		Type:              enums.MovementTypeTransfer,
		AssetRef:          asset.ID.String(),
		DestinationUnit:   &dest,
		AuthorizerID:      &authorizer,
		ExecutorID:        uuid.New(),
		ReferenceDocument: refDoc(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.UnitSecond, result.Asset.OwnerUnit)
	assert.Equal(t, enums.AssetStatusOK, result.Asset.Status)
	assert.Equal(t, enums.UnitFirst, result.Movement.OriginUnit)
	require.NotNil(t, result.Movement.DestinationUnit)
	assert.Equal(t, enums.UnitSecond, *result.Movement.DestinationUnit)

	// movement record and evidence placeholder were persisted
	var movementCount, evidenceCount int64
	require.NoError(t, db.Model(&models.Movement{}).Count(&movementCount).Error)
	require.NoError(t, db.Model(&models.EvidenceDocument{}).Where("movement_id = ?", result.Movement.ID).Count(&evidenceCount).Error)
	assert.Equal(t, int64(1), movementCount)
	assert.Equal(t, int64(1), evidenceCount)
}

func TestTransferByTagReference(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	seedAsset(t, db, nil)

	dest := enums.UnitThird
	authorizer := uuid.New()
	result, err := svc.Execute(context.Background(), Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        "129.000.178-8",
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UnitThird, result.Asset.OwnerUnit)
}

func TestTransferRejectsSameDestination(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil)

	dest := enums.UnitFirst
	authorizer := uuid.New()
	_, err := svc.Execute(context.Background(), Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        asset.ID.String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

// Two transfers race for one asset; the loser retries against the
// committed state and must see its destination rejected, not a second
// ownership change.
func TestTransferLoserSeesCommittedState(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil)
	ctx := context.Background()

	dest := enums.UnitSecond
	authorizer := uuid.New()
	winner, err := svc.Execute(ctx, Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        asset.ID.String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UnitSecond, winner.Asset.OwnerUnit)

	// the loser's retry carries the now-current owner as destination
	_, err = svc.Execute(ctx, Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        asset.ID.String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var movementCount int64
	require.NoError(t, db.Model(&models.Movement{}).Count(&movementCount).Error)
	assert.Equal(t, int64(1), movementCount)
}

func TestTransferRejectsThirdPartyAsset(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, func(a *models.Asset) { a.IsThirdParty = true })

	dest := enums.UnitSecond
	authorizer := uuid.New()
	_, err := svc.Execute(context.Background(), Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        asset.ID.String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransferRequiresAuthorizer(t *testing.T) {
	svc := newTestService(t, setupMovementsTestDB(t))

	dest := enums.UnitSecond
	_, err := svc.Execute(context.Background(), Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        uuid.New().String(),
		DestinationUnit: &dest,
		ExecutorID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransferBlockedByActiveInventoryEvent(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil)

	scope := enums.UnitFirst
	event := &models.InventoryEvent{
		ID:        uuid.New(),
		EventCode: "INV-2026-01",
		ScopeUnit: &scope,
		Status:    enums.InventoryEventStatusInProgress,
		OpenedBy:  uuid.New(),
	}
	require.NoError(t, db.Create(event).Error)

	dest := enums.UnitSecond
	authorizer := uuid.New()
	req := Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        asset.ID.String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	}

	_, err := svc.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLegalGate))

	// the same request succeeds once the event is closed
	require.NoError(t, db.Model(event).Updates(map[string]any{"status": enums.InventoryEventStatusClosed}).Error)
	_, err = svc.Execute(context.Background(), req)
	require.NoError(t, err)
}

func TestTransferNotBlockedByOutOfScopeEvent(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil) // owned by unit 1

	scope := enums.UnitFourth
	require.NoError(t, db.Create(&models.InventoryEvent{
		ID:        uuid.New(),
		EventCode: "INV-2026-02",
		ScopeUnit: &scope,
		Status:    enums.InventoryEventStatusInProgress,
		OpenedBy:  uuid.New(),
	}).Error)

	dest := enums.UnitSecond
	authorizer := uuid.New()
	_, err := svc.Execute(context.Background(), Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        asset.ID.String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.NoError(t, err)
}

func TestCustodyLifecycle(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil)
	ctx := context.Background()

	custodian := uuid.New()
	returnDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	authorizer := uuid.New()

	out, err := svc.Execute(ctx, Request{
		Type:                 enums.MovementTypeCustodyOut,
		AssetRef:             asset.ID.String(),
		TemporaryCustodianID: &custodian,
		ExpectedReturnDate:   &returnDate,
		AuthorizerID:         &authorizer,
		ExecutorID:           uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AssetStatusInCustody, out.Asset.Status)
	assert.Equal(t, enums.UnitFirst, out.Asset.OwnerUnit) // custody never changes owner

	var stored models.Asset
	require.NoError(t, db.Where("id = ?", asset.ID).First(&stored).Error)
	require.NotNil(t, stored.CustodianProfileID)
	assert.Equal(t, custodian, *stored.CustodianProfileID)

	back, err := svc.Execute(ctx, Request{
		Type:       enums.MovementTypeCustodyReturn,
		AssetRef:   asset.ID.String(),
		ExecutorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AssetStatusOK, back.Asset.Status)

	// fresh struct: a NULL column leaves a reused destination untouched
	var returned models.Asset
	require.NoError(t, db.Where("id = ?", asset.ID).First(&returned).Error)
	assert.Nil(t, returned.CustodianProfileID)
}

func TestCustodyOutRequiresCustodianAndReturnDate(t *testing.T) {
	svc := newTestService(t, setupMovementsTestDB(t))
	authorizer := uuid.New()

	_, err := svc.Execute(context.Background(), Request{
		Type:         enums.MovementTypeCustodyOut,
		AssetRef:     uuid.New().String(),
		AuthorizerID: &authorizer,
		ExecutorID:   uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCustodyReturnRequiresCustodyStatus(t *testing.T) {
	db := setupMovementsTestDB(t)
	svc := newTestService(t, db)
	asset := seedAsset(t, db, nil) // status ok, not in custody

	_, err := svc.Execute(context.Background(), Request{
		Type:       enums.MovementTypeCustodyReturn,
		AssetRef:   asset.ID.String(),
		ExecutorID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestExecuteRejectsRegularizationType(t *testing.T) {
	svc := newTestService(t, setupMovementsTestDB(t))

	_, err := svc.Execute(context.Background(), Request{
		Type:       enums.MovementTypeRegularization,
		AssetRef:   uuid.New().String(),
		ExecutorID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestExecuteUnknownAsset(t *testing.T) {
	svc := newTestService(t, setupMovementsTestDB(t))

	dest := enums.UnitSecond
	authorizer := uuid.New()
	_, err := svc.Execute(context.Background(), Request{
		Type:            enums.MovementTypeTransfer,
		AssetRef:        uuid.New().String(),
		DestinationUnit: &dest,
		AuthorizerID:    &authorizer,
		ExecutorID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

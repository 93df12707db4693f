package movements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/internal/assets"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
	"github.com/dfcarvalho/patrimonio-backend/pkg/metrics"
)

// inventoryBlockCitation is rendered to users when a transfer is rejected
// because a physical inventory is in progress.
const inventoryBlockCitation = "Instrução Normativa SEDAP nº 205/1988, item 8"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Request is one movement to execute against a single asset.
type Request struct {
	Type                 enums.MovementType
	AssetRef             string
	ReferenceDocument    *string
	DestinationUnit      *enums.Unit
	TemporaryCustodianID *uuid.UUID
	ExpectedReturnDate   *time.Time
	AuthorizerID         *uuid.UUID
	ExecutorID           uuid.UUID
	Justification        *string
}

// AssetState is the asset's resulting state returned to the caller.
type AssetState struct {
	ID        uuid.UUID         `json:"id"`
	TagNumber *string           `json:"tag_number"`
	OwnerUnit enums.Unit        `json:"owner_unit"`
	Status    enums.AssetStatus `json:"status"`
}

// Result carries the appended movement and the post-transition asset state.
type Result struct {
	Movement *models.Movement `json:"movement"`
	Asset    AssetState       `json:"asset"`
}

// Service is the ownership/custody state machine.
type Service interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	assets  assets.Repository
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.MovementMetrics
}

// ServiceParams wires the movement engine's dependencies.
type ServiceParams struct {
	Assets  assets.Repository
	Repo    Repository
	Tx      txRunner
	Logger  *logger.Logger
	Metrics *metrics.MovementMetrics
}

// NewService validates dependencies and builds the movement engine.
func NewService(p ServiceParams) (Service, error) {
	if p.Assets == nil {
		return nil, fmt.Errorf("assets repository is required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("movements repository is required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewMovementMetrics(nil)
	}
	return &service{assets: p.Assets, repo: p.Repo, tx: p.Tx, logg: p.Logger, metrics: p.Metrics}, nil
}

// Execute runs one movement: cheap shape validation first, then a single
// transaction that locks the asset row, re-validates state preconditions
// under the lock, mutates the asset and appends the movement record. The
// evidence placeholder is written after commit, best effort.
func (s *service) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := validateShape(req); err != nil {
		s.metrics.Inc(string(req.Type), "rejected")
		return nil, err
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assetRepo := s.assets.WithTx(tx)
		repo := s.repo.WithTx(tx)

		asset, err := assetRepo.FindByRefForUpdate(ctx, req.AssetRef)
		if err != nil {
			return err
		}

		if err := s.validateState(ctx, repo, asset, req); err != nil {
			return err
		}

		originUnit := asset.OwnerUnit
		applyTransition(asset, req)

		if err := assetRepo.Update(ctx, asset); err != nil {
			return translateStoreError(err)
		}

		movement := &models.Movement{
			AssetID:              asset.ID,
			Type:                 req.Type,
			OriginUnit:           originUnit,
			DestinationUnit:      req.DestinationUnit,
			TemporaryCustodianID: req.TemporaryCustodianID,
			ExpectedReturnDate:   req.ExpectedReturnDate,
			ReferenceDocument:    req.ReferenceDocument,
			Justification:        req.Justification,
			AuthorizerID:         req.AuthorizerID,
			ExecutorID:           req.ExecutorID,
		}
		if err := repo.CreateMovement(ctx, movement); err != nil {
			return translateStoreError(err)
		}

		result = &Result{
			Movement: movement,
			Asset: AssetState{
				ID:        asset.ID,
				TagNumber: asset.TagNumber,
				OwnerUnit: asset.OwnerUnit,
				Status:    asset.Status,
			},
		}
		return nil
	})
	if err != nil {
		s.metrics.Inc(string(req.Type), "rejected")
		return nil, err
	}

	// Evidence attachment is a downstream administrative step; its failure
	// must not undo a committed movement.
	if err := s.repo.CreateEvidencePlaceholder(ctx, result.Movement.ID); err != nil {
		s.logg.Error(ctx, "unable to create evidence placeholder", err)
	}

	s.metrics.Inc(string(req.Type), "executed")
	if result.Asset.TagNumber != nil {
		ctx = s.logg.WithAssetTag(ctx, *result.Asset.TagNumber)
	}
	ctx = s.logg.WithField(ctx, "movement_id", result.Movement.ID.String())
	s.logg.Info(ctx, fmt.Sprintf("movement %s executed for asset %s", req.Type, result.Asset.ID))
	return result, nil
}

// validateShape rejects malformed requests before any transaction opens.
func validateShape(req Request) error {
	if !req.Type.IsValid() || req.Type == enums.MovementTypeRegularization {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported movement type")
	}
	if req.ExecutorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "executor is required")
	}

	switch req.Type {
	case enums.MovementTypeTransfer:
		if req.DestinationUnit == nil || !req.DestinationUnit.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "transfer requires a valid destination unit")
		}
		if req.AuthorizerID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "transfer requires an authorizer")
		}
	case enums.MovementTypeCustodyOut:
		if req.TemporaryCustodianID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "custody requires a temporary custodian")
		}
		if req.ExpectedReturnDate == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "custody requires an expected return date")
		}
		if req.AuthorizerID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "custody requires an authorizer")
		}
	}
	return nil
}

// validateState checks the preconditions that depend on the locked asset.
func (s *service) validateState(ctx context.Context, repo Repository, asset *models.Asset, req Request) error {
	switch req.Type {
	case enums.MovementTypeTransfer:
		if asset.IsThirdParty {
			return pkgerrors.New(pkgerrors.CodeValidation, "third-party assets cannot be transferred")
		}
		if *req.DestinationUnit == asset.OwnerUnit {
			return pkgerrors.New(pkgerrors.CodeValidation, "destination unit equals the current owner unit")
		}

		blocked, err := repo.HasActiveInventoryEvent(ctx, asset.OwnerUnit)
		if err != nil {
			return err
		}
		if blocked {
			return pkgerrors.LegalGate("transfers are suspended during an active inventory event", inventoryBlockCitation)
		}

	case enums.MovementTypeCustodyReturn:
		if asset.Status != enums.AssetStatusInCustody {
			return pkgerrors.New(pkgerrors.CodeConflict, "asset is not in custody")
		}
	}
	return nil
}

// applyTransition mutates the asset per the state machine.
func applyTransition(asset *models.Asset, req Request) {
	switch req.Type {
	case enums.MovementTypeTransfer:
		asset.OwnerUnit = *req.DestinationUnit
		asset.Status = enums.AssetStatusOK
		asset.CustodianProfileID = nil
	case enums.MovementTypeCustodyOut:
		asset.Status = enums.AssetStatusInCustody
		asset.CustodianProfileID = req.TemporaryCustodianID
	case enums.MovementTypeCustodyReturn:
		asset.Status = enums.AssetStatusOK
		asset.CustodianProfileID = nil
	}
}

// translateStoreError maps driver-level failures onto the error taxonomy.
// The database trigger backing the inventory gate fires even when the
// service-level check is bypassed, so its sqlstate is translated here too.
func translateStoreError(err error) error {
	if db.IsInventoryBlock(err) {
		return pkgerrors.LegalGate("transfers are suspended during an active inventory event", inventoryBlockCitation)
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "conflicting ledger write")
	}
	return err
}

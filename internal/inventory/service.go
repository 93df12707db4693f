package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/internal/assets"
	"github.com/dfcarvalho/patrimonio-backend/internal/geafin"
	"github.com/dfcarvalho/patrimonio-backend/internal/movements"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
)

const (
	defaultSyncBatchLimit = 500

	// midCountCitation backs the rule that ownership must not shift while
	// a campaign is active or its divergences are still frozen facts.
	midCountCitation = "Instrução Normativa SEDAP nº 205/1988, item 8"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OpenEventInput creates one inventory campaign. A nil ScopeUnit covers the
// whole organization.
type OpenEventInput struct {
	EventCode string
	ScopeUnit *enums.Unit
	OpenedBy  uuid.UUID
}

// SyncItem is one physical observation submitted by a counting client.
type SyncItem struct {
	TagNumber  string    `json:"tag_number"`
	ObservedAt time.Time `json:"observed_at"`
	Notes      *string   `json:"notes,omitempty"`
}

// SyncInput is one count batch: up to the batch limit of items sharing a
// single found-unit/found-location context.
type SyncInput struct {
	EventID       uuid.UUID
	FoundUnit     enums.Unit
	FoundLocation string
	Items         []SyncItem
}

// SyncError describes one item that could not be recorded.
type SyncError struct {
	Index   int    `json:"index"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// SyncSummary is the per-batch result. Partial failure is a valid terminal
// state: errors are embedded, never propagated as a batch failure.
type SyncSummary struct {
	TotalItems int         `json:"total_items"`
	Inserted   int         `json:"inserted"`
	Updated    int         `json:"updated"`
	Divergent  int         `json:"divergent"`
	Errors     []SyncError `json:"errors"`
}

// RegularizeInput resolves one confirmed divergence after event closure.
type RegularizeInput struct {
	CountID           uuid.UUID
	Action            enums.RegularizationAction
	ActorID           uuid.UUID
	ReferenceDocument *string
	Notes             *string
}

// RegularizeResult carries the movement created (transfer-ownership only)
// and the asset's resulting state.
type RegularizeResult struct {
	Movement *models.Movement       `json:"movement,omitempty"`
	Asset    *movements.AssetState  `json:"asset,omitempty"`
	Count    *models.InventoryCount `json:"count"`
}

// Service is the inventory counting and divergence-regularization engine.
type Service interface {
	OpenEvent(ctx context.Context, input OpenEventInput) (*models.InventoryEvent, error)
	CloseEvent(ctx context.Context, eventID, closedBy uuid.UUID) (*models.InventoryEvent, error)
	CancelEvent(ctx context.Context, eventID, cancelledBy uuid.UUID) (*models.InventoryEvent, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.InventoryEvent, error)
	ListCounts(ctx context.Context, eventID uuid.UUID, occurrence *enums.OccurrenceType) ([]models.InventoryCount, error)
	Sync(ctx context.Context, input SyncInput) (*SyncSummary, error)
	Regularize(ctx context.Context, input RegularizeInput) (*RegularizeResult, error)
}

type service struct {
	repo       Repository
	assets     assets.Repository
	movements  movements.Repository
	tx         txRunner
	logg       *logger.Logger
	batchLimit int
}

// ServiceParams wires the reconciliation engine's dependencies.
type ServiceParams struct {
	Repo           Repository
	Assets         assets.Repository
	Movements      movements.Repository
	Tx             txRunner
	Logger         *logger.Logger
	SyncBatchLimit int
}

// NewService validates dependencies and builds the reconciliation engine.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	if p.Assets == nil {
		return nil, fmt.Errorf("assets repository is required")
	}
	if p.Movements == nil {
		return nil, fmt.Errorf("movements repository is required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if p.SyncBatchLimit <= 0 {
		p.SyncBatchLimit = defaultSyncBatchLimit
	}
	return &service{
		repo:       p.Repo,
		assets:     p.Assets,
		movements:  p.Movements,
		tx:         p.Tx,
		logg:       p.Logger,
		batchLimit: p.SyncBatchLimit,
	}, nil
}

// OpenEvent creates a campaign in its in_progress state.
func (s *service) OpenEvent(ctx context.Context, input OpenEventInput) (*models.InventoryEvent, error) {
	if input.EventCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event code is required")
	}
	if input.OpenedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opener identity is required")
	}
	if input.ScopeUnit != nil && !input.ScopeUnit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope unit")
	}

	event := &models.InventoryEvent{
		EventCode: input.EventCode,
		ScopeUnit: input.ScopeUnit,
		Status:    enums.InventoryEventStatusInProgress,
		OpenedBy:  input.OpenedBy,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err,
				fmt.Sprintf("event code %q already exists", input.EventCode))
		}
		return nil, err
	}

	ctx = s.logg.WithEventCode(ctx, event.EventCode)
	s.logg.Info(ctx, "inventory event opened")
	return event, nil
}

// CloseEvent moves an in_progress campaign to its closed terminal state.
func (s *service) CloseEvent(ctx context.Context, eventID, closedBy uuid.UUID) (*models.InventoryEvent, error) {
	return s.terminateEvent(ctx, eventID, closedBy, enums.InventoryEventStatusClosed)
}

// CancelEvent moves an in_progress campaign to its cancelled terminal state.
func (s *service) CancelEvent(ctx context.Context, eventID, cancelledBy uuid.UUID) (*models.InventoryEvent, error) {
	return s.terminateEvent(ctx, eventID, cancelledBy, enums.InventoryEventStatusCancelled)
}

func (s *service) terminateEvent(ctx context.Context, eventID, actor uuid.UUID, target enums.InventoryEventStatus) (*models.InventoryEvent, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity is required")
	}

	var event *models.InventoryEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindEventByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if found.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("inventory event is already %s", found.Status))
		}

		now := time.Now()
		found.Status = target
		found.ClosedBy = &actor
		found.ClosedAt = &now
		if err := repo.UpdateEvent(ctx, found); err != nil {
			return err
		}
		event = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithEventCode(ctx, event.EventCode)
	s.logg.Info(ctx, fmt.Sprintf("inventory event %s", target))
	return event, nil
}

func (s *service) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.InventoryEvent, error) {
	return s.repo.FindEventByID(ctx, eventID)
}

// ListCounts returns an event's counts, optionally filtered by occurrence
// type for the divergence worklist.
func (s *service) ListCounts(ctx context.Context, eventID uuid.UUID, occurrence *enums.OccurrenceType) ([]models.InventoryCount, error) {
	if _, err := s.repo.FindEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListCountsByEvent(ctx, eventID, occurrence)
}

// Sync ingests one count batch. The event precondition is checked once for
// the whole batch; each item then runs in its own savepoint so one bad item
// never voids its siblings. Occurrence type and the pending flag are derived
// from the ledger comparison alone.
func (s *service) Sync(ctx context.Context, input SyncInput) (*SyncSummary, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count batch is empty")
	}
	if len(input.Items) > s.batchLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("count batch exceeds the %d item limit", s.batchLimit))
	}
	if !input.FoundUnit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid found unit")
	}

	event, err := s.repo.FindEventByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status != enums.InventoryEventStatusInProgress {
		return nil, pkgerrors.LegalGate(
			fmt.Sprintf("inventory event is %s, counts are no longer accepted", event.Status),
			midCountCitation)
	}

	summary := &SyncSummary{TotalItems: len(input.Items), Errors: []SyncError{}}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for i, item := range input.Items {
			itemErr := tx.Transaction(func(sub *gorm.DB) error {
				return s.syncItem(ctx, sub, event, input, item, summary)
			})
			if itemErr != nil {
				summary.Errors = append(summary.Errors, SyncError{
					Index:   i,
					Tag:     item.TagNumber,
					Message: itemErr.Error(),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithEventCode(ctx, event.EventCode)
	s.logg.Info(ctx, fmt.Sprintf(
		"count batch recorded: %d items, %d inserted, %d updated, %d divergent, %d errors",
		summary.TotalItems, summary.Inserted, summary.Updated, summary.Divergent, len(summary.Errors)))
	return summary, nil
}

func (s *service) syncItem(ctx context.Context, tx *gorm.DB, event *models.InventoryEvent, input SyncInput, item SyncItem, summary *SyncSummary) error {
	tag, err := geafin.NormalizeTag(item.TagNumber)
	if err != nil {
		return err
	}

	asset, err := s.assets.WithTx(tx).FindByTag(ctx, tag)
	if err != nil {
		return err
	}

	occurrence := deriveOccurrence(asset, input.FoundUnit)
	pending := occurrence == enums.OccurrenceTypeLocationDivergent

	observedAt := item.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindCountByEventAndAsset(ctx, event.ID, asset.ID)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		count := &models.InventoryCount{
			EventID:               event.ID,
			AssetID:               asset.ID,
			FoundUnit:             input.FoundUnit,
			FoundLocation:         input.FoundLocation,
			Notes:                 item.Notes,
			ObservedAt:            observedAt,
			Occurrence:            occurrence,
			RegularizationPending: pending,
		}
		if err := repo.SaveCount(ctx, count); err != nil {
			return err
		}
		summary.Inserted++

	case err != nil:
		return err

	default:
		// re-scan of the same asset within the same event: update in place
		existing.FoundUnit = input.FoundUnit
		existing.FoundLocation = input.FoundLocation
		existing.Notes = item.Notes
		existing.ObservedAt = observedAt
		existing.Occurrence = occurrence
		existing.RegularizationPending = pending
		if err := repo.SaveCount(ctx, existing); err != nil {
			return err
		}
		summary.Updated++
	}

	if pending {
		summary.Divergent++
	}
	return nil
}

// deriveOccurrence compares the ledger against the observation. Callers
// never influence this classification.
func deriveOccurrence(asset *models.Asset, foundUnit enums.Unit) enums.OccurrenceType {
	if asset.IsThirdParty {
		return enums.OccurrenceTypeThirdPartyAsset
	}
	if asset.OwnerUnit != foundUnit {
		return enums.OccurrenceTypeLocationDivergent
	}
	return enums.OccurrenceTypeConformant
}

// Regularize resolves one divergence after the campaign closed. The count
// and its asset are locked together; preconditions are checked in order:
// divergent occurrence, still pending, owning event closed.
func (s *service) Regularize(ctx context.Context, input RegularizeInput) (*RegularizeResult, error) {
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid regularization action")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity is required")
	}
	if input.Action == enums.RegularizationActionTransferOwnership && input.ReferenceDocument == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer of ownership requires a reference document")
	}

	var result *RegularizeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assetRepo := s.assets.WithTx(tx)

		count, err := repo.FindCountByIDForUpdate(ctx, input.CountID)
		if err != nil {
			return err
		}
		asset, err := assetRepo.FindByIDForUpdate(ctx, count.AssetID)
		if err != nil {
			return err
		}

		if count.Occurrence != enums.OccurrenceTypeLocationDivergent {
			return pkgerrors.LegalGate(
				fmt.Sprintf("%s counts cannot be regularized", count.Occurrence),
				midCountCitation)
		}
		if !count.RegularizationPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "count is already regularized")
		}

		event, err := repo.FindEventByID(ctx, count.EventID)
		if err != nil {
			return err
		}
		if event.Status != enums.InventoryEventStatusClosed {
			return pkgerrors.LegalGate(
				"divergences are frozen until the inventory event closes",
				midCountCitation)
		}

		var movement *models.Movement
		if input.Action == enums.RegularizationActionTransferOwnership {
			if asset.OwnerUnit == count.FoundUnit {
				return pkgerrors.New(pkgerrors.CodeConflict,
					"asset already belongs to the found unit")
			}

			originUnit := asset.OwnerUnit
			foundUnit := count.FoundUnit
			asset.OwnerUnit = foundUnit
			asset.Status = enums.AssetStatusOK
			if err := assetRepo.Update(ctx, asset); err != nil {
				return err
			}

			movement = &models.Movement{
				AssetID:           asset.ID,
				Type:              enums.MovementTypeRegularization,
				OriginUnit:        originUnit,
				DestinationUnit:   &foundUnit,
				ReferenceDocument: input.ReferenceDocument,
				Justification:     input.Notes,
				ExecutorID:        input.ActorID,
			}
			if err := s.movements.WithTx(tx).CreateMovement(ctx, movement); err != nil {
				return err
			}
			count.RegularizationMovementID = &movement.ID
		}

		now := time.Now()
		action := input.Action
		count.RegularizationPending = false
		count.RegularizationAction = &action
		count.RegularizationNotes = input.Notes
		count.RegularizedBy = &input.ActorID
		count.RegularizedAt = &now
		if err := repo.SaveCount(ctx, count); err != nil {
			return err
		}

		result = &RegularizeResult{Movement: movement, Count: count}
		if movement != nil {
			result.Asset = &movements.AssetState{
				ID:        asset.ID,
				TagNumber: asset.TagNumber,
				OwnerUnit: asset.OwnerUnit,
				Status:    asset.Status,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Movement != nil {
		if err := s.movements.CreateEvidencePlaceholder(ctx, result.Movement.ID); err != nil {
			s.logg.Error(ctx, "unable to create evidence placeholder", err)
		}
	}

	s.logg.Info(ctx, fmt.Sprintf("count %s regularized with action %s", input.CountID, input.Action))
	return result, nil
}

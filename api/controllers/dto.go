package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

type assetResponse struct {
	ID                 uuid.UUID         `json:"id"`
	TagNumber          *string           `json:"tag_number"`
	CatalogItemID      uuid.UUID         `json:"catalog_item_id"`
	OwnerUnit          enums.Unit        `json:"owner_unit"`
	PhysicalLocation   string            `json:"physical_location"`
	StandardLocationID *uuid.UUID        `json:"standard_location_id,omitempty"`
	Status             enums.AssetStatus `json:"status"`
	IsThirdParty       bool              `json:"is_third_party"`
	CustodianProfileID *uuid.UUID        `json:"custodian_profile_id,omitempty"`
	AcquisitionValue   *decimal.Decimal  `json:"acquisition_value,omitempty"`
	AcquisitionDate    *time.Time        `json:"acquisition_date,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func newAssetResponse(a *models.Asset) assetResponse {
	return assetResponse{
		ID:                 a.ID,
		TagNumber:          a.TagNumber,
		CatalogItemID:      a.CatalogItemID,
		OwnerUnit:          a.OwnerUnit,
		PhysicalLocation:   a.PhysicalLocation,
		StandardLocationID: a.StandardLocationID,
		Status:             a.Status,
		IsThirdParty:       a.IsThirdParty,
		CustodianProfileID: a.CustodianProfileID,
		AcquisitionValue:   a.AcquisitionValue,
		AcquisitionDate:    a.AcquisitionDate,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

type movementResponse struct {
	ID                   uuid.UUID          `json:"id"`
	AssetID              uuid.UUID          `json:"asset_id"`
	Type                 enums.MovementType `json:"type"`
	OriginUnit           enums.Unit         `json:"origin_unit"`
	DestinationUnit      *enums.Unit        `json:"destination_unit,omitempty"`
	TemporaryCustodianID *uuid.UUID         `json:"temporary_custodian_id,omitempty"`
	ExpectedReturnDate   *time.Time         `json:"expected_return_date,omitempty"`
	ReferenceDocument    *string            `json:"reference_document,omitempty"`
	Justification        *string            `json:"justification,omitempty"`
	AuthorizerID         *uuid.UUID         `json:"authorizer_id,omitempty"`
	ExecutorID           uuid.UUID          `json:"executor_id"`
	CreatedAt            time.Time          `json:"created_at"`
}

func newMovementResponse(m *models.Movement) movementResponse {
	return movementResponse{
		ID:                   m.ID,
		AssetID:              m.AssetID,
		Type:                 m.Type,
		OriginUnit:           m.OriginUnit,
		DestinationUnit:      m.DestinationUnit,
		TemporaryCustodianID: m.TemporaryCustodianID,
		ExpectedReturnDate:   m.ExpectedReturnDate,
		ReferenceDocument:    m.ReferenceDocument,
		Justification:        m.Justification,
		AuthorizerID:         m.AuthorizerID,
		ExecutorID:           m.ExecutorID,
		CreatedAt:            m.CreatedAt,
	}
}

func newMovementResponses(items []models.Movement) []movementResponse {
	out := make([]movementResponse, 0, len(items))
	for i := range items {
		out = append(out, newMovementResponse(&items[i]))
	}
	return out
}

type eventResponse struct {
	ID        uuid.UUID                  `json:"id"`
	EventCode string                     `json:"event_code"`
	ScopeUnit *enums.Unit                `json:"scope_unit,omitempty"`
	Status    enums.InventoryEventStatus `json:"status"`
	OpenedBy  uuid.UUID                  `json:"opened_by"`
	ClosedBy  *uuid.UUID                 `json:"closed_by,omitempty"`
	OpenedAt  time.Time                  `json:"opened_at"`
	ClosedAt  *time.Time                 `json:"closed_at,omitempty"`
}

func newEventResponse(e *models.InventoryEvent) eventResponse {
	return eventResponse{
		ID:        e.ID,
		EventCode: e.EventCode,
		ScopeUnit: e.ScopeUnit,
		Status:    e.Status,
		OpenedBy:  e.OpenedBy,
		ClosedBy:  e.ClosedBy,
		OpenedAt:  e.OpenedAt,
		ClosedAt:  e.ClosedAt,
	}
}

type countResponse struct {
	ID                       uuid.UUID                   `json:"id"`
	EventID                  uuid.UUID                   `json:"event_id"`
	AssetID                  uuid.UUID                   `json:"asset_id"`
	FoundUnit                enums.Unit                  `json:"found_unit"`
	FoundLocation            string                      `json:"found_location"`
	Notes                    *string                     `json:"notes,omitempty"`
	ObservedAt               time.Time                   `json:"observed_at"`
	Occurrence               enums.OccurrenceType        `json:"occurrence_type"`
	RegularizationPending    bool                        `json:"regularization_pending"`
	RegularizationAction     *enums.RegularizationAction `json:"regularization_action,omitempty"`
	RegularizationNotes      *string                     `json:"regularization_notes,omitempty"`
	RegularizedBy            *uuid.UUID                  `json:"regularized_by,omitempty"`
	RegularizedAt            *time.Time                  `json:"regularized_at,omitempty"`
	RegularizationMovementID *uuid.UUID                  `json:"regularization_movement_id,omitempty"`
}

func newCountResponse(c *models.InventoryCount) countResponse {
	return countResponse{
		ID:                       c.ID,
		EventID:                  c.EventID,
		AssetID:                  c.AssetID,
		FoundUnit:                c.FoundUnit,
		FoundLocation:            c.FoundLocation,
		Notes:                    c.Notes,
		ObservedAt:               c.ObservedAt,
		Occurrence:               c.Occurrence,
		RegularizationPending:    c.RegularizationPending,
		RegularizationAction:     c.RegularizationAction,
		RegularizationNotes:      c.RegularizationNotes,
		RegularizedBy:            c.RegularizedBy,
		RegularizedAt:            c.RegularizedAt,
		RegularizationMovementID: c.RegularizationMovementID,
	}
}

func newCountResponses(items []models.InventoryCount) []countResponse {
	out := make([]countResponse, 0, len(items))
	for i := range items {
		out = append(out, newCountResponse(&items[i]))
	}
	return out
}

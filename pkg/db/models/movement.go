package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// Movement records one ownership/custody state change. Rows are append-only:
// created once inside the movement transaction and never mutated afterwards.
type Movement struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssetID              uuid.UUID          `gorm:"column:asset_id;type:uuid;not null;index"`
	Type                 enums.MovementType `gorm:"column:type;type:movement_type_enum;not null"`
	OriginUnit           enums.Unit         `gorm:"column:origin_unit;not null"`
	DestinationUnit      *enums.Unit        `gorm:"column:destination_unit"`
	TemporaryCustodianID *uuid.UUID         `gorm:"column:temporary_custodian_id;type:uuid"`
	ExpectedReturnDate   *time.Time         `gorm:"column:expected_return_date"`
	ReferenceDocument    *string            `gorm:"column:reference_document"`
	Justification        *string            `gorm:"column:justification"`
	AuthorizerID         *uuid.UUID         `gorm:"column:authorizer_id;type:uuid"`
	ExecutorID           uuid.UUID          `gorm:"column:executor_id;type:uuid;not null"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
}

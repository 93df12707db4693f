package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// InventoryCount is one observation of one asset within one inventory event.
// The (event_id, asset_id) pair is unique: re-observing an asset updates the
// existing row instead of duplicating it. Occurrence type and the pending
// flag are derived from the ledger comparison, never client-supplied.
type InventoryCount struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID            `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_counts_event_asset"`
	AssetID       uuid.UUID            `gorm:"column:asset_id;type:uuid;not null;uniqueIndex:idx_counts_event_asset"`
	FoundUnit     enums.Unit           `gorm:"column:found_unit;not null"`
	FoundLocation string               `gorm:"column:found_location"`
	Notes         *string              `gorm:"column:notes"`
	ObservedAt    time.Time            `gorm:"column:observed_at;not null"`
	Occurrence    enums.OccurrenceType `gorm:"column:occurrence_type;type:occurrence_type_enum;not null"`

	RegularizationPending    bool                        `gorm:"column:regularization_pending;not null;default:false"`
	RegularizationAction     *enums.RegularizationAction `gorm:"column:regularization_action;type:regularization_action_enum"`
	RegularizationNotes      *string                     `gorm:"column:regularization_notes"`
	RegularizedBy            *uuid.UUID                  `gorm:"column:regularized_by;type:uuid"`
	RegularizedAt            *time.Time                  `gorm:"column:regularized_at"`
	RegularizationMovementID *uuid.UUID                  `gorm:"column:regularization_movement_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// InventoryEvent is one physical inventory campaign. A nil ScopeUnit covers
// the whole organization. While in_progress, transfers against in-scope
// assets are rejected both by the movement engine and by a database trigger.
type InventoryEvent struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventCode string                     `gorm:"column:event_code;uniqueIndex;not null"`
	ScopeUnit *enums.Unit                `gorm:"column:scope_unit"`
	Status    enums.InventoryEventStatus `gorm:"column:status;type:inventory_event_status_enum;not null"`
	OpenedBy  uuid.UUID                  `gorm:"column:opened_by;type:uuid;not null"`
	ClosedBy  *uuid.UUID                 `gorm:"column:closed_by;type:uuid"`
	OpenedAt  time.Time                  `gorm:"column:opened_at;autoCreateTime"`
	ClosedAt  *time.Time                 `gorm:"column:closed_at"`
	UpdatedAt time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

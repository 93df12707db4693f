package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// EvidenceDocument is the pending placeholder created for each movement.
// Attachment is a downstream administrative step handled by the document
// service, so creation here is best effort and must not fail the movement.
type EvidenceDocument struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MovementID uuid.UUID            `gorm:"column:movement_id;type:uuid;not null;index"`
	Status     enums.EvidenceStatus `gorm:"column:status;type:evidence_status_enum;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// StandardLocation is one entry of the curated location registry. Its CRUD
// lives outside this service; the model exists as the FK target assets
// reference once the registry migration has run.
type StandardLocation struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Unit      enums.Unit `gorm:"column:unit;not null"`
	Name      string     `gorm:"column:name;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

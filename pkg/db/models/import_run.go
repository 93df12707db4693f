package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// ImportRun is one GEAFIN ingestion attempt. The row is committed with
// status running before any row processing so external observers can poll
// it, and its status field is the single coordination point between the
// orchestrator and out-of-band cancellation.
type ImportRun struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContentHash  string                `gorm:"column:content_hash;not null"`
	Delimiter    string                `gorm:"column:delimiter;not null"`
	TotalRows    int                   `gorm:"column:total_rows;not null;default:0"`
	Status       enums.ImportRunStatus `gorm:"column:status;type:import_run_status_enum;not null"`
	ErrorSummary *string               `gorm:"column:error_summary"`
	StartedBy    *uuid.UUID            `gorm:"column:started_by;type:uuid"`
	FinishedAt   *time.Time            `gorm:"column:finished_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

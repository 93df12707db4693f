package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportRow mirrors one raw CSV row of an import run, kept independent of
// the operational tables so the audit trail survives normalization and
// persistence failures. The two outcome flag pairs are written exactly once
// each; everything else is immutable after creation.
type ImportRow struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RunID     uuid.UUID `gorm:"column:run_id;type:uuid;not null;index"`
	RowNumber int       `gorm:"column:row_number;not null"`
	RowRaw    string    `gorm:"column:row_raw;not null"`
	RowHash   string    `gorm:"column:row_hash;not null"`

	NormalizationOK    bool    `gorm:"column:normalization_ok;not null;default:false"`
	NormalizationError *string `gorm:"column:normalization_error"`
	PersistenceOK      bool    `gorm:"column:persistence_ok;not null;default:false"`
	PersistenceError   *string `gorm:"column:persistence_error"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

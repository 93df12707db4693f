package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogItem is the SKU-like canonical entity the GEAFIN feed maintains.
// Rows are created and updated exclusively by the import upsert and never
// deleted; multiple physical assets reference one item.
type CatalogItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CatalogCode string    `gorm:"column:catalog_code;uniqueIndex;not null"`
	Description string    `gorm:"column:description;not null"`
	Group       *string   `gorm:"column:item_group"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

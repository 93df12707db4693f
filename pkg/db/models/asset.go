package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// Asset is the ledger's central entity. TagNumber is the natural key printed
// on the physical label: unique when present and immutable once set.
// IsThirdParty is likewise immutable after creation. Status in_custody
// implies an active custody movement exists.
type Asset struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TagNumber          *string           `gorm:"column:tag_number;uniqueIndex"`
	ExternalID         *string           `gorm:"column:external_id"`
	CatalogItemID      uuid.UUID         `gorm:"column:catalog_item_id;type:uuid;not null"`
	OwnerUnit          enums.Unit        `gorm:"column:owner_unit;not null"`
	PhysicalLocation   string            `gorm:"column:physical_location"`
	StandardLocationID *uuid.UUID        `gorm:"column:standard_location_id;type:uuid"`
	Status             enums.AssetStatus `gorm:"column:status;type:asset_status_enum;not null"`
	IsThirdParty       bool              `gorm:"column:is_third_party;not null;default:false"`
	CustodianProfileID *uuid.UUID        `gorm:"column:custodian_profile_id;type:uuid"`
	AcquisitionValue   *decimal.Decimal  `gorm:"column:acquisition_value;type:numeric(14,2)"`
	AcquisitionDate    *time.Time        `gorm:"column:acquisition_date"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	CatalogItem *CatalogItem `gorm:"foreignKey:CatalogItemID"`
}

package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// CatalogItemUpsert carries the feed values for one catalog item write.
type CatalogItemUpsert struct {
	CatalogCode string
	Description string
	Group       *string
}

// AssetUpsert carries the feed values for one asset write.
type AssetUpsert struct {
	TagNumber          string
	CatalogItemID      uuid.UUID
	OwnerUnit          enums.Unit
	PhysicalLocation   string
	StandardLocationID *uuid.UUID
	AcquisitionValue   *decimal.Decimal
	AcquisitionDate    *time.Time
}

// UpsertOutcome reports what an asset upsert did, feeding the import
// summary's counters.
type UpsertOutcome struct {
	Inserted    bool
	UnitChanged bool
}

// Repository performs idempotent conflict-resolving writes keyed by
// natural keys, never by surrogate identity.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	UpsertCatalogItem(ctx context.Context, in CatalogItemUpsert) (*models.CatalogItem, error)
	UpsertAsset(ctx context.Context, in AssetUpsert) (*models.Asset, UpsertOutcome, error)
	FindStandardLocation(ctx context.Context, unit enums.Unit, name string) (*models.StandardLocation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an upsert repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertCatalogItem inserts or updates by catalog code. The feed is the
// source of truth for descriptions, so the description is always
// overwritten; group is preserved when the new value is absent.
func (r *repository) UpsertCatalogItem(ctx context.Context, in CatalogItemUpsert) (*models.CatalogItem, error) {
	code := strings.TrimSpace(in.CatalogCode)

	var item models.CatalogItem
	err := r.db.WithContext(ctx).Where("catalog_code = ?", code).First(&item).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CatalogItem{
			ID:          uuid.New(),
			CatalogCode: code,
			Description: in.Description,
			Group:       in.Group,
		}
		if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil

	case err != nil:
		return nil, err
	}

	item.Description = in.Description
	if in.Group != nil {
		item.Group = in.Group
	}
	if err := r.db.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertAsset inserts or updates by tag number. A newly seen asset has not
// been physically confirmed yet, so inserts are forced to awaiting_receipt.
// On update the owner unit and catalog linkage follow the feed, but a known
// acquisition value is never erased by an absent one.
func (r *repository) UpsertAsset(ctx context.Context, in AssetUpsert) (*models.Asset, UpsertOutcome, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).Where("tag_number = ?", in.TagNumber).First(&asset).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		tag := in.TagNumber
		asset = models.Asset{
			ID:                 uuid.New(),
			TagNumber:          &tag,
			CatalogItemID:      in.CatalogItemID,
			OwnerUnit:          in.OwnerUnit,
			PhysicalLocation:   in.PhysicalLocation,
			StandardLocationID: in.StandardLocationID,
			Status:             enums.AssetStatusAwaitingReceipt,
			AcquisitionValue:   in.AcquisitionValue,
			AcquisitionDate:    in.AcquisitionDate,
		}
		if err := r.db.WithContext(ctx).Create(&asset).Error; err != nil {
			return nil, UpsertOutcome{}, err
		}
		return &asset, UpsertOutcome{Inserted: true, UnitChanged: false}, nil

	case err != nil:
		return nil, UpsertOutcome{}, err
	}

	outcome := UpsertOutcome{UnitChanged: asset.OwnerUnit != in.OwnerUnit}

	asset.OwnerUnit = in.OwnerUnit
	asset.CatalogItemID = in.CatalogItemID
	if in.PhysicalLocation != "" {
		asset.PhysicalLocation = in.PhysicalLocation
	}
	if in.StandardLocationID != nil {
		asset.StandardLocationID = in.StandardLocationID
	}
	if in.AcquisitionValue != nil {
		asset.AcquisitionValue = in.AcquisitionValue
	}
	if in.AcquisitionDate != nil {
		asset.AcquisitionDate = in.AcquisitionDate
	}
	if err := r.db.WithContext(ctx).Save(&asset).Error; err != nil {
		return nil, UpsertOutcome{}, err
	}
	return &asset, outcome, nil
}

// FindStandardLocation matches a feed location string against the curated
// registry for one unit. A miss is not an error; the caller falls back to
// the free-text location.
func (r *repository) FindStandardLocation(ctx context.Context, unit enums.Unit, name string) (*models.StandardLocation, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}

	var loc models.StandardLocation
	err := r.db.WithContext(ctx).
		Where("unit = ? AND LOWER(name) = LOWER(?)", unit, trimmed).
		First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

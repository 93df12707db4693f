package assets

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dfcarvalho/patrimonio-backend/internal/geafin"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
)

// Repository reads and writes the asset ledger. The ForUpdate variants take
// an exclusive row lock, so concurrent movements on the same asset are
// totally ordered by the database.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByRef(ctx context.Context, ref string) (*models.Asset, error)
	FindByRefForUpdate(ctx context.Context, ref string) (*models.Asset, error)
	FindByTag(ctx context.Context, tag string) (*models.Asset, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) error
	MovementsByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Movement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an asset repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// refQuery resolves an asset reference: a UUID looks up by id, anything
// else must normalize to a valid tag number.
func refQuery(db *gorm.DB, ref string) (*gorm.DB, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset reference is required")
	}

	if id, err := uuid.Parse(ref); err == nil {
		return db.Where("id = ?", id), nil
	}

	tag, err := geafin.NormalizeTag(ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "asset reference is neither an id nor a tag number")
	}
	return db.Where("tag_number = ?", tag), nil
}

func (r *repository) findByRef(ctx context.Context, ref string, lock bool) (*models.Asset, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	q, err := refQuery(q, ref)
	if err != nil {
		return nil, err
	}

	var asset models.Asset
	if err := q.First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repository) FindByRef(ctx context.Context, ref string) (*models.Asset, error) {
	return r.findByRef(ctx, ref, false)
}

func (r *repository) FindByRefForUpdate(ctx context.Context, ref string) (*models.Asset, error) {
	return r.findByRef(ctx, ref, true)
}

func (r *repository) FindByTag(ctx context.Context, tag string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).Where("tag_number = ?", tag).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repository) Update(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Save(asset).Error
}

func (r *repository) MovementsByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Movement, error) {
	var movements []models.Movement
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

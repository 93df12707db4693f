package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
)

// Repository persists inventory events and their counts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateEvent(ctx context.Context, event *models.InventoryEvent) error
	FindEventByID(ctx context.Context, id uuid.UUID) (*models.InventoryEvent, error)
	FindEventByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryEvent, error)
	UpdateEvent(ctx context.Context, event *models.InventoryEvent) error

	FindCountByEventAndAsset(ctx context.Context, eventID, assetID uuid.UUID) (*models.InventoryCount, error)
	FindCountByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryCount, error)
	SaveCount(ctx context.Context, count *models.InventoryCount) error
	ListCountsByEvent(ctx context.Context, eventID uuid.UUID, occurrence *enums.OccurrenceType) ([]models.InventoryCount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEvent(ctx context.Context, event *models.InventoryEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) findEvent(ctx context.Context, id uuid.UUID, lock bool) (*models.InventoryEvent, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var event models.InventoryEvent
	if err := q.Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory event not found")
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindEventByID(ctx context.Context, id uuid.UUID) (*models.InventoryEvent, error) {
	return r.findEvent(ctx, id, false)
}

func (r *repository) FindEventByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryEvent, error) {
	return r.findEvent(ctx, id, true)
}

func (r *repository) UpdateEvent(ctx context.Context, event *models.InventoryEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *repository) FindCountByEventAndAsset(ctx context.Context, eventID, assetID uuid.UUID) (*models.InventoryCount, error) {
	var count models.InventoryCount
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND asset_id = ?", eventID, assetID).
		First(&count).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "count not found")
		}
		return nil, err
	}
	return &count, nil
}

func (r *repository) FindCountByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryCount, error) {
	var count models.InventoryCount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&count).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "count not found")
		}
		return nil, err
	}
	return &count, nil
}

func (r *repository) SaveCount(ctx context.Context, count *models.InventoryCount) error {
	if count.ID == uuid.Nil {
		count.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(count).Error
}

func (r *repository) ListCountsByEvent(ctx context.Context, eventID uuid.UUID, occurrence *enums.OccurrenceType) ([]models.InventoryCount, error) {
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if occurrence != nil {
		q = q.Where("occurrence_type = ?", *occurrence)
	}

	var counts []models.InventoryCount
	if err := q.Order("created_at ASC").Find(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

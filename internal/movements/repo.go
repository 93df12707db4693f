package movements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// Repository appends movement records and their evidence placeholders, and
// answers the active-inventory question for the service-level gate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateMovement(ctx context.Context, movement *models.Movement) error
	CreateEvidencePlaceholder(ctx context.Context, movementID uuid.UUID) error
	HasActiveInventoryEvent(ctx context.Context, unit enums.Unit) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a movements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.Movement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) CreateEvidencePlaceholder(ctx context.Context, movementID uuid.UUID) error {
	doc := &models.EvidenceDocument{
		ID:         uuid.New(),
		MovementID: movementID,
		Status:     enums.EvidenceStatusPending,
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

// HasActiveInventoryEvent reports whether an in-progress inventory event
// covers the given unit, either directly or via a whole-organization scope.
func (r *repository) HasActiveInventoryEvent(ctx context.Context, unit enums.Unit) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryEvent{}).
		Where("status = ?", enums.InventoryEventStatusInProgress).
		Where("scope_unit IS NULL OR scope_unit = ?", unit).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

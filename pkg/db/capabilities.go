package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/dfcarvalho/patrimonio-backend/pkg/db/models"
)

// Capabilities records optional schema features detected once at startup.
// Handlers receive the struct as plain configuration; nothing re-probes the
// schema per request.
type Capabilities struct {
	// HasStandardLocation is false on legacy databases migrated before the
	// curated location registry existed.
	HasStandardLocation bool
}

// DetectCapabilities probes the connected schema for optional columns.
func DetectCapabilities(ctx context.Context, conn *gorm.DB) Capabilities {
	migrator := conn.WithContext(ctx).Migrator()
	return Capabilities{
		HasStandardLocation: migrator.HasColumn(&models.Asset{}, "standard_location_id"),
	}
}

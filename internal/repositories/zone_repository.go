package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
)

// ZoneRepository persists the singleton monitored geofence. Get returns
// ErrNotFound while no zone has been configured; that is a normal state, not
// a fault.
type ZoneRepository interface {
	Get(ctx context.Context, tx *gorm.DB) (*models.GeofenceZone, error)

	// Set fully replaces the active zone. The singleton key means a new zone
	// always overwrites the prior one.
	Set(ctx context.Context, tx *gorm.DB, zone *models.GeofenceZone) error
}

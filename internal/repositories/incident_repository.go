package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
)

// IncidentRepository persists safety incident reports. Incidents are
// append-only; there is no update or delete.
type IncidentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, incident *models.SafetyIncident) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SafetyIncident, error)
	List(ctx context.Context, tx *gorm.DB, filters IncidentFilters) ([]*models.SafetyIncident, int64, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

type IncidentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewIncidentPostgreSQL(db *gorm.DB) repositories.IncidentRepository {
	return &IncidentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (i *IncidentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return i.db
}

func (i *IncidentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, incident *models.SafetyIncident) error {
	db := i.getDB(tx)

	if incident.ID == "" {
		incident.ID = uuid.New().String()
	}
	if err := db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("failed to create safety incident: %w", err)
	}
	return nil
}

func (i *IncidentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SafetyIncident, error) {
	db := i.getDB(tx)

	var incident models.SafetyIncident
	if err := db.WithContext(ctx).First(&incident, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get safety incident: %w", err)
	}
	return &incident, nil
}

func (i *IncidentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.IncidentFilters) ([]*models.SafetyIncident, int64, error) {
	db := i.getDB(tx)

	var incidents []*models.SafetyIncident
	var total int64

	query := db.WithContext(ctx).Model(&models.SafetyIncident{})
	query = i.helpers.ApplyIncidentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "reported_at"
	}
	query = i.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&incidents).Error; err != nil {
		return nil, 0, err
	}

	return incidents, total, nil
}

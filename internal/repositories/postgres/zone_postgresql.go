package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attendance-service/internal/cache"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

const zoneCacheKey = "active"

type ZonePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewZonePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ZoneRepository {
	return &ZonePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (z *ZonePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return z.db
}

func (z *ZonePostgreSQL) Get(ctx context.Context, tx *gorm.DB) (*models.GeofenceZone, error) {
	db := z.getDB(tx)

	var zone models.GeofenceZone
	err := z.cacheManager.Zone.CacheOrExecute(ctx, zoneCacheKey, &zone, cache.ZoneCacheConfig.TTL, func() (interface{}, error) {
		var dbZone models.GeofenceZone
		if err := db.WithContext(ctx).First(&dbZone, "id = ?", models.ZoneID).Error; err != nil {
			return nil, err
		}
		return &dbZone, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get geofence zone: %w", err)
	}

	return &zone, nil
}

// Set replaces the singleton zone. All columns are assigned on conflict: a new
// zone fully supersedes the prior one, unlike attendance writes.
func (z *ZonePostgreSQL) Set(ctx context.Context, tx *gorm.DB, zone *models.GeofenceZone) error {
	db := z.getDB(tx)

	zone.ID = models.ZoneID

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "radius_m", "updated_by", "updated_at"}),
		}).
		Create(zone).Error
	if err != nil {
		return fmt.Errorf("failed to set geofence zone: %w", err)
	}

	cache.SafeDelete(ctx, z.cacheManager.Zone, zoneCacheKey)
	return nil
}

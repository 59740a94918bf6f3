package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

type AttendancePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttendancePostgreSQL(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttendancePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Upsert performs the field-scoped merge write: INSERT, or on student-day key
// conflict UPDATE only the owned columns. The two attendance writers (manual
// endpoint, geofence consumer) interleave arbitrarily; because neither ever
// replaces the whole row, the record converges regardless of ordering.
func (a *AttendancePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord, ownedColumns []string) error {
	if record.ID == "" {
		record.ID = models.AttendanceRecordID(record.StudentID, record.Date)
	}
	if len(ownedColumns) == 0 {
		return fmt.Errorf("attendance upsert requires an owned column set")
	}

	db := a.getDB(tx)

	assignments := make([]string, 0, len(ownedColumns)+1)
	assignments = append(assignments, ownedColumns...)
	assignments = append(assignments, "updated_at")

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(assignments),
		}).
		Create(record).Error
}

func (a *AttendancePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AttendanceRecord, error) {
	db := a.getDB(tx)

	var record models.AttendanceRecord
	if err := db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return &record, nil
}

func (a *AttendancePostgreSQL) GetByStudentDate(ctx context.Context, tx *gorm.DB, studentID, date string) (*models.AttendanceRecord, error) {
	return a.GetByID(ctx, tx, models.AttendanceRecordID(studentID, date))
}

func (a *AttendancePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	db := a.getDB(tx)

	var records []*models.AttendanceRecord
	var total int64

	query := db.WithContext(ctx).Model(&models.AttendanceRecord{})
	query = a.helpers.ApplyAttendanceFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (a *AttendancePostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	filters.StudentID = &studentID
	return a.List(ctx, tx, filters)
}

func (a *AttendancePostgreSQL) DailyStats(ctx context.Context, tx *gorm.DB, date string) (*repositories.DailyAttendanceStats, error) {
	db := a.getDB(tx)

	stats := &repositories.DailyAttendanceStats{Date: date}

	type row struct {
		Status models.AttendanceStatus
		Count  int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Select("status, count(*) as count").
		Where("date = ?", date).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attendance stats: %w", err)
	}

	for _, r := range rows {
		switch r.Status {
		case models.AttendancePresent:
			stats.Present = r.Count
		case models.AttendanceAbsent:
			stats.Absent = r.Count
		case models.AttendanceLeave:
			stats.Leave = r.Count
		}
	}

	base := db.WithContext(ctx).Model(&models.AttendanceRecord{}).Where("date = ?", date)

	if err := base.Session(&gorm.Session{}).Where("check_out_at IS NOT NULL").Count(&stats.CheckedOut).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("marked_by = ?", models.MarkedBySystem).Count(&stats.SystemMarked).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("marked_by <> ?", models.MarkedBySystem).Count(&stats.ManualMarked).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
)

// Attendance column names usable in Upsert owned-column sets. Every writer
// must name exactly the columns it owns; the upsert never touches the rest.
const (
	AttendanceColStudentName = "student_name"
	AttendanceColStatus      = "status"
	AttendanceColCheckInAt   = "check_in_at"
	AttendanceColCheckOutAt  = "check_out_at"
	AttendanceColMarkedBy    = "marked_by"
	AttendanceColOrigin      = "origin"
)

// AttendanceRepository is the persisted per-student-per-day ledger. There is
// deliberately no Save/replace operation: both the manual and the geofence
// writer race on the same row with no cross-writer transaction, and the
// field-scoped Upsert is what makes the row converge under any interleaving.
type AttendanceRepository interface {
	// Upsert inserts record, or when a row with the same student-day key
	// already exists, updates only ownedColumns from record. updated_at is
	// always refreshed.
	Upsert(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord, ownedColumns []string) error

	// Read operations
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AttendanceRecord, error)
	GetByStudentDate(ctx context.Context, tx *gorm.DB, studentID, date string) (*models.AttendanceRecord, error)

	// List operations
	List(ctx context.Context, tx *gorm.DB, filters AttendanceFilters) ([]*models.AttendanceRecord, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttendanceFilters) ([]*models.AttendanceRecord, int64, error)

	// Statistics
	DailyStats(ctx context.Context, tx *gorm.DB, date string) (*DailyAttendanceStats, error)
}

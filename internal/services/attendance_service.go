package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

// Owned-column sets per writer. The enter and manual writers own the
// status/check-in side of the row; the exit writer owns check-out. No set
// contains the other side's columns, which is what lets the two execution
// contexts race on the same row and still converge.
var (
	enterOwnedColumns = []string{
		repositories.AttendanceColStudentName,
		repositories.AttendanceColStatus,
		repositories.AttendanceColCheckInAt,
		repositories.AttendanceColMarkedBy,
		repositories.AttendanceColOrigin,
	}

	exitOwnedColumns = []string{
		repositories.AttendanceColStudentName,
		repositories.AttendanceColCheckOutAt,
		repositories.AttendanceColOrigin,
	}

	// A manual correction never touches check_out_at, so marking a student
	// present after a geofence exit does not erase the recorded check-out.
	manualOwnedColumns = []string{
		repositories.AttendanceColStudentName,
		repositories.AttendanceColStatus,
		repositories.AttendanceColCheckInAt,
		repositories.AttendanceColMarkedBy,
		repositories.AttendanceColOrigin,
	}
)

type attendanceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	gate      *roleGate
	publisher events.EventPublisher

	// loc is the authoritative attendance timezone. Every writer derives
	// the day key through it, so the foreground and background paths can
	// never disagree about which calendar day a write belongs to.
	loc *time.Location
	now func() time.Time
}

func NewAttendanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher, loc *time.Location) AttendanceService {
	return &attendanceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		gate:      newRoleGate(repo, db, logger),
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *attendanceService) dayKey(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

func (s *attendanceService) Today() string {
	return s.dayKey(s.now())
}

// ===== GEOFENCE WRITER =====

func (s *attendanceService) UpsertGeofenceEvent(ctx context.Context, studentID, studentName string, kind events.CrossingKind, at time.Time) error {
	switch kind {
	case events.CrossingEnter:
		return s.applyEnter(ctx, studentID, studentName, at)
	case events.CrossingExit:
		return s.applyExit(ctx, studentID, studentName, at)
	default:
		return fmt.Errorf("unknown crossing kind %q", kind)
	}
}

func (s *attendanceService) applyEnter(ctx context.Context, studentID, studentName string, at time.Time) error {
	date := s.dayKey(at)
	record := &models.AttendanceRecord{
		StudentID:   studentID,
		StudentName: studentName,
		Date:        date,
		Status:      models.AttendancePresent,
		CheckInAt:   at,
		MarkedBy:    models.MarkedBySystem,
		Origin:      models.OriginEnter,
	}

	if err := s.repo.Attendance().Upsert(ctx, nil, record, enterOwnedColumns); err != nil {
		return fmt.Errorf("failed to upsert enter event: %w", err)
	}

	s.logger.Info("Geofence enter recorded",
		"student_id", studentID,
		"date", date,
		"check_in_at", at)

	s.publish(ctx, events.EventAttendanceRecorded, record)
	return nil
}

func (s *attendanceService) applyExit(ctx context.Context, studentID, studentName string, at time.Time) error {
	date := s.dayKey(at)

	// An exit before the paired enter's check-in is out of order; drop it
	// rather than record a check-out that predates the check-in.
	existing, err := s.repo.Attendance().GetByStudentDate(ctx, nil, studentID, date)
	if err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to load record for exit event: %w", err)
	}
	if existing != nil && !existing.CheckInAt.IsZero() && at.Before(existing.CheckInAt) {
		s.logger.Warn("Dropping exit event predating check-in",
			"student_id", studentID,
			"date", date,
			"check_in_at", existing.CheckInAt,
			"exit_at", at)
		return nil
	}

	checkOut := at
	record := &models.AttendanceRecord{
		StudentID:   studentID,
		StudentName: studentName,
		Date:        date,
		CheckOutAt:  &checkOut,
		Origin:      models.OriginExit,
	}

	if err := s.repo.Attendance().Upsert(ctx, nil, record, exitOwnedColumns); err != nil {
		return fmt.Errorf("failed to upsert exit event: %w", err)
	}

	s.logger.Info("Geofence exit recorded",
		"student_id", studentID,
		"date", date,
		"check_out_at", at)

	s.publish(ctx, events.EventAttendanceCheckedOut, record)
	return nil
}

// ===== MANUAL WRITER =====

func (s *attendanceService) MarkManually(ctx context.Context, req *MarkAttendanceRequest, actingFacultyID string) (*models.AttendanceRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.gate.RequireAttendanceWriter(ctx, actingFacultyID, req.StudentID); err != nil {
		return nil, err
	}

	now := s.now()
	date := s.dayKey(now)
	status := models.AttendanceStatus(req.Status)

	// Zero check-in is the "no check-in happened" sentinel for absent.
	checkIn := time.Time{}
	if status == models.AttendancePresent {
		checkIn = now
	}

	record := &models.AttendanceRecord{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		Date:        date,
		Status:      status,
		CheckInAt:   checkIn,
		MarkedBy:    actingFacultyID,
		Origin:      models.OriginManual,
	}

	if err := s.repo.Attendance().Upsert(ctx, nil, record, manualOwnedColumns); err != nil {
		return nil, fmt.Errorf("failed to upsert manual mark: %w", err)
	}

	s.logger.Info("Attendance marked manually",
		"student_id", req.StudentID,
		"date", date,
		"status", status,
		"marked_by", actingFacultyID)

	// Return the converged row, including fields the manual write does not
	// own (a same-day geofence check-out survives this mark).
	result, err := s.repo.Attendance().GetByStudentDate(ctx, nil, req.StudentID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load record after manual mark: %w", err)
	}

	s.publish(ctx, events.EventAttendanceManual, result)
	return result, nil
}

// ===== READS =====

func (s *attendanceService) GetRecord(ctx context.Context, studentID, date string, actorID string) (*models.AttendanceRecord, error) {
	if _, err := s.gate.RequireAttendanceReader(ctx, actorID, studentID); err != nil {
		return nil, err
	}

	record, err := s.repo.Attendance().GetByStudentDate(ctx, nil, studentID, date)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return record, nil
}

func (s *attendanceService) GetStudentHistory(ctx context.Context, studentID string, filters repositories.AttendanceFilters, actorID string) (*AttendanceListResponse, error) {
	if _, err := s.gate.RequireAttendanceReader(ctx, actorID, studentID); err != nil {
		return nil, err
	}

	normalizePagination(&filters.Limit, &filters.Offset)

	records, total, err := s.repo.Attendance().GetByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance history: %w", err)
	}

	return &AttendanceListResponse{
		Records: records,
		Total:   total,
		Page:    filters.Offset/filters.Limit + 1,
		Size:    filters.Limit,
	}, nil
}

func (s *attendanceService) List(ctx context.Context, filters repositories.AttendanceFilters, actorID string) (*AttendanceListResponse, error) {
	if _, err := s.gate.Require(ctx, actorID, OpReadAttendance); err != nil {
		return nil, err
	}

	normalizePagination(&filters.Limit, &filters.Offset)

	records, total, err := s.repo.Attendance().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}

	return &AttendanceListResponse{
		Records: records,
		Total:   total,
		Page:    filters.Offset/filters.Limit + 1,
		Size:    filters.Limit,
	}, nil
}

func (s *attendanceService) GetDailyStats(ctx context.Context, date string, actorID string) (*repositories.DailyAttendanceStats, error) {
	if _, err := s.gate.Require(ctx, actorID, OpReadAttendance); err != nil {
		return nil, err
	}

	if date == "" {
		date = s.Today()
	}

	stats, err := s.repo.Attendance().DailyStats(ctx, nil, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	return stats, nil
}

func (s *attendanceService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Error("Failed to publish attendance event", "error", err, "event_type", eventType)
	}
}

func normalizePagination(limit, offset *int) {
	if *limit < 1 || *limit > 100 {
		*limit = 20
	}
	if *offset < 0 {
		*offset = 0
	}
}

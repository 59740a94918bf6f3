package repositories

import (
	"time"

	"github.com/SAP-F-2025/attendance-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttendanceFilters struct {
	StudentID *string                  `json:"student_id"`
	Status    *models.AttendanceStatus `json:"status"`
	Origin    *models.AttendanceOrigin `json:"origin"`
	DateFrom  *string                  `json:"date_from"` // YYYY-MM-DD inclusive
	DateTo    *string                  `json:"date_to"`   // YYYY-MM-DD inclusive
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "date", "student_id", "created_at"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type IncidentFilters struct {
	StudentID  *string                  `json:"student_id"`
	ReportedBy *string                  `json:"reported_by"`
	Severity   *models.IncidentSeverity `json:"severity"`
	DateFrom   *time.Time               `json:"date_from"`
	DateTo     *time.Time               `json:"date_to"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	SortBy     string                   `json:"sort_by"`
	SortOrder  string                   `json:"sort_order"`
}

type StudentDetailsFilters struct {
	ParentID  *string `json:"parent_id"`
	FacultyID *string `json:"faculty_id"` // members of assigned_faculty_ids
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

// DailyAttendanceStats summarizes one calendar day of the ledger.
type DailyAttendanceStats struct {
	Date         string `json:"date"`
	Present      int64  `json:"present"`
	Absent       int64  `json:"absent"`
	Leave        int64  `json:"leave"`
	CheckedOut   int64  `json:"checked_out"`
	SystemMarked int64  `json:"system_marked"`
	ManualMarked int64  `json:"manual_marked"`
}

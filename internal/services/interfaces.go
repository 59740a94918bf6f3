package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/geofence"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type MarkAttendanceRequest = validator.MarkAttendanceRequest
type SetZoneRequest = validator.SetZoneRequest
type ReportIncidentRequest = validator.ReportIncidentRequest
type CreateStudentRequest = validator.CreateStudentRequest
type UpdateCaseHistoryRequest = validator.UpdateCaseHistoryRequest
type AssignFacultyRequest = validator.AssignFacultyRequest
type SetParentRequest = validator.SetParentRequest
type SessionLoginRequest = validator.SessionLoginRequest
type SessionLogoutRequest = validator.SessionLogoutRequest
type LocationPingRequest = validator.LocationPingRequest

type AttendanceListResponse struct {
	Records []*models.AttendanceRecord `json:"records"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	Size    int                        `json:"size"`
}

type IncidentListResponse struct {
	Incidents []*models.SafetyIncident `json:"incidents"`
	Total     int64                    `json:"total"`
	Page      int                      `json:"page"`
	Size      int                      `json:"size"`
}

type StudentResponse struct {
	*models.StudentDetails
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type StudentListResponse struct {
	Students []*StudentResponse `json:"students"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

type ZoneResponse struct {
	*models.GeofenceZone
	Monitoring bool `json:"monitoring"`
}

// ReconcileResult reports what the orphan-repair job found and fixed.
type ReconcileResult struct {
	Scanned  int      `json:"scanned"`
	Repaired []string `json:"repaired"`
}

// ===== SERVICE INTERFACES =====

type AttendanceService interface {
	// Writers. UpsertGeofenceEvent is the background path (attribution is
	// always the system); MarkManually is the faculty foreground path.
	UpsertGeofenceEvent(ctx context.Context, studentID, studentName string, kind events.CrossingKind, at time.Time) error
	MarkManually(ctx context.Context, req *MarkAttendanceRequest, actingFacultyID string) (*models.AttendanceRecord, error)

	// Reads, scoped by the role gate.
	GetRecord(ctx context.Context, studentID, date string, actorID string) (*models.AttendanceRecord, error)
	GetStudentHistory(ctx context.Context, studentID string, filters repositories.AttendanceFilters, actorID string) (*AttendanceListResponse, error)
	List(ctx context.Context, filters repositories.AttendanceFilters, actorID string) (*AttendanceListResponse, error)
	GetDailyStats(ctx context.Context, date string, actorID string) (*repositories.DailyAttendanceStats, error)

	// Today returns the service's current attendance date key.
	Today() string
}

type GeofenceService interface {
	GetZone(ctx context.Context, actorID string) (*ZoneResponse, error)
	SetZone(ctx context.Context, req *SetZoneRequest, actorID string) (*models.GeofenceZone, error)

	// ResolveRegion returns (nil, nil) while no zone is configured.
	ResolveRegion(ctx context.Context) (*geofence.Region, error)

	StartMonitoring(ctx context.Context, actorID string) error
	StopMonitoring(ctx context.Context, actorID string) error
	ProcessLocationPing(ctx context.Context, req *LocationPingRequest) error
	IsMonitoring() bool
}

type SessionService interface {
	// Login resolves the user's profile and, for students, binds the device
	// to the student identity so the background consumer can attribute
	// crossings. Any other role clears the device binding.
	Login(ctx context.Context, userID string, req *SessionLoginRequest) error
	Logout(ctx context.Context, userID string, req *SessionLogoutRequest) error
}

type StudentService interface {
	Create(ctx context.Context, req *CreateStudentRequest, actorID string) (*StudentResponse, error)
	GetByID(ctx context.Context, studentID string, actorID string) (*StudentResponse, error)
	List(ctx context.Context, filters repositories.StudentDetailsFilters, actorID string) (*StudentListResponse, error)
	GetChildren(ctx context.Context, parentID string) ([]*StudentResponse, error)

	UpdateCaseHistory(ctx context.Context, studentID string, req *UpdateCaseHistoryRequest, actorID string) error
	AssignFaculty(ctx context.Context, studentID string, req *AssignFacultyRequest, actorID string) error
	SetParent(ctx context.Context, studentID, parentID string, actorID string) error

	// ReconcileOrphans finds student identities with no details row (the
	// partial state a failed onboarding leaves behind) and creates the
	// missing rows.
	ReconcileOrphans(ctx context.Context, actorID string) (*ReconcileResult, error)
}

type IncidentService interface {
	Report(ctx context.Context, req *ReportIncidentRequest, reporterID string) (*models.SafetyIncident, error)
	GetByID(ctx context.Context, id string, actorID string) (*models.SafetyIncident, error)
	List(ctx context.Context, filters repositories.IncidentFilters, actorID string) (*IncidentListResponse, error)
}

type ExportService interface {
	// ExportAttendance renders the filtered ledger as an xlsx workbook.
	ExportAttendance(ctx context.Context, filters repositories.AttendanceFilters, actorID string) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Attendance() AttendanceService
	Geofence() GeofenceService
	Session() SessionService
	Student() StudentService
	Incident() IncidentService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

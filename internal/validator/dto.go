package validator

// MarkAttendanceRequest is the faculty manual-mark payload. The acting faculty
// is taken from the authenticated session, never from the body.
type MarkAttendanceRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required,max=200"`
	Status      string `json:"status" validate:"required,manual_status"`
}

// SetZoneRequest replaces the singleton geofence zone.
type SetZoneRequest struct {
	Latitude  float64 `json:"latitude" validate:"geo_latitude"`
	Longitude float64 `json:"longitude" validate:"geo_longitude"`
	RadiusM   float64 `json:"radius_m" validate:"required,zone_radius"`
}

// ReportIncidentRequest files a safety incident.
type ReportIncidentRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Severity    string `json:"severity" validate:"required,incident_severity"`
}

// CreateStudentRequest drives the multi-step student onboarding saga.
type CreateStudentRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	CaseHistory string `json:"case_history" validate:"max=10000"`
	ParentID    string `json:"parent_id"`
}

// UpdateCaseHistoryRequest edits the case-history text only; other student
// fields are not editable through this path.
type UpdateCaseHistoryRequest struct {
	CaseHistory string `json:"case_history" validate:"required,max=10000"`
}

// AssignFacultyRequest replaces the assigned-faculty set for a student.
type AssignFacultyRequest struct {
	FacultyIDs []string `json:"faculty_ids" validate:"required,dive,required"`
}

// SetParentRequest links a parent account to a student.
type SetParentRequest struct {
	ParentID string `json:"parent_id" validate:"required"`
}

// SessionLoginRequest syncs a fresh login into the identity cache.
type SessionLoginRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

// SessionLogoutRequest clears a device's cached identity.
type SessionLogoutRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

// LocationPingRequest is a device position sample fed to the geofence monitor.
type LocationPingRequest struct {
	DeviceID  string  `json:"device_id" validate:"required,max=255"`
	Latitude  float64 `json:"latitude" validate:"geo_latitude"`
	Longitude float64 `json:"longitude" validate:"geo_longitude"`
}

package services

import "errors"

// Service-level sentinel errors. Handlers map these onto HTTP statuses;
// the background consumer logs them and keeps running.
var (
	// ErrPermissionDenied covers both role-gate refusals and location
	// permission refusals. The gate fails closed.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrZoneNotConfigured means no geofence zone has been set yet. This is
	// a valid empty state for reads; for StartMonitoring it blocks startup.
	ErrZoneNotConfigured = errors.New("geofence zone not configured")

	// ErrIdentityMissing means a crossing arrived for a device with no
	// cached student identity. Background-only; never surfaced to a user.
	ErrIdentityMissing = errors.New("no cached identity for device")

	ErrRecordNotFound   = errors.New("attendance record not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrStudentExists    = errors.New("student details already exist")
	ErrUserNotFound     = errors.New("user not found")
	ErrIncidentNotFound = errors.New("incident not found")
)

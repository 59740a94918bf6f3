package repositories

import "context"

// Repository aggregates all sub-repository interfaces.
type Repository interface {
	// Attendance ledger
	Attendance() AttendanceRepository

	// Geofence zone (singleton)
	Zone() ZoneRepository

	// Student profiles (case history, parent link, faculty assignment)
	StudentDetails() StudentDetailsRepository

	// Safety incidents
	Incident() IncidentRepository

	// User domain (read-only; identity provider is the owner)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}

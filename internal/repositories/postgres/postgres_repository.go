package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/cache"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the Repository interface backed by
// PostgreSQL for domain data and Casdoor for the user directory.
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	attendanceRepo     repositories.AttendanceRepository
	zoneRepo           repositories.ZoneRepository
	studentDetailsRepo repositories.StudentDetailsRepository
	incidentRepo       repositories.IncidentRepository
	userRepo           repositories.UserRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
}

// NewPostgreSQLRepository creates a new PostgreSQL repository instance
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	repo.attendanceRepo = NewAttendancePostgreSQL(config.DB)
	repo.zoneRepo = NewZonePostgreSQL(config.DB, cacheManager)
	repo.studentDetailsRepo = NewStudentDetailsPostgreSQL(config.DB)
	repo.incidentRepo = NewIncidentPostgreSQL(config.DB)
	repo.userRepo = casdoor.NewUserCasdoor(config.CasdoorConfig, config.RedisClient)

	return repo
}

// ===== REPOSITORY INTERFACE IMPLEMENTATION =====

func (r *PostgreSQLRepository) Attendance() repositories.AttendanceRepository {
	return r.attendanceRepo
}

func (r *PostgreSQLRepository) Zone() repositories.ZoneRepository {
	return r.zoneRepo
}

func (r *PostgreSQLRepository) StudentDetails() repositories.StudentDetailsRepository {
	return r.studentDetailsRepo
}

func (r *PostgreSQLRepository) Incident() repositories.IncidentRepository {
	return r.incidentRepo
}

func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.userRepo
}

// WithTransaction executes fn inside a database transaction. The transactional
// repository shares the user repository, since Casdoor sits outside the
// database and cannot participate in the transaction.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,

			attendanceRepo:     NewAttendancePostgreSQL(tx),
			zoneRepo:           NewZonePostgreSQL(tx, r.cacheManager),
			studentDetailsRepo: NewStudentDetailsPostgreSQL(tx),
			incidentRepo:       NewIncidentPostgreSQL(tx),
			userRepo:           r.userRepo,
		}

		return fn(txRepo)
	})
}

// Ping checks connectivity to the database and, when configured, the cache.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache health check failed: %w", err)
		}
	}

	return nil
}

// Close closes the database and cache connections.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}

	return nil
}

// ===== REPOSITORY MANAGER =====

// PostgreSQLRepositoryManager manages the repository lifecycle
type PostgreSQLRepositoryManager struct {
	repository repositories.Repository
	config     RepositoryConfig
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &PostgreSQLRepositoryManager{
		config: config,
	}
}

// Initialize initializes the repository and verifies connectivity
func (m *PostgreSQLRepositoryManager) Initialize() error {
	m.repository = NewPostgreSQLRepository(m.config)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.repository.Ping(ctx); err != nil {
		return fmt.Errorf("repository initialization failed: %w", err)
	}

	return nil
}

// GetRepository returns the repository instance
func (m *PostgreSQLRepositoryManager) GetRepository() repositories.Repository {
	if m.repository == nil {
		panic("repository not initialized - call Initialize() first")
	}
	return m.repository
}

// HealthCheck performs a health check on all repositories
func (m *PostgreSQLRepositoryManager) HealthCheck(ctx context.Context) error {
	if m.repository == nil {
		return fmt.Errorf("repository not initialized")
	}
	return m.repository.Ping(ctx)
}

// Shutdown gracefully shuts down the repository connections
func (m *PostgreSQLRepositoryManager) Shutdown(ctx context.Context) error {
	if m.repository == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- m.repository.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("repository shutdown timed out: %w", ctx.Err())
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/attendance-service/internal/cache"
	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/geofence"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

// sessionService keeps the identity cache consistent with the active
// session on each device. The crossing consumer depends entirely on what
// this service writes; a stale binding would attribute crossings to the
// wrong student.
type sessionService struct {
	repo       repositories.Repository
	identities *cache.IdentityCache
	monitor    *geofence.Monitor
	logger     *slog.Logger
	validator  *validator.Validator
	publisher  events.EventPublisher
}

func NewSessionService(repo repositories.Repository, identities *cache.IdentityCache, monitor *geofence.Monitor, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) SessionService {
	return &sessionService{
		repo:       repo,
		identities: identities,
		monitor:    monitor,
		logger:     logger,
		validator:  v,
		publisher:  publisher,
	}
}

func (s *sessionService) Login(ctx context.Context, userID string, req *SessionLoginRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to resolve user profile: %w", err)
	}

	if user.Role == models.RoleStudent {
		identity := cache.CachedIdentity{
			StudentID:   user.ID,
			StudentName: user.FullName,
		}
		if err := s.identities.Put(ctx, req.DeviceID, identity); err != nil {
			return fmt.Errorf("failed to bind device identity: %w", err)
		}
		s.logger.Info("Device bound to student identity",
			"device_id", req.DeviceID,
			"student_id", user.ID)
	} else {
		// A non-student session on this device must not leave a prior
		// student binding behind.
		if err := s.identities.Clear(ctx, req.DeviceID); err != nil {
			return fmt.Errorf("failed to clear device identity: %w", err)
		}
		s.logger.Info("Device identity cleared on non-student login",
			"device_id", req.DeviceID,
			"role", user.Role)
	}

	s.publish(ctx, events.EventSessionLogin, map[string]string{
		"user_id":   user.ID,
		"role":      string(user.Role),
		"device_id": req.DeviceID,
	})
	return nil
}

func (s *sessionService) Logout(ctx context.Context, userID string, req *SessionLogoutRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Forget containment state before clearing the binding so a crossing
	// synthesized for this device after logout has no identity to land on.
	s.monitor.Forget(req.DeviceID)

	if err := s.identities.Clear(ctx, req.DeviceID); err != nil {
		return fmt.Errorf("failed to clear device identity: %w", err)
	}

	s.logger.Info("Device identity cleared on logout",
		"device_id", req.DeviceID,
		"user_id", userID)

	s.publish(ctx, events.EventSessionLogout, map[string]string{
		"user_id":   userID,
		"device_id": req.DeviceID,
	})
	return nil
}

func (s *sessionService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Error("Failed to publish session event", "error", err, "event_type", eventType)
	}
}

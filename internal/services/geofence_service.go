package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/geofence"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

type geofenceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	gate      *roleGate
	resolver  *geofence.Resolver
	monitor   *geofence.Monitor
	publisher events.EventPublisher
}

func NewGeofenceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, monitor *geofence.Monitor, publisher events.EventPublisher) GeofenceService {
	return &geofenceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		gate:      newRoleGate(repo, db, logger),
		resolver:  geofence.NewResolver(repo.Zone()),
		monitor:   monitor,
		publisher: publisher,
	}
}

func (s *geofenceService) GetZone(ctx context.Context, actorID string) (*ZoneResponse, error) {
	if _, err := s.gate.Require(ctx, actorID, OpReadZone); err != nil {
		return nil, err
	}

	zone, err := s.repo.Zone().Get(ctx, s.db)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrZoneNotConfigured
		}
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}

	return &ZoneResponse{
		GeofenceZone: zone,
		Monitoring:   s.monitor.IsMonitoring(),
	}, nil
}

func (s *geofenceService) SetZone(ctx context.Context, req *SetZoneRequest, actorID string) (*models.GeofenceZone, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.gate.Require(ctx, actorID, OpSetZone); err != nil {
		return nil, err
	}

	zone := &models.GeofenceZone{
		ID:        models.ZoneID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusM:   req.RadiusM,
		UpdatedBy: actorID,
	}

	if err := s.repo.Zone().Set(ctx, s.db, zone); err != nil {
		return nil, fmt.Errorf("failed to set zone: %w", err)
	}

	s.logger.Info("Geofence zone replaced",
		"latitude", zone.Latitude,
		"longitude", zone.Longitude,
		"radius_m", zone.RadiusM,
		"updated_by", actorID)

	// A running monitor must track the new boundary immediately.
	if s.monitor.IsMonitoring() {
		region, err := s.resolver.Resolve(ctx)
		if err != nil {
			s.logger.Error("Failed to re-resolve region after zone change", "error", err)
		} else if region != nil {
			if err := s.monitor.Start(ctx, region); err != nil {
				s.logger.Error("Failed to restart monitor on new zone", "error", err)
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEvent(events.EventZoneUpdated, zone)); err != nil {
			s.logger.Error("Failed to publish zone update event", "error", err)
		}
	}

	return zone, nil
}

func (s *geofenceService) ResolveRegion(ctx context.Context) (*geofence.Region, error) {
	return s.resolver.Resolve(ctx)
}

func (s *geofenceService) StartMonitoring(ctx context.Context, actorID string) error {
	if _, err := s.gate.Require(ctx, actorID, OpControlMonitor); err != nil {
		return err
	}

	region, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if region == nil {
		return ErrZoneNotConfigured
	}

	if err := s.monitor.Start(ctx, region); err != nil {
		if errors.Is(err, geofence.ErrLocationNotPermitted) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
		}
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	return nil
}

func (s *geofenceService) StopMonitoring(ctx context.Context, actorID string) error {
	if _, err := s.gate.Require(ctx, actorID, OpControlMonitor); err != nil {
		return err
	}

	s.monitor.Stop()
	return nil
}

func (s *geofenceService) ProcessLocationPing(ctx context.Context, req *LocationPingRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return s.monitor.ProcessLocation(ctx, req.DeviceID, req.Latitude, req.Longitude)
}

func (s *geofenceService) IsMonitoring() bool {
	return s.monitor.IsMonitoring()
}

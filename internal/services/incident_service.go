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

type incidentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	gate      *roleGate
	publisher events.EventPublisher
}

func NewIncidentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) IncidentService {
	return &incidentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		gate:      newRoleGate(repo, db, logger),
		publisher: publisher,
	}
}

func (s *incidentService) Report(ctx context.Context, req *ReportIncidentRequest, reporterID string) (*models.SafetyIncident, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.gate.Require(ctx, reporterID, OpReportIncident); err != nil {
		return nil, err
	}

	incident := &models.SafetyIncident{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		ReportedBy:  reporterID,
		ReportedAt:  time.Now(),
		Description: req.Description,
		Severity:    models.IncidentSeverity(req.Severity),
	}

	if err := s.repo.Incident().Create(ctx, s.db, incident); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	s.logger.Info("Safety incident filed",
		"incident_id", incident.ID,
		"student_id", incident.StudentID,
		"severity", incident.Severity,
		"reported_by", reporterID)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEvent(events.EventIncidentReported, incident)); err != nil {
			s.logger.Error("Failed to publish incident event", "error", err)
		}
	}

	return incident, nil
}

func (s *incidentService) GetByID(ctx context.Context, id string, actorID string) (*models.SafetyIncident, error) {
	incident, err := s.repo.Incident().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	// Reporters may read their own filings; everyone else needs the
	// management-wide read.
	if incident.ReportedBy != actorID {
		if _, err := s.gate.Require(ctx, actorID, OpReadIncidents); err != nil {
			return nil, err
		}
	}

	return incident, nil
}

func (s *incidentService) List(ctx context.Context, filters repositories.IncidentFilters, actorID string) (*IncidentListResponse, error) {
	if _, err := s.gate.Require(ctx, actorID, OpReadIncidents); err != nil {
		return nil, err
	}

	normalizePagination(&filters.Limit, &filters.Offset)

	incidents, total, err := s.repo.Incident().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}

	return &IncidentListResponse{
		Incidents: incidents,
		Total:     total,
		Page:      filters.Offset/filters.Limit + 1,
		Size:      filters.Limit,
	}, nil
}

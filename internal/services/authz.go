package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

// Operation names a gated action. The gate is evaluated at the service
// layer, not only in routing, so reaching the store through any handler
// still goes through it.
type Operation string

const (
	OpSetZone        Operation = "zone.set"
	OpReadZone       Operation = "zone.read"
	OpControlMonitor Operation = "monitor.control"
	OpManageStudents Operation = "students.manage"
	OpReadStudents   Operation = "students.read_all"
	OpMarkAttendance Operation = "attendance.mark"
	OpReadAttendance Operation = "attendance.read_all"
	OpExportReports  Operation = "reports.export"
	OpReportIncident Operation = "incidents.report"
	OpReadIncidents  Operation = "incidents.read_all"
)

// policy maps each operation to the roles allowed to perform it.
// Ownership scoping (teacher assigned-set, student self, parent child) is
// enforced separately by the scoped check methods.
var policy = map[Operation][]models.UserRole{
	OpSetZone:        {models.RoleManagement},
	OpReadZone:       {models.RoleStudent, models.RoleTeacher, models.RoleParent, models.RoleManagement},
	OpControlMonitor: {models.RoleManagement},
	OpManageStudents: {models.RoleManagement},
	OpReadStudents:   {models.RoleManagement},
	OpMarkAttendance: {models.RoleTeacher, models.RoleManagement},
	OpReadAttendance: {models.RoleManagement},
	OpExportReports:  {models.RoleManagement},
	OpReportIncident: {models.RoleTeacher, models.RoleManagement},
	OpReadIncidents:  {models.RoleManagement},
}

// roleGate resolves the acting user and checks the policy table.
// Violations fail closed with ErrPermissionDenied.
type roleGate struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func newRoleGate(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) *roleGate {
	return &roleGate{repo: repo, db: db, logger: logger}
}

// Require resolves the actor and verifies their role may perform op.
func (g *roleGate) Require(ctx context.Context, actorID string, op Operation) (*models.User, error) {
	actor, err := g.resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	allowed, ok := policy[op]
	if !ok {
		g.logger.Error("Unknown operation in role gate", "operation", op)
		return nil, ErrPermissionDenied
	}

	for _, role := range allowed {
		if actor.Role == role {
			return actor, nil
		}
	}

	g.logger.Warn("Role gate refusal",
		"operation", op,
		"actor_id", actorID,
		"role", actor.Role)
	return nil, ErrPermissionDenied
}

// RequireAttendanceWriter checks the manual-mark policy: teachers and
// management may write, and teachers only for students in their assigned
// set.
func (g *roleGate) RequireAttendanceWriter(ctx context.Context, actorID, studentID string) (*models.User, error) {
	actor, err := g.Require(ctx, actorID, OpMarkAttendance)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleManagement {
		return actor, nil
	}

	details, err := g.repo.StudentDetails().GetByID(ctx, g.db, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student details: %w", err)
	}

	if !details.HasAssignedFaculty(actorID) {
		g.logger.Warn("Teacher marking non-assigned student refused",
			"actor_id", actorID,
			"student_id", studentID)
		return nil, ErrPermissionDenied
	}

	return actor, nil
}

// RequireAttendanceReader checks who may read one student's attendance:
// management, the student themselves, their linked parent, or an assigned
// teacher.
func (g *roleGate) RequireAttendanceReader(ctx context.Context, actorID, studentID string) (*models.User, error) {
	actor, err := g.resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleManagement:
		return actor, nil

	case models.RoleStudent:
		if actorID == studentID {
			return actor, nil
		}

	case models.RoleParent, models.RoleTeacher:
		details, err := g.repo.StudentDetails().GetByID(ctx, g.db, studentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrStudentNotFound
			}
			return nil, fmt.Errorf("failed to load student details: %w", err)
		}
		if actor.Role == models.RoleParent && details.ParentID == actorID {
			return actor, nil
		}
		if actor.Role == models.RoleTeacher && details.HasAssignedFaculty(actorID) {
			return actor, nil
		}
	}

	g.logger.Warn("Attendance read refused",
		"actor_id", actorID,
		"student_id", studentID,
		"role", actor.Role)
	return nil, ErrPermissionDenied
}

func (g *roleGate) resolve(ctx context.Context, actorID string) (*models.User, error) {
	if actorID == "" {
		return nil, ErrPermissionDenied
	}

	actor, err := g.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("failed to resolve acting user: %w", err)
	}

	return actor, nil
}

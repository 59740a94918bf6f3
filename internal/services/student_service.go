package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

type studentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	gate      *roleGate
	publisher events.EventPublisher
}

func NewStudentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) StudentService {
	return &studentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		gate:      newRoleGate(repo, db, logger),
		publisher: publisher,
	}
}

// Create onboards a student. The identity already lives in the identity
// provider; this creates the school-owned details row and optionally links
// a parent. The steps are not atomic as a group: a failure after the
// details row is committed is reported as one aggregate error and the
// committed steps stay in place for ReconcileOrphans or a retry to finish.
func (s *studentService) Create(ctx context.Context, req *CreateStudentRequest, actorID string) (*StudentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.gate.Require(ctx, actorID, OpManageStudents); err != nil {
		return nil, err
	}

	// Step 1: the identity must exist and be a student.
	user, err := s.repo.User().GetByID(ctx, req.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to resolve student identity: %w", err)
	}
	if user.Role != models.RoleStudent {
		return nil, fmt.Errorf("%w: user %s is not a student", ErrStudentNotFound, req.StudentID)
	}

	exists, err := s.repo.StudentDetails().ExistsByID(ctx, s.db, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student details: %w", err)
	}
	if exists {
		return nil, ErrStudentExists
	}

	// Step 2: create the details row.
	details := &models.StudentDetails{
		StudentID:   req.StudentID,
		CaseHistory: req.CaseHistory,
	}
	if err := s.repo.StudentDetails().Create(ctx, s.db, details); err != nil {
		return nil, fmt.Errorf("failed to create student details: %w", err)
	}

	var stepErrs []error

	// Step 3: link the parent, when given.
	if req.ParentID != "" {
		if err := s.linkParent(ctx, req.StudentID, req.ParentID); err != nil {
			stepErrs = append(stepErrs, err)
		} else {
			details.ParentID = req.ParentID
		}
	}

	if len(stepErrs) > 0 {
		// The details row is committed; report the remaining failures as
		// one aggregate so the admin flow can retry the missing steps.
		return nil, fmt.Errorf("student %s partially created: %w", req.StudentID, errors.Join(stepErrs...))
	}

	s.logger.Info("Student onboarded",
		"student_id", req.StudentID,
		"parent_id", req.ParentID,
		"created_by", actorID)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEvent(events.EventStudentCreated, details)); err != nil {
			s.logger.Error("Failed to publish student created event", "error", err)
		}
	}

	return &StudentResponse{
		StudentDetails: details,
		FullName:       user.FullName,
		Email:          user.Email,
	}, nil
}

func (s *studentService) linkParent(ctx context.Context, studentID, parentID string) error {
	isParent, err := s.repo.User().HasRole(ctx, parentID, models.RoleParent)
	if err != nil {
		return fmt.Errorf("failed to verify parent %s: %w", parentID, err)
	}
	if !isParent {
		return fmt.Errorf("user %s does not have the parent role", parentID)
	}

	if err := s.repo.StudentDetails().SetParent(ctx, s.db, studentID, parentID); err != nil {
		return fmt.Errorf("failed to link parent %s: %w", parentID, err)
	}
	return nil
}

func (s *studentService) GetByID(ctx context.Context, studentID string, actorID string) (*StudentResponse, error) {
	// Same audience as attendance reads: management, the student, the
	// linked parent, or an assigned teacher.
	if _, err := s.gate.RequireAttendanceReader(ctx, actorID, studentID); err != nil {
		return nil, err
	}

	details, err := s.repo.StudentDetails().GetByID(ctx, s.db, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student details: %w", err)
	}

	resp := &StudentResponse{StudentDetails: details}
	if user, err := s.repo.User().GetByID(ctx, studentID); err == nil {
		resp.FullName = user.FullName
		resp.Email = user.Email
	}

	return resp, nil
}

func (s *studentService) List(ctx context.Context, filters repositories.StudentDetailsFilters, actorID string) (*StudentListResponse, error) {
	if _, err := s.gate.Require(ctx, actorID, OpReadStudents); err != nil {
		return nil, err
	}

	normalizePagination(&filters.Limit, &filters.Offset)

	students, total, err := s.repo.StudentDetails().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	return &StudentListResponse{
		Students: s.decorate(ctx, students),
		Total:    total,
		Page:     filters.Offset/filters.Limit + 1,
		Size:     filters.Limit,
	}, nil
}

func (s *studentService) GetChildren(ctx context.Context, parentID string) ([]*StudentResponse, error) {
	actor, err := s.gate.resolve(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleParent && actor.Role != models.RoleManagement {
		return nil, ErrPermissionDenied
	}

	children, err := s.repo.StudentDetails().GetByParent(ctx, s.db, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}

	return s.decorate(ctx, children), nil
}

func (s *studentService) UpdateCaseHistory(ctx context.Context, studentID string, req *UpdateCaseHistoryRequest, actorID string) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.gate.Require(ctx, actorID, OpManageStudents); err != nil {
		return err
	}

	if err := s.repo.StudentDetails().UpdateCaseHistory(ctx, s.db, studentID, req.CaseHistory); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to update case history: %w", err)
	}

	s.logger.Info("Case history updated", "student_id", studentID, "updated_by", actorID)
	return nil
}

func (s *studentService) AssignFaculty(ctx context.Context, studentID string, req *AssignFacultyRequest, actorID string) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.gate.Require(ctx, actorID, OpManageStudents); err != nil {
		return err
	}

	for _, facultyID := range req.FacultyIDs {
		isTeacher, err := s.repo.User().HasRole(ctx, facultyID, models.RoleTeacher)
		if err != nil {
			return fmt.Errorf("failed to verify faculty %s: %w", facultyID, err)
		}
		if !isTeacher {
			return fmt.Errorf("user %s does not have the teacher role", facultyID)
		}
	}

	if err := s.repo.StudentDetails().SetAssignedFaculty(ctx, s.db, studentID, req.FacultyIDs); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to assign faculty: %w", err)
	}

	s.logger.Info("Faculty assignment replaced",
		"student_id", studentID,
		"faculty_count", len(req.FacultyIDs),
		"updated_by", actorID)
	return nil
}

func (s *studentService) SetParent(ctx context.Context, studentID, parentID string, actorID string) error {
	if _, err := s.gate.Require(ctx, actorID, OpManageStudents); err != nil {
		return err
	}

	if err := s.linkParent(ctx, studentID, parentID); err != nil {
		return err
	}

	s.logger.Info("Parent linked", "student_id", studentID, "parent_id", parentID)
	return nil
}

// ReconcileOrphans walks all student identities and creates missing
// details rows. This is the repair half of the non-atomic onboarding:
// an identity with no details row stays invisible to faculty until a row
// exists.
func (s *studentService) ReconcileOrphans(ctx context.Context, actorID string) (*ReconcileResult, error) {
	if _, err := s.gate.Require(ctx, actorID, OpManageStudents); err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	filters := repositories.UserFilters{Limit: 200}

	for {
		students, _, err := s.repo.User().ListByRole(ctx, models.RoleStudent, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list student identities: %w", err)
		}
		if len(students) == 0 {
			break
		}

		for _, student := range students {
			result.Scanned++

			exists, err := s.repo.StudentDetails().ExistsByID(ctx, s.db, student.ID)
			if err != nil {
				s.logger.Error("Reconcile check failed", "error", err, "student_id", student.ID)
				continue
			}
			if exists {
				continue
			}

			details := &models.StudentDetails{StudentID: student.ID}
			if err := s.repo.StudentDetails().Create(ctx, s.db, details); err != nil {
				s.logger.Error("Reconcile repair failed", "error", err, "student_id", student.ID)
				continue
			}

			s.logger.Info("Repaired orphaned student identity", "student_id", student.ID)
			result.Repaired = append(result.Repaired, student.ID)
		}

		if len(students) < filters.Limit {
			break
		}
		filters.Offset += filters.Limit
	}

	return result, nil
}

func (s *studentService) decorate(ctx context.Context, students []*models.StudentDetails) []*StudentResponse {
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.StudentID)
	}

	names := make(map[string]*models.User, len(ids))
	if users, err := s.repo.User().GetByIDs(ctx, ids); err == nil {
		for _, u := range users {
			names[u.ID] = u
		}
	} else {
		s.logger.Warn("Failed to resolve student names", "error", err)
	}

	out := make([]*StudentResponse, 0, len(students))
	for _, st := range students {
		resp := &StudentResponse{StudentDetails: st}
		if u, ok := names[st.StudentID]; ok {
			resp.FullName = u.FullName
			resp.Email = u.Email
		}
		out = append(out, resp)
	}
	return out
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

func newTestStudentService(t *testing.T, repo *mockRepository) StudentService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewStudentService(repo, nil, logger, validator.New(), events.NewMockEventPublisher(logger))
}

func TestStudentService_Create(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	repo.users.add("student-3", "Chi Mai", models.RoleStudent)
	svc := newTestStudentService(t, repo)
	ctx := context.Background()

	t.Run("Management_Onboards_Student", func(t *testing.T) {
		resp, err := svc.Create(ctx, &CreateStudentRequest{
			StudentID:   "student-3",
			CaseHistory: "peanut allergy",
			ParentID:    "parent-1",
		}, "mgmt-1")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if resp.ParentID != "parent-1" {
			t.Errorf("Expected linked parent, got %q", resp.ParentID)
		}
		if resp.FullName != "Chi Mai" {
			t.Errorf("Expected resolved name, got %q", resp.FullName)
		}
	})

	t.Run("Duplicate_Rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateStudentRequest{StudentID: "student-3"}, "mgmt-1")
		if !errors.Is(err, ErrStudentExists) {
			t.Fatalf("Expected ErrStudentExists, got %v", err)
		}
	})

	t.Run("Teacher_Denied", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateStudentRequest{StudentID: "student-3"}, "teacher-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("NonStudent_Identity_Rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateStudentRequest{StudentID: "teacher-1"}, "mgmt-1")
		if !errors.Is(err, ErrStudentNotFound) {
			t.Fatalf("Expected ErrStudentNotFound, got %v", err)
		}
	})
}

func TestStudentService_PartialCreateReportsAggregate(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	repo.users.add("student-4", "Duy Khang", models.RoleStudent)
	svc := newTestStudentService(t, repo)
	ctx := context.Background()

	// Linking a non-parent fails after the details row is committed.
	_, err := svc.Create(ctx, &CreateStudentRequest{
		StudentID: "student-4",
		ParentID:  "teacher-1",
	}, "mgmt-1")
	if err == nil {
		t.Fatal("Expected aggregate error for failed parent link")
	}

	// The committed step stays in place; no rollback.
	exists, checkErr := repo.students.ExistsByID(ctx, nil, "student-4")
	if checkErr != nil {
		t.Fatalf("Exists check failed: %v", checkErr)
	}
	if !exists {
		t.Error("Details row should survive the partial failure")
	}
}

func TestStudentService_ReconcileOrphans(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	// Two identities exist with no details row.
	repo.users.add("student-5", "Gia Bao", models.RoleStudent)
	repo.users.add("student-6", "Hong Phuc", models.RoleStudent)
	svc := newTestStudentService(t, repo)
	ctx := context.Background()

	t.Run("Teacher_Denied", func(t *testing.T) {
		_, err := svc.ReconcileOrphans(ctx, "teacher-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("Repairs_Missing_Rows", func(t *testing.T) {
		result, err := svc.ReconcileOrphans(ctx, "mgmt-1")
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if len(result.Repaired) != 2 {
			t.Fatalf("Expected 2 repairs, got %d (%v)", len(result.Repaired), result.Repaired)
		}
		for _, id := range []string{"student-5", "student-6"} {
			exists, err := repo.students.ExistsByID(ctx, nil, id)
			if err != nil || !exists {
				t.Errorf("Expected repaired details row for %s", id)
			}
		}
	})

	t.Run("Second_Run_Finds_Nothing", func(t *testing.T) {
		result, err := svc.ReconcileOrphans(ctx, "mgmt-1")
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if len(result.Repaired) != 0 {
			t.Errorf("Expected no repairs on second run, got %v", result.Repaired)
		}
	})
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

func newTestAttendanceService(t *testing.T, repo *mockRepository) *attendanceService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return &attendanceService{
		repo:      repo,
		logger:    logger,
		validator: validator.New(),
		gate:      newRoleGate(repo, nil, logger),
		publisher: events.NewMockEventPublisher(logger),
		loc:       time.UTC,
		now:       time.Now,
	}
}

func seedSchool(repo *mockRepository) {
	repo.users.add("teacher-1", "Thu Ha", models.RoleTeacher)
	repo.users.add("teacher-2", "Minh Duc", models.RoleTeacher)
	repo.users.add("mgmt-1", "Lan Anh", models.RoleManagement)
	repo.users.add("parent-1", "Van Nam", models.RoleParent)
	repo.users.add("student-1", "Alice Nguyen", models.RoleStudent)
	repo.users.add("student-2", "Bao Tran", models.RoleStudent)

	repo.students.details["student-1"] = &models.StudentDetails{
		StudentID:          "student-1",
		ParentID:           "parent-1",
		AssignedFacultyIDs: []string{"teacher-1"},
	}
	repo.students.details["student-2"] = &models.StudentDetails{
		StudentID:          "student-2",
		AssignedFacultyIDs: []string{"teacher-2"},
	}
}

func TestAttendanceService_EnterThenExit(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	t2 := t1.Add(8 * time.Hour)

	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, t1); err != nil {
		t.Fatalf("Enter event failed: %v", err)
	}
	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingExit, t2); err != nil {
		t.Fatalf("Exit event failed: %v", err)
	}

	record, err := repo.attendance.GetByStudentDate(ctx, nil, "student-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}

	if record.Status != models.AttendancePresent {
		t.Errorf("Expected status present, got %s", record.Status)
	}
	if !record.CheckInAt.Equal(t1) {
		t.Errorf("Expected check-in %v, got %v", t1, record.CheckInAt)
	}
	if record.CheckOutAt == nil || !record.CheckOutAt.Equal(t2) {
		t.Errorf("Expected check-out %v, got %v", t2, record.CheckOutAt)
	}
	if record.Origin != models.OriginExit {
		t.Errorf("Expected origin exit, got %s", record.Origin)
	}
	if record.MarkedBy != models.MarkedBySystem {
		t.Errorf("Expected system attribution, got %s", record.MarkedBy)
	}

	// One record per student-day, regardless of how many events landed.
	if n := repo.attendance.count("student-1", "2026-03-02"); n != 1 {
		t.Errorf("Expected exactly 1 record, got %d", n)
	}
}

func TestAttendanceService_IdempotentReplay(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)

	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, t1); err != nil {
		t.Fatalf("Enter event failed: %v", err)
	}
	first, err := repo.attendance.GetByStudentDate(ctx, nil, "student-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}

	// Same event delivered again.
	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, t1); err != nil {
		t.Fatalf("Replayed enter event failed: %v", err)
	}
	second, err := repo.attendance.GetByStudentDate(ctx, nil, "student-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}

	if second.Status != first.Status ||
		!second.CheckInAt.Equal(first.CheckInAt) ||
		second.Origin != first.Origin ||
		second.MarkedBy != first.MarkedBy {
		t.Errorf("Replay changed the record:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if n := repo.attendance.count("student-1", "2026-03-02"); n != 1 {
		t.Errorf("Expected exactly 1 record after replay, got %d", n)
	}
}

func TestAttendanceService_MergeSafety(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	t2 := t1.Add(6 * time.Hour)
	t3 := t2.Add(30 * time.Minute)
	svc.now = func() time.Time { return t3 }

	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, t1); err != nil {
		t.Fatalf("Enter event failed: %v", err)
	}
	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingExit, t2); err != nil {
		t.Fatalf("Exit event failed: %v", err)
	}

	// A manual correction after the geofence check-out must not erase it.
	record, err := svc.MarkManually(ctx, &MarkAttendanceRequest{
		StudentID:   "student-1",
		StudentName: "Alice Nguyen",
		Status:      "present",
	}, "teacher-1")
	if err != nil {
		t.Fatalf("Manual mark failed: %v", err)
	}

	if record.CheckOutAt == nil || !record.CheckOutAt.Equal(t2) {
		t.Errorf("Manual mark erased check-out: got %v, want %v", record.CheckOutAt, t2)
	}
	if record.MarkedBy != "teacher-1" {
		t.Errorf("Expected faculty attribution, got %s", record.MarkedBy)
	}
	if record.Origin != models.OriginManual {
		t.Errorf("Expected origin manual, got %s", record.Origin)
	}
	if !record.CheckInAt.Equal(t3) {
		t.Errorf("Expected manual check-in %v, got %v", t3, record.CheckInAt)
	}
}

func TestAttendanceService_ManualAbsent(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	record, err := svc.MarkManually(ctx, &MarkAttendanceRequest{
		StudentID:   "student-1",
		StudentName: "Alice Nguyen",
		Status:      "absent",
	}, "teacher-1")
	if err != nil {
		t.Fatalf("Manual absent mark failed: %v", err)
	}

	if record.Status != models.AttendanceAbsent {
		t.Errorf("Expected status absent, got %s", record.Status)
	}
	if !record.CheckInAt.IsZero() {
		t.Errorf("Expected zero check-in sentinel, got %v", record.CheckInAt)
	}
	if record.CheckOutAt != nil {
		t.Errorf("Expected nil check-out, got %v", record.CheckOutAt)
	}
	if record.MarkedBy != "teacher-1" {
		t.Errorf("Expected faculty attribution, got %s", record.MarkedBy)
	}
	if record.Origin != models.OriginManual {
		t.Errorf("Expected origin manual, got %s", record.Origin)
	}
}

func TestAttendanceService_OutOfOrderExitDropped(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)

	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, t1); err != nil {
		t.Fatalf("Enter event failed: %v", err)
	}
	// An exit stamped before the check-in is stale; it must not land.
	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingExit, t1.Add(-time.Hour)); err != nil {
		t.Fatalf("Stale exit should be dropped, not fail: %v", err)
	}

	record, err := repo.attendance.GetByStudentDate(ctx, nil, "student-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if record.CheckOutAt != nil {
		t.Errorf("Stale exit wrote a check-out: %v", record.CheckOutAt)
	}
}

func TestAttendanceService_RoleEnforcement(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	req := &MarkAttendanceRequest{
		StudentID:   "student-2",
		StudentName: "Bao Tran",
		Status:      "present",
	}

	t.Run("Teacher_NonAssigned_Student_Denied", func(t *testing.T) {
		_, err := svc.MarkManually(ctx, req, "teacher-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("Assigned_Teacher_Allowed", func(t *testing.T) {
		if _, err := svc.MarkManually(ctx, req, "teacher-2"); err != nil {
			t.Fatalf("Assigned teacher should be allowed: %v", err)
		}
	})

	t.Run("Management_Allowed_Without_Assignment", func(t *testing.T) {
		if _, err := svc.MarkManually(ctx, req, "mgmt-1"); err != nil {
			t.Fatalf("Management should be allowed: %v", err)
		}
	})

	t.Run("Student_Denied", func(t *testing.T) {
		_, err := svc.MarkManually(ctx, req, "student-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
	})
}

func TestAttendanceService_ReadScoping(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, t1); err != nil {
		t.Fatalf("Enter event failed: %v", err)
	}

	cases := []struct {
		name    string
		actorID string
		wantErr error
	}{
		{"Student_Reads_Self", "student-1", nil},
		{"Parent_Reads_Linked_Child", "parent-1", nil},
		{"Assigned_Teacher_Reads", "teacher-1", nil},
		{"Management_Reads", "mgmt-1", nil},
		{"Other_Student_Denied", "student-2", ErrPermissionDenied},
		{"Non_Assigned_Teacher_Denied", "teacher-2", ErrPermissionDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetRecord(ctx, "student-1", "2026-03-02", tc.actorID)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Expected read to succeed, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAttendanceService_DayKeyUsesConfiguredTimezone(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc := newTestAttendanceService(t, repo)
	ctx := context.Background()

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Skipf("Timezone database unavailable: %v", err)
	}
	svc.loc = loc

	// 23:30 UTC on March 1 is already March 2 in the attendance timezone.
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	if err := svc.UpsertGeofenceEvent(ctx, "student-1", "Alice Nguyen", events.CrossingEnter, at); err != nil {
		t.Fatalf("Enter event failed: %v", err)
	}

	if _, err := repo.attendance.GetByStudentDate(ctx, nil, "student-1", "2026-03-02"); err != nil {
		t.Errorf("Record keyed by wrong day: %v", err)
	}
}

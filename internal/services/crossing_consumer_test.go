package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/attendance-service/internal/cache"
	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

func TestCrossingConsumer(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	identities := newTestIdentities(t)
	attendance := newTestAttendanceService(t, repo)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewCrossingBus(logger)
	defer bus.Close()

	consumer := NewCrossingConsumer(bus, identities, attendance, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	waitForRecord := func(t *testing.T, studentID, date string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			if _, err := repo.attendance.GetByStudentDate(ctx, nil, studentID, date); err == nil {
				return
			}
			select {
			case <-deadline:
				t.Fatalf("No record appeared for %s on %s", studentID, date)
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	t.Run("Crossing_With_Bound_Identity_Writes_Record", func(t *testing.T) {
		if err := identities.Put(ctx, "device-1", cache.CachedIdentity{
			StudentID:   "student-1",
			StudentName: "Alice Nguyen",
		}); err != nil {
			t.Fatalf("Failed to bind identity: %v", err)
		}

		at := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
		if err := bus.Publish(ctx, events.CrossingEvent{
			DeviceID:   "device-1",
			Kind:       events.CrossingEnter,
			OccurredAt: at,
		}); err != nil {
			t.Fatalf("Failed to publish crossing: %v", err)
		}

		waitForRecord(t, "student-1", "2026-03-02")
	})

	t.Run("Crossing_Without_Identity_Is_Dropped", func(t *testing.T) {
		at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
		if err := bus.Publish(ctx, events.CrossingEvent{
			DeviceID:   "unbound-device",
			Kind:       events.CrossingEnter,
			OccurredAt: at,
		}); err != nil {
			t.Fatalf("Failed to publish crossing: %v", err)
		}

		// Give the consumer time to process; no record may appear and
		// the consumer must still be alive.
		time.Sleep(100 * time.Millisecond)

		records, _, err := repo.attendance.List(ctx, nil, repositories.AttendanceFilters{})
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		for _, r := range records {
			if r.StudentID != "student-1" {
				t.Errorf("Unexpected record from unattributed crossing: %+v", r)
			}
		}

		select {
		case err := <-done:
			t.Fatalf("Consumer exited unexpectedly: %v", err)
		default:
		}
	})

	t.Run("Consumer_Stops_On_Cancel", func(t *testing.T) {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Consumer returned error on cancel: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Consumer did not stop after cancel")
		}
	})
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/geofence"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

func newTestGeofenceService(t *testing.T, repo *mockRepository) (GeofenceService, *geofence.Monitor) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewCrossingBus(logger)
	t.Cleanup(func() { _ = bus.Close() })

	monitor := geofence.NewMonitor(bus, geofence.AllowAllAuthorizer{}, logger)
	svc := NewGeofenceService(repo, nil, logger, validator.New(), monitor, events.NewMockEventPublisher(logger))
	return svc, monitor
}

func TestGeofenceService_UnconfiguredZone(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc, monitor := newTestGeofenceService(t, repo)
	ctx := context.Background()

	t.Run("ResolveRegion_Returns_Nil", func(t *testing.T) {
		region, err := svc.ResolveRegion(ctx)
		if err != nil {
			t.Fatalf("Unconfigured zone must not be an error: %v", err)
		}
		if region != nil {
			t.Fatalf("Expected nil region, got %+v", region)
		}
	})

	t.Run("StartMonitoring_Refused", func(t *testing.T) {
		err := svc.StartMonitoring(ctx, "mgmt-1")
		if !errors.Is(err, ErrZoneNotConfigured) {
			t.Fatalf("Expected ErrZoneNotConfigured, got %v", err)
		}
		if monitor.IsMonitoring() {
			t.Error("Monitor must not run without a configured zone")
		}
	})

	t.Run("GetZone_Reports_Empty_State", func(t *testing.T) {
		_, err := svc.GetZone(ctx, "mgmt-1")
		if !errors.Is(err, ErrZoneNotConfigured) {
			t.Fatalf("Expected ErrZoneNotConfigured, got %v", err)
		}
	})
}

func TestGeofenceService_SetZoneRoleGate(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc, _ := newTestGeofenceService(t, repo)
	ctx := context.Background()

	req := &SetZoneRequest{Latitude: 10.7769, Longitude: 106.7009, RadiusM: 200}

	t.Run("Teacher_Denied", func(t *testing.T) {
		_, err := svc.SetZone(ctx, req, "teacher-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("Management_Allowed", func(t *testing.T) {
		zone, err := svc.SetZone(ctx, req, "mgmt-1")
		if err != nil {
			t.Fatalf("Management should set the zone: %v", err)
		}
		if zone.RadiusM != 200 {
			t.Errorf("Expected radius 200, got %v", zone.RadiusM)
		}
	})

	t.Run("Any_Authenticated_Role_Reads", func(t *testing.T) {
		for _, actor := range []string{"student-1", "teacher-1", "parent-1", "mgmt-1"} {
			if _, err := svc.GetZone(ctx, actor); err != nil {
				t.Errorf("Actor %s should read the zone: %v", actor, err)
			}
		}
	})
}

func TestGeofenceService_MonitorLifecycle(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	svc, monitor := newTestGeofenceService(t, repo)
	ctx := context.Background()

	if _, err := svc.SetZone(ctx, &SetZoneRequest{Latitude: 10.7769, Longitude: 106.7009, RadiusM: 200}, "mgmt-1"); err != nil {
		t.Fatalf("Failed to set zone: %v", err)
	}

	t.Run("Start_Requires_Management", func(t *testing.T) {
		err := svc.StartMonitoring(ctx, "teacher-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("Start_And_Stop", func(t *testing.T) {
		if err := svc.StartMonitoring(ctx, "mgmt-1"); err != nil {
			t.Fatalf("Failed to start monitoring: %v", err)
		}
		if !monitor.IsMonitoring() {
			t.Fatal("Expected monitor to be running")
		}

		// Region resolves from the stored zone.
		region, err := svc.ResolveRegion(ctx)
		if err != nil || region == nil {
			t.Fatalf("Expected resolved region, got %v, %v", region, err)
		}
		if !region.NotifyOnEnter || !region.NotifyOnExit {
			t.Error("Region must notify on both enter and exit")
		}

		if err := svc.StopMonitoring(ctx, "mgmt-1"); err != nil {
			t.Fatalf("Failed to stop monitoring: %v", err)
		}
		if monitor.IsMonitoring() {
			t.Error("Expected monitor to be stopped")
		}
	})
}

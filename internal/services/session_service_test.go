package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/attendance-service/internal/cache"
	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/SAP-F-2025/attendance-service/internal/geofence"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

func newTestIdentities(t *testing.T) *cache.IdentityCache {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewIdentityCache(client)
}

func newTestSessionService(t *testing.T, repo *mockRepository, identities *cache.IdentityCache) SessionService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewCrossingBus(logger)
	t.Cleanup(func() { _ = bus.Close() })

	monitor := geofence.NewMonitor(bus, geofence.AllowAllAuthorizer{}, logger)
	return NewSessionService(repo, identities, monitor, logger, validator.New(), events.NewMockEventPublisher(logger))
}

func TestSessionService_LoginLogout(t *testing.T) {
	repo := newMockRepository()
	seedSchool(repo)
	identities := newTestIdentities(t)
	svc := newTestSessionService(t, repo, identities)
	ctx := context.Background()

	t.Run("Student_Login_Binds_Device", func(t *testing.T) {
		if err := svc.Login(ctx, "student-1", &SessionLoginRequest{DeviceID: "device-1"}); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		identity, err := identities.Get(ctx, "device-1")
		if err != nil {
			t.Fatalf("Failed to read identity: %v", err)
		}
		if identity == nil {
			t.Fatal("Expected a device binding after student login")
		}
		if identity.StudentID != "student-1" || identity.StudentName != "Alice Nguyen" {
			t.Errorf("Wrong binding: %+v", identity)
		}
	})

	t.Run("NonStudent_Login_Clears_Binding", func(t *testing.T) {
		if err := svc.Login(ctx, "teacher-1", &SessionLoginRequest{DeviceID: "device-1"}); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		identity, err := identities.Get(ctx, "device-1")
		if err != nil {
			t.Fatalf("Failed to read identity: %v", err)
		}
		if identity != nil {
			t.Errorf("Teacher login must clear the student binding, got %+v", identity)
		}
	})

	t.Run("Logout_Clears_Binding", func(t *testing.T) {
		if err := svc.Login(ctx, "student-1", &SessionLoginRequest{DeviceID: "device-2"}); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if err := svc.Logout(ctx, "student-1", &SessionLogoutRequest{DeviceID: "device-2"}); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}

		identity, err := identities.Get(ctx, "device-2")
		if err != nil {
			t.Fatalf("Failed to read identity: %v", err)
		}
		if identity != nil {
			t.Errorf("Logout must clear the binding, got %+v", identity)
		}
	})

	t.Run("Unknown_User_Rejected", func(t *testing.T) {
		err := svc.Login(ctx, "ghost", &SessionLoginRequest{DeviceID: "device-3"})
		if err == nil {
			t.Fatal("Expected login of unknown user to fail")
		}
	})
}

package geofence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/attendance-service/internal/events"
	"github.com/ThreeDotsLabs/watermill/message"
)

func testRegion() *Region {
	return &Region{
		Identifier:    "main_campus",
		Latitude:      10.7769,
		Longitude:     106.7009,
		Radius:        200,
		NotifyOnEnter: true,
		NotifyOnExit:  true,
	}
}

func collectCrossings(t *testing.T, msgs <-chan *message.Message, want int) []events.CrossingEvent {
	t.Helper()

	var crossings []events.CrossingEvent
	timeout := time.After(2 * time.Second)
	for len(crossings) < want {
		select {
		case msg := <-msgs:
			crossing, err := events.DecodeCrossing(msg)
			if err != nil {
				t.Fatalf("Failed to decode crossing: %v", err)
			}
			msg.Ack()
			crossings = append(crossings, crossing)
		case <-timeout:
			t.Fatalf("Expected %d crossings, got %d", want, len(crossings))
		}
	}
	return crossings
}

func assertNoCrossing(t *testing.T, msgs <-chan *message.Message) {
	t.Helper()

	select {
	case msg := <-msgs:
		crossing, _ := events.DecodeCrossing(msg)
		msg.Ack()
		t.Fatalf("Unexpected crossing: %+v", crossing)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitor_Crossings(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewCrossingBus(logger)
	defer bus.Close()

	ctx := context.Background()
	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	monitor := NewMonitor(bus, AllowAllAuthorizer{}, logger)
	region := testRegion()
	if err := monitor.Start(ctx, region); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	t.Run("First_Report_Inside_Is_Enter", func(t *testing.T) {
		if err := monitor.ProcessLocation(ctx, "device-1", region.Latitude, region.Longitude); err != nil {
			t.Fatalf("ProcessLocation failed: %v", err)
		}

		crossings := collectCrossings(t, msgs, 1)
		if crossings[0].Kind != events.CrossingEnter {
			t.Errorf("Expected enter, got %s", crossings[0].Kind)
		}
		if crossings[0].DeviceID != "device-1" {
			t.Errorf("Expected device-1, got %s", crossings[0].DeviceID)
		}
	})

	t.Run("Staying_Inside_Publishes_Nothing", func(t *testing.T) {
		if err := monitor.ProcessLocation(ctx, "device-1", region.Latitude+0.0001, region.Longitude); err != nil {
			t.Fatalf("ProcessLocation failed: %v", err)
		}
		assertNoCrossing(t, msgs)
	})

	t.Run("Leaving_Is_Exit", func(t *testing.T) {
		if err := monitor.ProcessLocation(ctx, "device-1", region.Latitude+1, region.Longitude); err != nil {
			t.Fatalf("ProcessLocation failed: %v", err)
		}

		crossings := collectCrossings(t, msgs, 1)
		if crossings[0].Kind != events.CrossingExit {
			t.Errorf("Expected exit, got %s", crossings[0].Kind)
		}
	})

	t.Run("First_Report_Outside_Publishes_Nothing", func(t *testing.T) {
		if err := monitor.ProcessLocation(ctx, "device-2", region.Latitude+1, region.Longitude); err != nil {
			t.Fatalf("ProcessLocation failed: %v", err)
		}
		assertNoCrossing(t, msgs)
	})
}

func TestMonitor_Lifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewCrossingBus(logger)
	defer bus.Close()

	ctx := context.Background()
	monitor := NewMonitor(bus, AllowAllAuthorizer{}, logger)
	region := testRegion()

	t.Run("Start_Is_Idempotent", func(t *testing.T) {
		if err := monitor.Start(ctx, region); err != nil {
			t.Fatalf("First start failed: %v", err)
		}
		same := *region
		if err := monitor.Start(ctx, &same); err != nil {
			t.Fatalf("Repeated start failed: %v", err)
		}
		if !monitor.IsMonitoring() {
			t.Error("Expected monitor to be running")
		}
	})

	t.Run("Stop_Is_Idempotent", func(t *testing.T) {
		monitor.Stop()
		monitor.Stop()
		if monitor.IsMonitoring() {
			t.Error("Expected monitor to be stopped")
		}
	})

	t.Run("Late_Report_After_Stop_Is_NoOp", func(t *testing.T) {
		msgs, err := bus.Subscribe(ctx)
		if err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := monitor.ProcessLocation(ctx, "device-1", region.Latitude, region.Longitude); err != nil {
			t.Fatalf("Late report should not fail: %v", err)
		}
		assertNoCrossing(t, msgs)
	})
}

type denyAuthorizer struct{}

func (denyAuthorizer) AuthorizeBackground(context.Context) error {
	return errors.New("user refused background access")
}

func TestMonitor_PermissionRefused(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewCrossingBus(logger)
	defer bus.Close()

	monitor := NewMonitor(bus, denyAuthorizer{}, logger)
	err := monitor.Start(context.Background(), testRegion())
	if !errors.Is(err, ErrLocationNotPermitted) {
		t.Fatalf("Expected ErrLocationNotPermitted, got %v", err)
	}
	if monitor.IsMonitoring() {
		t.Error("Monitor must not run without permission")
	}
}

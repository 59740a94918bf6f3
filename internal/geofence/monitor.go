package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/attendance-service/internal/events"
)

// ErrLocationNotPermitted means the authorizer refused background
// location access; monitoring must not start.
var ErrLocationNotPermitted = errors.New("background location permission not granted")

// LocationAuthorizer gates monitor startup on location permissions.
type LocationAuthorizer interface {
	AuthorizeBackground(ctx context.Context) error
}

// AllowAllAuthorizer grants every request. Used in deployments where
// consent is collected out of band.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) AuthorizeBackground(context.Context) error { return nil }

// Monitor tracks per-device containment against the active region and
// publishes boundary crossings to the bus. Devices report positions via
// ProcessLocation; the monitor itself never resolves identity.
type Monitor struct {
	mu     sync.Mutex
	region *Region
	inside map[string]bool

	bus        *events.CrossingBus
	authorizer LocationAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

func NewMonitor(bus *events.CrossingBus, authorizer LocationAuthorizer, logger *slog.Logger) *Monitor {
	return &Monitor{
		inside:     make(map[string]bool),
		bus:        bus,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Start begins monitoring the given region. Calling Start again with the
// same region is a no-op; a different region replaces the old one and
// resets containment state.
func (m *Monitor) Start(ctx context.Context, region *Region) error {
	if region == nil {
		return fmt.Errorf("region is required")
	}

	if err := m.authorizer.AuthorizeBackground(ctx); err != nil {
		return fmt.Errorf("%w: %s", ErrLocationNotPermitted, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.region != nil && *m.region == *region {
		return nil
	}

	m.region = region
	m.inside = make(map[string]bool)

	m.logger.Info("Geofence monitoring started",
		"region", region.Identifier,
		"latitude", region.Latitude,
		"longitude", region.Longitude,
		"radius_m", region.Radius)
	return nil
}

// Stop halts monitoring. Safe to call when not monitoring. Stopping is
// best-effort: a location report already in flight may still be
// processed by ProcessLocation, which no-ops once the region is gone.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.region == nil {
		return
	}

	m.logger.Info("Geofence monitoring stopped", "region", m.region.Identifier)
	m.region = nil
	m.inside = make(map[string]bool)
}

// IsMonitoring reports whether a region is active.
func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.region != nil
}

// ProcessLocation ingests a device position report. A transition across
// the region boundary publishes a crossing; the first report from a
// device inside the region counts as an enter.
func (m *Monitor) ProcessLocation(ctx context.Context, deviceID string, lat, lon float64) error {
	m.mu.Lock()

	if m.region == nil {
		m.mu.Unlock()
		return nil
	}

	region := m.region
	nowInside := region.Contains(lat, lon)
	wasInside, seen := m.inside[deviceID]
	m.inside[deviceID] = nowInside

	var kind events.CrossingKind
	publish := false
	switch {
	case nowInside && (!seen || !wasInside):
		kind, publish = events.CrossingEnter, region.NotifyOnEnter
	case !nowInside && seen && wasInside:
		kind, publish = events.CrossingExit, region.NotifyOnExit
	}
	m.mu.Unlock()

	if !publish {
		return nil
	}

	crossing := events.CrossingEvent{
		DeviceID:   deviceID,
		Kind:       kind,
		Latitude:   lat,
		Longitude:  lon,
		OccurredAt: m.now(),
	}

	if err := m.bus.Publish(ctx, crossing); err != nil {
		return fmt.Errorf("failed to publish %s crossing: %w", kind, err)
	}

	m.logger.Debug("Boundary crossing detected",
		"device_id", deviceID,
		"kind", kind,
		"distance_m", region.DistanceM(lat, lon))
	return nil
}

// Forget drops containment state for a device, typically at logout.
func (m *Monitor) Forget(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inside, deviceID)
}

package geofence

import (
	"context"
	"fmt"
	"math"

	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

// Region is the monitoring descriptor handed to the monitor.
type Region struct {
	Identifier    string  `json:"identifier"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Radius        float64 `json:"radius"`
	NotifyOnEnter bool    `json:"notify_on_enter"`
	NotifyOnExit  bool    `json:"notify_on_exit"`
}

const earthRadiusM = 6371000.0

// DistanceM returns the haversine distance in meters from the region
// center to the given point.
func (r *Region) DistanceM(lat, lon float64) float64 {
	lat1 := r.Latitude * math.Pi / 180
	lat2 := lat * math.Pi / 180
	dLat := (lat - r.Latitude) * math.Pi / 180
	dLon := (lon - r.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// Contains reports whether the point lies within the region radius.
func (r *Region) Contains(lat, lon float64) bool {
	return r.DistanceM(lat, lon) <= r.Radius
}

// Resolver turns the stored zone into a monitoring region.
type Resolver struct {
	zones repositories.ZoneRepository
}

func NewResolver(zones repositories.ZoneRepository) *Resolver {
	return &Resolver{zones: zones}
}

// Resolve returns the active region, or (nil, nil) when no zone has been
// configured. An unconfigured zone is a normal state, not a fault.
func (r *Resolver) Resolve(ctx context.Context) (*Region, error) {
	zone, err := r.zones.Get(ctx, nil)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve region: %w", err)
	}

	return &Region{
		Identifier:    zone.ID,
		Latitude:      zone.Latitude,
		Longitude:     zone.Longitude,
		Radius:        zone.RadiusM,
		NotifyOnEnter: true,
		NotifyOnExit:  true,
	}, nil
}

package models

import "time"

// ZoneID is the fixed key of the singleton geofence zone. Setting a new zone
// overwrites this row; at most one active zone exists at any time.
const ZoneID = "main_campus"

type GeofenceZone struct {
	ID        string  `json:"id" gorm:"primaryKey;size:100"`
	Latitude  float64 `json:"latitude" gorm:"not null"`
	Longitude float64 `json:"longitude" gorm:"not null"`
	RadiusM   float64 `json:"radius_m" gorm:"not null"`

	// UpdatedBy is the management user who last set the zone.
	UpdatedBy string `json:"updated_by" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GeofenceZone) TableName() string {
	return "geofence_zones"
}

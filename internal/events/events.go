package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published to the external bus
const (
	EventAttendanceRecorded  = "attendance.recorded"
	EventAttendanceCheckedOut = "attendance.checked_out"
	EventAttendanceManual    = "attendance.manual_marked"
	EventIncidentReported    = "incident.reported"
	EventZoneUpdated         = "geofence.zone_updated"
	EventStudentCreated      = "student.created"
	EventSessionLogin        = "session.login"
	EventSessionLogout       = "session.logout"
)

// Event is the envelope for everything published to the bus.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with generated ID and current timestamp.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "attendance-service",
		Version:   "1.0",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to the external bus.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

package services

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/SAP-F-2025/attendance-service/internal/cache"
	"github.com/SAP-F-2025/attendance-service/internal/events"
)

// CrossingConsumer is the background execution context. It drains the
// crossing bus, resolves each device to a student through the identity
// cache, and feeds the attendance writer. It has no access to any live
// session: the identity cache is its only source of attribution.
//
// Failures here are logged and swallowed. There is no user to surface
// them to, and a bad event must never stop the consumer or the monitor.
type CrossingConsumer struct {
	bus        *events.CrossingBus
	identities *cache.IdentityCache
	attendance AttendanceService
	logger     *slog.Logger
}

func NewCrossingConsumer(bus *events.CrossingBus, identities *cache.IdentityCache, attendance AttendanceService, logger *slog.Logger) *CrossingConsumer {
	return &CrossingConsumer{
		bus:        bus,
		identities: identities,
		attendance: attendance,
		logger:     logger,
	}
}

// Run consumes crossings until ctx is cancelled or the bus closes.
func (c *CrossingConsumer) Run(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	c.logger.Info("Crossing consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Crossing consumer stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				c.logger.Info("Crossing bus closed, consumer stopping")
				return nil
			}
			c.handle(ctx, msg)
			msg.Ack()
		}
	}
}

func (c *CrossingConsumer) handle(ctx context.Context, msg *message.Message) {
	crossing, err := events.DecodeCrossing(msg)
	if err != nil {
		c.logger.Error("Dropping undecodable crossing", "error", err)
		return
	}

	identity, err := c.identities.Get(ctx, crossing.DeviceID)
	if err != nil {
		c.logger.Error("Identity cache read failed, dropping crossing",
			"error", err,
			"device_id", crossing.DeviceID,
			"kind", crossing.Kind)
		return
	}
	if identity == nil {
		// No student bound to this device (logged out, or never a
		// student session). Drop silently per the error design.
		c.logger.Warn("Crossing for device with no cached identity, dropping",
			"device_id", crossing.DeviceID,
			"kind", crossing.Kind,
			"reason", ErrIdentityMissing)
		return
	}

	err = c.attendance.UpsertGeofenceEvent(ctx, identity.StudentID, identity.StudentName, crossing.Kind, crossing.OccurredAt)
	if err != nil {
		c.logger.Error("Attendance write failed for crossing",
			"error", err,
			"student_id", identity.StudentID,
			"kind", crossing.Kind)
		return
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const CrossingTopic = "geofence.crossings"

// CrossingKind is the direction of a boundary crossing.
type CrossingKind string

const (
	CrossingEnter CrossingKind = "enter"
	CrossingExit  CrossingKind = "exit"
)

// CrossingEvent is emitted by the geofence monitor whenever a device
// crosses the zone boundary. It carries only the device, never the
// student: identity resolution happens on the consumer side.
type CrossingEvent struct {
	DeviceID   string       `json:"device_id"`
	Kind       CrossingKind `json:"kind"`
	Latitude   float64      `json:"latitude"`
	Longitude  float64      `json:"longitude"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// CrossingBus is the in-process pub/sub channel between the geofence
// monitor and the attendance consumer. Crossings stay in-process; only
// the resulting attendance events go to Kafka.
type CrossingBus struct {
	channel *gochannel.GoChannel
}

func NewCrossingBus(logger *slog.Logger) *CrossingBus {
	return &CrossingBus{
		channel: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewSlogLogger(logger),
		),
	}
}

// Publish emits a crossing onto the bus.
func (b *CrossingBus) Publish(ctx context.Context, crossing CrossingEvent) error {
	payload, err := json.Marshal(crossing)
	if err != nil {
		return fmt.Errorf("failed to marshal crossing: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := b.channel.Publish(CrossingTopic, msg); err != nil {
		return fmt.Errorf("failed to publish crossing: %w", err)
	}
	return nil
}

// Subscribe returns the stream of crossing messages. Callers must Ack or
// Nack every message.
func (b *CrossingBus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	messages, err := b.channel.Subscribe(ctx, CrossingTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to crossings: %w", err)
	}
	return messages, nil
}

// DecodeCrossing unmarshals a bus message back into a CrossingEvent.
func DecodeCrossing(msg *message.Message) (CrossingEvent, error) {
	var crossing CrossingEvent
	if err := json.Unmarshal(msg.Payload, &crossing); err != nil {
		return CrossingEvent{}, fmt.Errorf("failed to decode crossing: %w", err)
	}
	return crossing, nil
}

func (b *CrossingBus) Close() error {
	return b.channel.Close()
}

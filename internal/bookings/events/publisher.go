// Package events carries committed booking changes to Kafka and records them in the
// audit log on the consuming side.
package events

import (
	"context"
	"fmt"
	"time"

	"jobfair/pkg/kafka"
	"jobfair/pkg/middleware"
	"jobfair/pkg/model"

	"github.com/google/uuid"
)

// Source identifies this service in the event headers.
const Source = "jobfair-bookings"

// Headers that let consumers route or filter without decoding the payload.
const (
	HeaderBookingID = "booking-id"
	HeaderActorID   = "actor-id"
)

// Publisher announces booking changes. Callers publish only after commit and treat
// a failure as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event *model.BookingEvent) error
}

// MessageProducer is the subset of kafka.Producer used for publishing.
type MessageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

func NewEvent(eventType string, booking *model.Booking, actor model.Actor) *model.BookingEvent {
	return &model.BookingEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		ActorID:    actor.UserID,
		Date:       booking.Date,
		Companies:  append([]string(nil), booking.Companies...),
		OccurredAt: time.Now().UTC(),
	}
}

type KafkaPublisher struct {
	producer MessageProducer
}

func NewKafkaPublisher(producer MessageProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys the message by owner, so all changes of one user land on the same
// partition in commit order.
func (p *KafkaPublisher) Publish(ctx context.Context, event *model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.UserID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(event.Type).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSource(Source).
		WithHeader(HeaderBookingID, event.BookingID).
		WithHeader(HeaderActorID, event.ActorID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build booking event: %w", err)
	}
	return p.producer.Publish(ctx, msg)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *model.BookingEvent) error {
	return nil
}

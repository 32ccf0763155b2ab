package model

import "time"

const (
	BookingCreated = "booking.created"
	BookingUpdated = "booking.updated"
	BookingDeleted = "booking.deleted"
)

// BookingEvent is published after an admitted write has been committed.
type BookingEvent struct {
	EventID    string    `json:"event_id" bson:"event_id"`
	Type       string    `json:"type" bson:"type"`
	BookingID  string    `json:"booking_id" bson:"booking_id"`
	UserID     string    `json:"user" bson:"user"`
	ActorID    string    `json:"actor" bson:"actor"`
	Date       time.Time `json:"date" bson:"date"`
	Companies  []string  `json:"companies" bson:"companies"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurred_at"`
	ReceivedAt time.Time `json:"-" bson:"received_at,omitempty"`
}

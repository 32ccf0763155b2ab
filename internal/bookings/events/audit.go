package events

import (
	"context"

	"jobfair/internal/bookings/repository"
	"jobfair/pkg/kafka"
	"jobfair/pkg/logger"
	"jobfair/pkg/model"
)

// NewAuditHandler returns a consumer handler that appends each booking event to the
// audit log. Redelivered events are acknowledged without a second write.
func NewAuditHandler(repo repository.BookingEventRepository, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("failed to decode booking event", err)
		}
		if event.EventID == "" {
			event.EventID = msg.GetEventID()
		}
		if event.EventID == "" {
			return kafka.NewPermanentError("booking event has no ID", nil)
		}

		inserted, err := repo.Append(ctx, &event)
		if err != nil {
			return kafka.NewTransientError("failed to store booking event", err)
		}
		if !inserted {
			log.Debug("Skipping duplicate booking event", "event_id", event.EventID)
			return nil
		}

		log.Info("Booking event recorded",
			"event_id", event.EventID,
			"type", event.Type,
			"booking_id", event.BookingID,
			"user", event.UserID,
			"correlation_id", msg.GetCorrelationID(),
		)
		return nil
	}
}

package repository

import (
	"context"
	"fmt"
	"time"

	"jobfair/pkg/config"
	"jobfair/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	EventCollectionName = "Booking_events"
	IndexEventID        = "uniq_event_id"
)

// BookingEventRepository is the append-only audit log of booking changes.
type BookingEventRepository interface {
	// Append stores event. It returns inserted=false without error when an event with
	// the same ID has already been stored.
	Append(ctx context.Context, event *model.BookingEvent) (inserted bool, err error)
}

type mongoBookingEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingEventRepository(cfg *config.Config) BookingEventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingEventRepository{
		cfg:        cfg,
		collection: db.Collection(EventCollectionName),
	}
}

func (r *mongoBookingEventRepository) Append(ctx context.Context, event *model.BookingEvent) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	event.ReceivedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to append booking event: %w", err)
	}
	return true, nil
}

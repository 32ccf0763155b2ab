package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "jobfair/internal/bookings/errors"
	"jobfair/pkg/config"
	"jobfair/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// BookingLockRepository stores advisory locks. A lock is a document whose _id is the
// lock name; the unique _id index guarantees a single holder.
type BookingLockRepository interface {
	// Acquire inserts the lock. It returns ErrLockHeld when an unexpired lock with the
	// same ID exists. An expired lock is reclaimed.
	Acquire(ctx context.Context, lock *model.BookingLock) error
	// Release removes the lock only if it is still owned by holder.
	Release(ctx context.Context, lockID, holder string) error
}

type mongoBookingLockRepository struct {
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lock *model.BookingLock) error {
	lock.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so stale locks are reclaimed here.
	res, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lt": lock.CreatedAt},
	})
	if err != nil {
		return fmt.Errorf("failed to reclaim expired lock: %w", err)
	}
	if res.DeletedCount == 0 {
		return bookingserrors.ErrLockHeld
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to insert lock: %w", err)
	}
	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, lockID, holder string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "holder": holder})
	return err
}

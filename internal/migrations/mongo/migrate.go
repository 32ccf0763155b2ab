package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingRepository "jobfair/internal/bookings/repository"
	companyRepository "jobfair/internal/companies/repository"
	"jobfair/internal/migrations/mongo/validators"
	userRepository "jobfair/internal/users/repository"
	"jobfair/pkg/logger"
)

type CollectionDefinition struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	// The two unique indexes back the per-owner company and day rules.
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "companies", Value: 1}},
			Options: options.Index().SetName(bookingRepository.IndexOwnerCompany).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetName(bookingRepository.IndexOwnerDay).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName(bookingRepository.IndexOwnerDate),
		},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	}

	BookingEventsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetName(bookingRepository.IndexEventID).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "occurred_at", Value: 1}},
		},
	}

	CompaniesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}

	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(userRepository.IndexEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "tel", Value: 1}},
			Options: options.Index().SetName(userRepository.IndexTel).SetUnique(true),
		},
	}
)

// Collections lists every collection the services rely on, in creation order.
func Collections() []CollectionDefinition {
	return []CollectionDefinition{
		{Name: userRepository.CollectionName, Indexes: UsersIndexes, Validator: validators.UserValidator},
		{Name: companyRepository.CollectionName, Indexes: CompaniesIndexes, Validator: validators.CompanyValidator},
		{Name: bookingRepository.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: bookingRepository.LockCollectionName, Indexes: BookingLocksIndexes, Validator: validators.BookingLockValidator},
		{Name: bookingRepository.EventCollectionName, Indexes: BookingEventsIndexes, Validator: validators.BookingEventValidator},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	created, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", created)
	return nil
}

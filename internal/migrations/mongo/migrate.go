package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "roombook/internal/bookings/repository"
	"roombook/internal/migrations/mongo/validators"
	roomsrepo "roombook/internal/rooms/repository"
	mongodb "roombook/pkg/db/mongo"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

var (
	RoomsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "name", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start_time", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "booked_by", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start_time", Value: 1},
		}},
	}

	AuditIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	}

	// Expired slot locks are reaped by Mongo so a crashed holder never
	// blocks a room/date for longer than the lock TTL.
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the services use, in creation order.
func Collections() []collectionDef {
	return []collectionDef{
		{Name: roomsrepo.CollectionName, Indexes: RoomsIndexes, Validator: validators.RoomValidator},
		{Name: bookingsrepo.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: bookingsrepo.AuditCollectionName, Indexes: AuditIndexes, Validator: validators.AuditValidator},
		{Name: bookingsrepo.LockCollectionName, Indexes: BookingLocksIndexes},
	}
}

type Options struct {
	SkipIndexes bool
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger, opts Options) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, log, def.Name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if opts.SkipIndexes || len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
		log.Info("Ensured indexes", "collection", def.Name, "count", len(def.Indexes))
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, log *logger.Logger, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	_, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	return err
}

// SeedRooms upserts the catalog in one transaction so a half-applied
// catalog is never visible.
func SeedRooms(ctx context.Context, txm mongodb.TransactionManager, repo roomsrepo.RoomRepository, rooms []*model.Room) error {
	return txm.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, room := range rooms {
			if err := repo.Upsert(sessCtx, room); err != nil {
				return fmt.Errorf("failed to upsert room %s: %w", room.ID, err)
			}
		}
		return nil
	})
}

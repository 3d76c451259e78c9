package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"roombook/pkg/clock"
	"roombook/pkg/config"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

const (
	LockCollectionName = "Booking_locks"

	lockIDPrefix       = "slot_"
	lockRetryInterval  = 25 * time.Millisecond
	lockReleaseTimeout = 5 * time.Second
)

// mongoSlotLocker keeps an advisory lock document per room/date. A duplicate
// key on insert means somebody else holds it. Documents carry an expiry so a
// crashed holder cannot block the slot forever: expired locks are cleared on
// contention and by the TTL index.
type mongoSlotLocker struct {
	collection *mongo.Collection
	ttl        time.Duration
	clock      clock.Clock
	log        *logger.Logger
}

func NewMongoSlotLocker(cfg *config.Config, clk clock.Clock) SlotLocker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLocker{
		collection: db.Collection(LockCollectionName),
		ttl:        cfg.SlotLockTTL,
		clock:      clk,
		log:        cfg.Log,
	}
}

func (l *mongoSlotLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockID := lockIDPrefix + key
	owner := uuid.NewString()

	for {
		now := l.clock.Now().UTC().Truncate(time.Millisecond)
		lock := &model.BookingLock{
			ID:        lockID,
			Owner:     owner,
			ExpiresAt: now.Add(l.ttl),
			CreatedAt: now,
		}

		_, err := l.collection.InsertOne(ctx, lock)
		if err == nil {
			return l.releaser(lockID, owner), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to acquire slot lock %s: %w", lockID, err)
		}

		if res, err := l.collection.DeleteOne(ctx, bson.M{
			"_id":        lockID,
			"expires_at": bson.M{"$lt": now},
		}); err == nil && res.DeletedCount > 0 {
			l.log.Warn("Cleared expired slot lock", "lock_id", lockID)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// releaser deletes only the document this owner created, so an expired lock
// re-acquired by someone else is left alone.
func (l *mongoSlotLocker) releaser(lockID, owner string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()

		if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
			l.log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
		}
	}
}

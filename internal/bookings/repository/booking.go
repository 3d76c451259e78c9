package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/clock"
	"roombook/pkg/config"
	"roombook/pkg/model"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	// Insert assigns ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// ListByRoomDate returns every booking for the room/date, cancelled ones
	// included, ordered by start time.
	ListByRoomDate(ctx context.Context, roomID, date string) ([]*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	// UpdateStatus moves a scheduled booking to status. It fails with
	// ErrNotFound or ErrInvalidTransition and never touches terminal rows.
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus, reason *string) (*model.Booking, error)
	// WithSlotLock runs fn with exclusive access to the room/date.
	WithSlotLock(ctx context.Context, roomID, date string, fn func(ctx context.Context) error) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	locker     SlotLocker
	clock      clock.Clock
}

func NewMongoBookingRepository(cfg *config.Config, locker SlotLocker, clk clock.Clock) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		locker:     locker,
		clock:      clk,
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.ID = ""
	booking.CreatedAt = r.now()
	booking.UpdatedAt = booking.CreatedAt

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	booking.ID = oid.Hex()
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) ListByRoomDate(ctx context.Context, roomID, date string) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "start_time", Value: 1},
		{Key: "end_time", Value: 1},
		{Key: "_id", Value: 1},
	})

	return r.find(ctx, bson.M{"room_id": roomID, "date": date}, opts)
}

func (r *mongoBookingRepository) ListByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "start_time", Value: 1},
		{Key: "_id", Value: 1},
	})

	return r.find(ctx, bson.M{"booked_by": userID}, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

// UpdateStatus is a single conditional update on status=scheduled, so two
// concurrent cancellations cannot both succeed.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus, reason *string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	if !model.BookingStatusScheduled.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: to %s", bookingserrors.ErrInvalidTransition, status)
	}

	writeCtx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"status":     status,
		"updated_at": r.now(),
	}
	if reason != nil {
		set["cancellation_reason"] = *reason
	}

	filter := bson.M{"_id": objectID, "status": model.BookingStatusScheduled}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Booking
	err = r.collection.FindOneAndUpdate(writeCtx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s to %s", bookingserrors.ErrInvalidTransition, current.Status, status)
}

func (r *mongoBookingRepository) WithSlotLock(ctx context.Context, roomID, date string, fn func(ctx context.Context) error) error {
	return withSlotLock(ctx, r.locker, r.cfg.SlotLockWait, r.cfg.SlotLockTTL, roomID, date, fn)
}

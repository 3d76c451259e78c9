package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roombook/pkg/clock"
	"roombook/pkg/config"
	"roombook/pkg/model"
)

const AuditCollectionName = "Audit_log"

// AuditRepository is append-only: entries are never updated or removed.
type AuditRepository interface {
	Append(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) (*model.AuditEntry, error)
	// ListForBooking returns entries oldest first.
	ListForBooking(ctx context.Context, bookingID string) ([]*model.AuditEntry, error)
}

type mongoAuditRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	clock      clock.Clock
}

func NewMongoAuditRepository(cfg *config.Config, clk clock.Clock) AuditRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAuditRepository{
		cfg:        cfg,
		collection: db.Collection(AuditCollectionName),
		clock:      clk,
	}
}

// newAuditEntry ids are UUIDv7: time ordered and strictly increasing within
// this process, so they break ties between entries stamped in the same
// millisecond.
func newAuditEntry(bookingID string, action model.AuditAction, performedBy string, details map[string]any, at time.Time) *model.AuditEntry {
	return &model.AuditEntry{
		ID:          uuid.Must(uuid.NewV7()).String(),
		BookingID:   bookingID,
		Action:      action,
		PerformedBy: performedBy,
		Details:     details,
		Timestamp:   at.UTC().Truncate(time.Millisecond),
	}
}

func (r *mongoAuditRepository) Append(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) (*model.AuditEntry, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	entry := newAuditEntry(bookingID, action, performedBy, details, r.clock.Now())
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry, nil
}

func (r *mongoAuditRepository) ListForBooking(ctx context.Context, bookingID string) ([]*model.AuditEntry, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*model.AuditEntry{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/clock"
	"roombook/pkg/model"
)

// memoryBookingRepository backs STORAGE_BACKEND=memory and the service tests.
// It hands out copies so callers never share state with the store.
type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	locker   SlotLocker
	lockWait time.Duration
	clock    clock.Clock
}

func NewMemoryBookingRepository(clk clock.Clock, lockWait time.Duration) BookingRepository {
	return &memoryBookingRepository{
		bookings: make(map[string]*model.Booking),
		locker:   NewKeyedMutex(),
		lockWait: lockWait,
		clock:    clk,
	}
}

func (r *memoryBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.clock.Now().UTC().Truncate(time.Millisecond)
	booking.ID = primitive.NewObjectID().Hex()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	r.mu.Lock()
	r.bookings[booking.ID] = booking.Clone()
	r.mu.Unlock()
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *memoryBookingRepository) ListByRoomDate(ctx context.Context, roomID, date string) ([]*model.Booking, error) {
	out := r.filter(func(b *model.Booking) bool {
		return b.RoomID == roomID && b.Date == date
	})
	slices.SortStableFunc(out, func(a, b *model.Booking) int {
		return cmp.Or(
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.EndTime, b.EndTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (r *memoryBookingRepository) ListByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	out := r.filter(func(b *model.Booking) bool {
		return b.BookedBy == userID
	})
	slices.SortStableFunc(out, func(a, b *model.Booking) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (r *memoryBookingRepository) filter(keep func(*model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Booking{}
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (r *memoryBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus, reason *string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !b.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", bookingserrors.ErrInvalidTransition, b.Status, status)
	}

	b.Status = status
	b.UpdatedAt = r.clock.Now().UTC().Truncate(time.Millisecond)
	if reason != nil {
		value := *reason
		b.CancellationReason = &value
	}
	return b.Clone(), nil
}

func (r *memoryBookingRepository) WithSlotLock(ctx context.Context, roomID, date string, fn func(ctx context.Context) error) error {
	return withSlotLock(ctx, r.locker, r.lockWait, 0, roomID, date, fn)
}

type memoryAuditRepository struct {
	mu      sync.RWMutex
	entries map[string][]*model.AuditEntry
	last    time.Time
	clock   clock.Clock
}

func NewMemoryAuditRepository(clk clock.Clock) AuditRepository {
	return &memoryAuditRepository{
		entries: make(map[string][]*model.AuditEntry),
		clock:   clk,
	}
}

// Append never lets the log go backwards in time, even if the clock does.
func (r *memoryAuditRepository) Append(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) (*model.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := newAuditEntry(bookingID, action, performedBy, maps.Clone(details), r.clock.Now())
	if entry.Timestamp.Before(r.last) {
		entry.Timestamp = r.last
	}
	r.last = entry.Timestamp

	r.entries[bookingID] = append(r.entries[bookingID], entry)
	return copyEntry(entry), nil
}

func (r *memoryAuditRepository) ListForBooking(ctx context.Context, bookingID string) ([]*model.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.AuditEntry, 0, len(r.entries[bookingID]))
	for _, e := range r.entries[bookingID] {
		out = append(out, copyEntry(e))
	}
	return out, nil
}

func copyEntry(e *model.AuditEntry) *model.AuditEntry {
	c := *e
	c.Details = maps.Clone(e.Details)
	return &c
}

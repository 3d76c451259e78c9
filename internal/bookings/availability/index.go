// Package availability answers "what is already taken" for a room and day.
package availability

import (
	"cmp"
	"context"
	"slices"

	"roombook/pkg/model"
)

// Lister is the slice of the booking store the index reads from.
type Lister interface {
	ListByRoomDate(ctx context.Context, roomID, date string) ([]*model.Booking, error)
}

type Index struct {
	store Lister
}

func NewIndex(store Lister) *Index {
	return &Index{store: store}
}

// GetOccupiedSlots returns the room's non-cancelled bookings for date, by
// start time. It takes no lock and reflects committed bookings only.
func (i *Index) GetOccupiedSlots(ctx context.Context, roomID, date string) ([]*model.Booking, error) {
	bookings, err := i.store.ListByRoomDate(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return Occupied(bookings), nil
}

// Occupied drops cancelled bookings and sorts the rest by start time, then
// end time, then id.
func Occupied(bookings []*model.Booking) []*model.Booking {
	out := make([]*model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b != nil && b.IsActive() {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Booking) int {
		return cmp.Or(
			compareClock(a.StartTime, b.StartTime),
			compareClock(a.EndTime, b.EndTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

func compareClock(a, b string) int {
	am, errA := model.ParseClock(a)
	bm, errB := model.ParseClock(b)
	if errA != nil || errB != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Compare(am, bm)
}

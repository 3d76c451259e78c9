package notify

import (
	"context"
	"time"

	"roombook/pkg/model"
)

type Event string

const (
	EventBookingCreated   Event = "booking.created"
	EventBookingCancelled Event = "booking.cancelled"
)

// Notification is the payload published for every booking lifecycle event.
// Downstream delivery (push, email) is handled outside this service.
type Notification struct {
	BookingID  string    `json:"booking_id"`
	Event      Event     `json:"event"`
	RoomID     string    `json:"room_id"`
	BookedBy   string    `json:"booked_by"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Priority   string    `json:"priority"`
	OccurredAt time.Time `json:"occurred_at"`
	// CorrelationID is the id of the HTTP request that caused the event.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// EventID is stable per booking and event so consumers can drop redeliveries.
func (n Notification) EventID() string {
	return n.BookingID + ":" + string(n.Event)
}

func NewNotification(b *model.Booking, event Event, at time.Time) Notification {
	return Notification{
		BookingID:  b.ID,
		Event:      event,
		RoomID:     b.RoomID,
		BookedBy:   b.BookedBy,
		Title:      b.Title,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Priority:   string(b.Priority),
		OccurredAt: at.UTC(),
	}
}

// Dispatcher hands a notification to a transport. Implementations may block
// on the network and must honour ctx.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
	Close() error
}

// Notifier is what the booking service depends on. Notify never blocks the
// caller and never reports failure.
type Notifier interface {
	Notify(n Notification)
}

type noopDispatcher struct{}

func NewNoopDispatcher() Dispatcher {
	return noopDispatcher{}
}

func (noopDispatcher) Dispatch(context.Context, Notification) error { return nil }
func (noopDispatcher) Close() error                                 { return nil }

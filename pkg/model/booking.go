package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type Booking struct {
	ID                 string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID             string        `json:"room_id" bson:"room_id" validate:"required,max=64"`
	BookedBy           string        `json:"booked_by" bson:"booked_by" validate:"required,max=128"`
	Title              string        `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Date               string        `json:"date" bson:"date" validate:"required,iso_date"`
	StartTime          string        `json:"start_time" bson:"start_time" validate:"required,clock_time"`
	EndTime            string        `json:"end_time" bson:"end_time" validate:"required,clock_time"`
	Priority           Priority      `json:"priority" bson:"priority" validate:"required,oneof=normal high leadership"`
	Status             BookingStatus `json:"status" bson:"status" validate:"required,oneof=scheduled cancelled completed"`
	CancellationReason *string       `json:"cancellation_reason" bson:"cancellation_reason"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is what a caller submits to reserve a room. The booker is
// never part of the request; it comes from the caller identity.
type BookingRequest struct {
	RoomID    string   `json:"room_id" validate:"required,max=64"`
	Title     string   `json:"title" validate:"required,min=2,max=200"`
	Date      string   `json:"date" validate:"required,iso_date"`
	StartTime string   `json:"start_time" validate:"required,clock_time"`
	EndTime   string   `json:"end_time" validate:"required,clock_time"`
	Priority  Priority `json:"priority" validate:"required,oneof=normal high leadership"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=2,max=500"`
}

// ParseClock converts an "HH:MM" wall-clock time into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// CanonicalClock rewrites a clock time into zero-padded "HH:MM" so stored
// values sort lexically in time order. Unparseable input is returned trimmed.
func CanonicalClock(s string) string {
	s = strings.TrimSpace(s)
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return s
	}
	return t.Format(ClockLayout)
}

// Minutes returns the booking's half-open interval [start, end) in minutes since midnight.
func (b *Booking) Minutes() (int, int, error) {
	start, err := ParseClock(b.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(b.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// EndsAt resolves the booking's end as an instant in loc.
func (b *Booking) EndsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+ClockLayout, b.Date+" "+CanonicalClock(b.EndTime), loc)
}

func (b *Booking) IsActive() bool {
	return b.Status != BookingStatusCancelled
}

// Clone returns a deep copy so stores can hand out snapshots.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.CancellationReason != nil {
		reason := *b.CancellationReason
		c.CancellationReason = &reason
	}
	return &c
}

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/clock"
	"roombook/pkg/model"
)

var fixedNow = time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)

func newBooking(room, date, start, end string) *model.Booking {
	return &model.Booking{
		RoomID:    room,
		BookedBy:  "u1",
		Title:     "Standup",
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Priority:  model.PriorityNormal,
		Status:    model.BookingStatusScheduled,
	}
}

func TestMemoryBookingRepository_InsertAndFind(t *testing.T) {
	repo := NewMemoryBookingRepository(clock.Fixed(fixedNow), time.Second)
	ctx := context.Background()

	b := newBooking("r1", "2025-06-01", "10:00", "11:00")
	if err := repo.Insert(ctx, b); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if b.ID == "" {
		t.Fatalf("Insert() should assign an ID")
	}
	if !b.CreatedAt.Equal(fixedNow) || !b.UpdatedAt.Equal(fixedNow) {
		t.Errorf("expected timestamps %v, got %v / %v", fixedNow, b.CreatedAt, b.UpdatedAt)
	}

	got, err := repo.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	got.Title = "mutated"

	again, _ := repo.FindByID(ctx, b.ID)
	if again.Title != "Standup" {
		t.Errorf("store leaked internal state: title is %q", again.Title)
	}
}

func TestMemoryBookingRepository_FindErrors(t *testing.T) {
	repo := NewMemoryBookingRepository(clock.Fixed(fixedNow), time.Second)

	if _, err := repo.FindByID(context.Background(), "not-an-id"); !errors.Is(err, bookingserrors.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), "65f1c2a4e13b5a0d9c7e4b21"); !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryBookingRepository_ListByRoomDateOrdering(t *testing.T) {
	repo := NewMemoryBookingRepository(clock.Fixed(fixedNow), time.Second)
	ctx := context.Background()

	for _, b := range []*model.Booking{
		newBooking("r1", "2025-06-01", "14:00", "15:00"),
		newBooking("r1", "2025-06-01", "09:00", "10:30"),
		newBooking("r1", "2025-06-01", "09:00", "09:30"),
		newBooking("r2", "2025-06-01", "08:00", "09:00"),
		newBooking("r1", "2025-06-02", "08:00", "09:00"),
	} {
		if err := repo.Insert(ctx, b); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	got, err := repo.ListByRoomDate(ctx, "r1", "2025-06-01")
	if err != nil {
		t.Fatalf("ListByRoomDate() error: %v", err)
	}
	want := [][2]string{{"09:00", "09:30"}, {"09:00", "10:30"}, {"14:00", "15:00"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d bookings, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].StartTime != w[0] || got[i].EndTime != w[1] {
			t.Errorf("position %d: got %s-%s, want %s-%s", i, got[i].StartTime, got[i].EndTime, w[0], w[1])
		}
	}
}

func TestMemoryBookingRepository_UpdateStatus(t *testing.T) {
	repo := NewMemoryBookingRepository(clock.Fixed(fixedNow), time.Second)
	ctx := context.Background()

	b := newBooking("r1", "2025-06-01", "10:00", "11:00")
	_ = repo.Insert(ctx, b)

	reason := "conflict"
	updated, err := repo.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled, &reason)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if updated.Status != model.BookingStatusCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
	if updated.CancellationReason == nil || *updated.CancellationReason != "conflict" {
		t.Errorf("expected cancellation reason to be stored, got %v", updated.CancellationReason)
	}

	second := "again"
	if _, err := repo.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled, &second); !errors.Is(err, bookingserrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second cancel, got %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, b.ID, model.BookingStatusCompleted, nil); !errors.Is(err, bookingserrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition cancelled->completed, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, b.ID)
	if stored.Status != model.BookingStatusCancelled || *stored.CancellationReason != "conflict" {
		t.Errorf("failed transition must leave booking unchanged, got %s / %v", stored.Status, *stored.CancellationReason)
	}

	if _, err := repo.UpdateStatus(ctx, "65f1c2a4e13b5a0d9c7e4b21", model.BookingStatusCancelled, nil); !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryBookingRepository_ConcurrentCancelSingleWinner(t *testing.T) {
	repo := NewMemoryBookingRepository(clock.Fixed(fixedNow), time.Second)
	ctx := context.Background()
	b := newBooking("r1", "2025-06-01", "10:00", "11:00")
	_ = repo.Insert(ctx, b)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled, nil); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful cancel, got %d", wins)
	}
}

func TestMemoryAuditRepository_AppendOnlyChronological(t *testing.T) {
	times := []time.Time{
		fixedNow,
		fixedNow.Add(time.Minute),
		fixedNow.Add(-time.Hour),
	}
	i := 0
	clk := clock.Func(func() time.Time {
		t := times[i%len(times)]
		i++
		return t
	})
	repo := NewMemoryAuditRepository(clk)
	ctx := context.Background()

	details := map[string]any{"reason": "conflict"}
	first, err := repo.Append(ctx, "b1", model.AuditActionCreated, "u1", nil)
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if first.ID == "" {
		t.Errorf("expected generated id")
	}
	_, _ = repo.Append(ctx, "b1", model.AuditActionCancelled, "u1", details)
	_, _ = repo.Append(ctx, "b1", model.AuditActionUpdated, "u1", nil)
	_, _ = repo.Append(ctx, "b2", model.AuditActionCreated, "u2", nil)

	details["reason"] = "changed after append"

	entries, err := repo.ListForBooking(ctx, "b1")
	if err != nil {
		t.Fatalf("ListForBooking() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for b1, got %d", len(entries))
	}
	for j := 1; j < len(entries); j++ {
		if entries[j].Timestamp.Before(entries[j-1].Timestamp) {
			t.Errorf("audit trail went backwards at %d: %v < %v", j, entries[j].Timestamp, entries[j-1].Timestamp)
		}
	}
	if entries[1].Action != model.AuditActionCancelled || entries[1].Details["reason"] != "conflict" {
		t.Errorf("expected cancelled entry with original reason, got %s %v", entries[1].Action, entries[1].Details)
	}

	entries[0].Action = model.AuditActionPriorityChanged
	again, _ := repo.ListForBooking(ctx, "b1")
	if again[0].Action != model.AuditActionCreated {
		t.Errorf("audit entries must be immutable through returned copies")
	}
}

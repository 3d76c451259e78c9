package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"roombook/internal/auth"
	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/validator"
	"roombook/internal/notify"
	roomsrepo "roombook/internal/rooms/repository"
	"roombook/pkg/clock"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
)

var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

const testDate = "2025-06-01"

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(note notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, s := range n.sent {
		out = append(out, s.Event)
	}
	return out
}

type mockAuditRepository struct {
	appendFunc func(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) (*model.AuditEntry, error)
	listFunc   func(ctx context.Context, bookingID string) ([]*model.AuditEntry, error)
}

func (m *mockAuditRepository) Append(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) (*model.AuditEntry, error) {
	return m.appendFunc(ctx, bookingID, action, performedBy, details)
}

func (m *mockAuditRepository) ListForBooking(ctx context.Context, bookingID string) ([]*model.AuditEntry, error) {
	return m.listFunc(ctx, bookingID)
}

// failingInsertRepository behaves like the wrapped store except for Insert.
type failingInsertRepository struct {
	repository.BookingRepository
	err error
}

func (r *failingInsertRepository) Insert(ctx context.Context, booking *model.Booking) error {
	return r.err
}

type busyRepository struct {
	repository.BookingRepository
}

func (r *busyRepository) WithSlotLock(ctx context.Context, roomID, date string, fn func(ctx context.Context) error) error {
	return bookingserrors.ErrSlotBusy
}

type fixture struct {
	svc      BookingService
	repo     repository.BookingRepository
	audit    repository.AuditRepository
	notifier *recordingNotifier
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	repo  repository.BookingRepository
	audit repository.AuditRepository
}

func withRepo(wrap func(repository.BookingRepository) repository.BookingRepository) fixtureOption {
	return func(d *fixtureDeps) { d.repo = wrap(d.repo) }
}

func withAudit(audit repository.AuditRepository) fixtureOption {
	return func(d *fixtureDeps) { d.audit = audit }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	clk := clock.Fixed(testNow)
	cfg := &config.Config{
		Log:          logger.Discard(),
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		SlotLockWait: 2 * time.Second,
		Location:     time.UTC,
	}

	deps := &fixtureDeps{
		repo:  repository.NewMemoryBookingRepository(clk, cfg.SlotLockWait),
		audit: repository.NewMemoryAuditRepository(clk),
	}
	for _, opt := range opts {
		opt(deps)
	}

	rooms := roomsrepo.NewMemoryRoomRepository(
		&model.Room{ID: "r1", Name: "Orion", Capacity: 8, Status: model.RoomStatusActive},
		&model.Room{ID: "r2", Name: "Vega", Capacity: 4, Status: model.RoomStatusActive},
		&model.Room{ID: "r3", Name: "Lyra", Capacity: 6, Status: model.RoomStatusMaintenance},
	)
	notifier := &recordingNotifier{}

	svc := NewBookingService(deps.repo, deps.audit, rooms, validator.NewBookingValidator(cfg.Log), notifier, clk, cfg)
	return &fixture{svc: svc, repo: deps.repo, audit: deps.audit, notifier: notifier}
}

func request(room, start, end string, p model.Priority) *model.BookingRequest {
	return &model.BookingRequest{
		RoomID:    room,
		Title:     "Weekly sync",
		Date:      testDate,
		StartTime: start,
		EndTime:   end,
		Priority:  p,
	}
}

var (
	employee = auth.NewCaller("u-employee", "employee")
	manager  = auth.NewCaller("u-manager", "manager")
	leader   = auth.NewCaller("u-leader", "leadership")
	admin    = auth.NewCaller("u-admin", "admin")
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)

	req := request("R1", "9:00", "10:30", "")
	req.Title = "  Weekly   sync "
	b, err := f.svc.Create(context.Background(), employee, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if b.ID == "" {
		t.Error("expected generated ID")
	}
	if b.RoomID != "r1" || b.StartTime != "09:00" || b.Title != "Weekly sync" {
		t.Errorf("request was not sanitized: %+v", b)
	}
	if b.Priority != model.PriorityNormal || b.Status != model.BookingStatusScheduled {
		t.Errorf("unexpected defaults: priority=%s status=%s", b.Priority, b.Status)
	}
	if b.BookedBy != employee.ID {
		t.Errorf("BookedBy = %q, want caller id", b.BookedBy)
	}

	entries, _ := f.audit.ListForBooking(context.Background(), b.ID)
	if len(entries) != 1 || entries[0].Action != model.AuditActionCreated || entries[0].PerformedBy != employee.ID {
		t.Fatalf("expected exactly one created audit entry, got %+v", entries)
	}
	if _, ok := entries[0].Details["overrode"]; ok {
		t.Error("no override expected for a free slot")
	}

	if got := f.notifier.events(); !slices.Equal(got, []notify.Event{notify.EventBookingCreated}) {
		t.Errorf("notifications = %v", got)
	}
}

func TestCreate_NotificationCarriesRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")

	if _, err := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].CorrelationID != "req-123" {
		t.Errorf("notifications = %+v", f.notifier.sent)
	}
}

func TestCreate_PriorityOverrideScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original, err := f.svc.Create(ctx, employee, request("r1", "10:00", "11:00", model.PriorityNormal))
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	_, err = f.svc.Create(ctx, manager, request("r1", "10:30", "11:30", model.PriorityNormal))
	assertCode(t, err, apperrors.CodeSlotUnavailable)
	appErr := apperrors.AsAppError(err)
	ids, _ := appErr.Details["conflicting_booking_ids"].([]string)
	if !slices.Equal(ids, []string{original.ID}) {
		t.Errorf("conflicting ids = %v, want [%s]", ids, original.ID)
	}

	high, err := f.svc.Create(ctx, manager, request("r1", "10:30", "11:30", model.PriorityHigh))
	if err != nil {
		t.Fatalf("high priority request should override: %v", err)
	}

	stored, err := f.svc.GetByID(ctx, employee, original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != model.BookingStatusScheduled {
		t.Errorf("overridden booking status = %s, want scheduled", stored.Status)
	}

	entries, _ := f.audit.ListForBooking(ctx, high.ID)
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	overrode, _ := entries[0].Details["overrode"].([]string)
	if !slices.Equal(overrode, []string{original.ID}) {
		t.Errorf("audit overrode = %v, want [%s]", entries[0].Details["overrode"], original.ID)
	}
}

func TestCreate_ConflictMatrix(t *testing.T) {
	tests := []struct {
		name     string
		existing model.Priority
		incoming model.Priority
		caller   auth.Caller
		start    string
		end      string
		wantCode string
	}{
		{"equal normal rejects", model.PriorityNormal, model.PriorityNormal, employee, "09:30", "10:30", apperrors.CodeSlotUnavailable},
		{"equal leadership rejects", model.PriorityLeadership, model.PriorityLeadership, leader, "09:00", "10:00", apperrors.CodeSlotUnavailable},
		{"lower rejects", model.PriorityHigh, model.PriorityNormal, employee, "09:15", "09:45", apperrors.CodeSlotUnavailable},
		{"leadership over high accepts", model.PriorityHigh, model.PriorityLeadership, leader, "09:30", "10:30", ""},
		{"leadership role books high over normal", model.PriorityNormal, model.PriorityHigh, leader, "09:00", "10:00", ""},
		{"back to back accepts", model.PriorityLeadership, model.PriorityNormal, employee, "10:00", "11:00", ""},
		{"ends at start accepts", model.PriorityLeadership, model.PriorityNormal, employee, "08:30", "09:00", ""},
		{"enclosing rejects", model.PriorityNormal, model.PriorityNormal, employee, "08:30", "11:00", apperrors.CodeSlotUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if _, err := f.svc.Create(ctx, admin, request("r1", "09:00", "10:00", tt.existing)); err != nil {
				t.Fatalf("seed booking: %v", err)
			}

			_, err := f.svc.Create(ctx, tt.caller, request("r1", tt.start, tt.end, tt.incoming))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected accept, got %v", err)
				}
				return
			}
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestCreate_OtherRoomsAndCancelledDoNotConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.svc.Create(ctx, employee, request("r2", "09:00", "10:00", model.PriorityNormal)); err != nil {
		t.Fatalf("other room should not conflict: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, employee, first.ID, &model.CancelRequest{Reason: "moved"}); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal)); err != nil {
		t.Fatalf("cancelled booking should free the slot: %v", err)
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		caller   auth.Caller
		req      *model.BookingRequest
		wantCode string
	}{
		{"anonymous", auth.Caller{}, request("r1", "09:00", "10:00", model.PriorityNormal), apperrors.CodeUnauthorized},
		{"employee high", employee, request("r1", "09:00", "10:00", model.PriorityHigh), apperrors.CodeForbidden},
		{"manager leadership", manager, request("r1", "09:00", "10:00", model.PriorityLeadership), apperrors.CodeForbidden},
		{"unknown room", employee, request("nowhere", "09:00", "10:00", model.PriorityNormal), apperrors.CodeNotFound},
		{"maintenance room", employee, request("r3", "09:00", "10:00", model.PriorityNormal), apperrors.CodeValidation},
		{"end before start", employee, request("r1", "10:00", "09:00", model.PriorityNormal), apperrors.CodeValidation},
		{"zero length", employee, request("r1", "10:00", "10:00", model.PriorityNormal), apperrors.CodeValidation},
		{"bad clock", employee, request("r1", "25:00", "26:00", model.PriorityNormal), apperrors.CodeValidation},
		{"unknown priority", admin, request("r1", "09:00", "10:00", model.Priority("urgent")), apperrors.CodeValidation},
		{"start already passed today", employee, request("r1", "07:30", "09:00", model.PriorityNormal), apperrors.CodeValidation},
		{"missing title", employee, func() *model.BookingRequest {
			r := request("r1", "09:00", "10:00", model.PriorityNormal)
			r.Title = "   "
			return r
		}(), apperrors.CodeValidation},
		{"past date", employee, func() *model.BookingRequest {
			r := request("r1", "09:00", "10:00", model.PriorityNormal)
			r.Date = "2025-05-31"
			return r
		}(), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tt.caller, tt.req)
			assertCode(t, err, tt.wantCode)
			if len(f.notifier.events()) != 0 {
				t.Error("rejected booking must not notify")
			}
		})
	}
}

func TestCreate_ConcurrentRequestsSingleWinner(t *testing.T) {
	f := newFixture(t)
	const workers = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	var created, rejected int

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), employee, request("r1", "13:00", "14:00", model.PriorityNormal))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.HasCode(err, apperrors.CodeSlotUnavailable):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || rejected != workers-1 {
		t.Fatalf("created=%d rejected=%d, want exactly one winner", created, rejected)
	}

	slots, err := f.svc.OccupiedSlots(context.Background(), "r1", testDate)
	if err != nil {
		t.Fatalf("OccupiedSlots() error = %v", err)
	}
	if len(slots) != 1 {
		t.Errorf("occupied slots = %d, want 1", len(slots))
	}
}

func TestCreate_AuditFailureIsNotFatal(t *testing.T) {
	audit := &mockAuditRepository{
		appendFunc: func(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) (*model.AuditEntry, error) {
			return nil, errors.New("audit store down")
		},
	}
	f := newFixture(t, withAudit(audit))

	b, err := f.svc.Create(context.Background(), employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	if err != nil {
		t.Fatalf("audit failure must not fail the booking: %v", err)
	}
	if _, err := f.repo.FindByID(context.Background(), b.ID); err != nil {
		t.Errorf("booking should be persisted: %v", err)
	}
	if len(f.notifier.events()) != 1 {
		t.Error("booking should still notify")
	}
}

func TestCreate_StorageFailure(t *testing.T) {
	f := newFixture(t, withRepo(func(r repository.BookingRepository) repository.BookingRepository {
		return &failingInsertRepository{BookingRepository: r, err: errors.New("write concern failed")}
	}))

	_, err := f.svc.Create(context.Background(), employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	assertCode(t, err, apperrors.CodeStorage)
	if appErr := apperrors.AsAppError(err); appErr.Message == "" || appErr.Message == "write concern failed" {
		t.Errorf("storage error should carry a generic message, got %q", appErr.Message)
	}
}

func TestCreate_SlotBusy(t *testing.T) {
	f := newFixture(t, withRepo(func(r repository.BookingRepository) repository.BookingRepository {
		return &busyRepository{BookingRepository: r}
	}))

	_, err := f.svc.Create(context.Background(), employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	assertCode(t, err, apperrors.CodeUnavailable)
}

func TestCancel_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, employee, b.ID, &model.CancelRequest{Reason: "conflict"})
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != model.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "conflict" {
		t.Errorf("cancellation reason = %v", cancelled.CancellationReason)
	}

	entries, _ := f.audit.ListForBooking(ctx, b.ID)
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	last := entries[1]
	if last.Action != model.AuditActionCancelled || last.Details["reason"] != "conflict" {
		t.Errorf("unexpected cancel entry: %+v", last)
	}

	_, err = f.svc.Cancel(ctx, employee, b.ID, &model.CancelRequest{Reason: "again"})
	assertCode(t, err, apperrors.CodeInvalidTransition)

	stored, _ := f.repo.FindByID(ctx, b.ID)
	if stored.Status != model.BookingStatusCancelled || *stored.CancellationReason != "conflict" {
		t.Errorf("second cancel must not change the booking: %+v", stored)
	}
	if entries, _ := f.audit.ListForBooking(ctx, b.ID); len(entries) != 2 {
		t.Errorf("failed cancel must not be audited, got %d entries", len(entries))
	}

	if got := f.notifier.events(); !slices.Equal(got, []notify.Event{notify.EventBookingCreated, notify.EventBookingCancelled}) {
		t.Errorf("notifications = %v", got)
	}
}

func TestCancel_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name     string
		caller   auth.Caller
		id       string
		reason   string
		wantCode string
	}{
		{"anonymous", auth.Caller{}, b.ID, "conflict", apperrors.CodeUnauthorized},
		{"not owner", manager, b.ID, "conflict", apperrors.CodeForbidden},
		{"missing reason", employee, b.ID, " ", apperrors.CodeValidation},
		{"unknown id", employee, "66f1c0ffee0000000000abcd", "conflict", apperrors.CodeNotFound},
		{"malformed id", employee, "nope", "conflict", apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Cancel(ctx, tt.caller, tt.id, &model.CancelRequest{Reason: tt.reason})
			assertCode(t, err, tt.wantCode)
		})
	}

	if _, err := f.svc.Cancel(ctx, admin, b.ID, &model.CancelRequest{Reason: "facilities"}); err != nil {
		t.Errorf("admin should be able to cancel: %v", err)
	}
}

func TestCancel_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, invalid int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Cancel(ctx, employee, b.ID, &model.CancelRequest{Reason: "conflict"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
				invalid++
			}
		}()
	}
	wg.Wait()

	if ok != 1 || invalid != 9 {
		t.Fatalf("ok=%d invalid=%d, want one successful cancellation", ok, invalid)
	}
	entries, _ := f.audit.ListForBooking(ctx, b.ID)
	if len(entries) != 2 {
		t.Errorf("audit entries = %d, want created + one cancelled", len(entries))
	}
}

func TestOccupiedSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, _ := f.svc.Create(ctx, employee, request("r1", "15:00", "16:00", model.PriorityNormal))
	early, _ := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	dropped, _ := f.svc.Create(ctx, employee, request("r1", "12:00", "13:00", model.PriorityNormal))
	if _, err := f.svc.Cancel(ctx, employee, dropped.ID, &model.CancelRequest{Reason: "not needed"}); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	slots, err := f.svc.OccupiedSlots(ctx, "r1", testDate)
	if err != nil {
		t.Fatalf("OccupiedSlots() error = %v", err)
	}

	var ids []string
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	if !slices.Equal(ids, []string{early.ID, late.ID}) {
		t.Errorf("slots = %v, want [%s %s]", ids, early.ID, late.ID)
	}

	_, err = f.svc.OccupiedSlots(ctx, "missing", testDate)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, _ := f.svc.Create(ctx, employee, request("r1", "09:00", "10:00", model.PriorityNormal))
	if _, err := f.svc.Cancel(ctx, employee, b.ID, &model.CancelRequest{Reason: "conflict"}); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	asc, err := f.svc.AuditTrail(ctx, employee, b.ID, SortAsc)
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if len(asc) != 2 || asc[0].Action != model.AuditActionCreated {
		t.Fatalf("unexpected ascending trail: %+v", asc)
	}
	for i := 1; i < len(asc); i++ {
		if asc[i].Timestamp.Before(asc[i-1].Timestamp) {
			t.Errorf("audit trail not chronological at %d", i)
		}
	}

	desc, err := f.svc.AuditTrail(ctx, admin, b.ID, SortDesc)
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if desc[0].Action != model.AuditActionCancelled {
		t.Errorf("descending trail should start with the cancellation, got %s", desc[0].Action)
	}

	_, err = f.svc.AuditTrail(ctx, manager, b.ID, SortAsc)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Seed directly so bookings in the past can exist.
	seed := func(date, start, end string, status model.BookingStatus) *model.Booking {
		b := &model.Booking{
			RoomID: "r1", BookedBy: employee.ID, Title: "Sync", Date: date,
			StartTime: start, EndTime: end, Priority: model.PriorityNormal, Status: model.BookingStatusScheduled,
		}
		if err := f.repo.Insert(ctx, b); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if status != model.BookingStatusScheduled {
			if _, err := f.repo.UpdateStatus(ctx, b.ID, status, nil); err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
		}
		return b
	}

	yesterday := seed("2025-05-31", "09:00", "10:00", model.BookingStatusScheduled)
	endedToday := seed(testDate, "06:00", "07:00", model.BookingStatusScheduled)
	runningNow := seed(testDate, "07:30", "08:30", model.BookingStatusScheduled)
	tomorrow := seed("2025-06-02", "09:00", "10:00", model.BookingStatusScheduled)
	cancelledFuture := seed("2025-06-03", "09:00", "10:00", model.BookingStatusCancelled)

	got, err := f.svc.ListForUser(ctx, employee, "")
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}

	ids := func(bs []*model.Booking) []string {
		var out []string
		for _, b := range bs {
			out = append(out, b.ID)
		}
		return out
	}
	if want := []string{runningNow.ID, tomorrow.ID}; !slices.Equal(ids(got.Upcoming), want) {
		t.Errorf("upcoming = %v, want %v", ids(got.Upcoming), want)
	}
	if want := []string{cancelledFuture.ID, endedToday.ID, yesterday.ID}; !slices.Equal(ids(got.Past), want) {
		t.Errorf("past = %v, want %v", ids(got.Past), want)
	}

	_, err = f.svc.ListForUser(ctx, manager, employee.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := f.svc.ListForUser(ctx, admin, employee.ID); err != nil {
		t.Errorf("admin should list any user: %v", err)
	}
}

func TestActiveRooms(t *testing.T) {
	f := newFixture(t)

	rooms, err := f.svc.ActiveRooms(context.Background())
	if err != nil {
		t.Fatalf("ActiveRooms() error = %v", err)
	}
	for _, r := range rooms {
		if r.Status != model.RoomStatusActive {
			t.Errorf("inactive room %s listed", r.ID)
		}
	}
	if len(rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(rooms))
	}
}

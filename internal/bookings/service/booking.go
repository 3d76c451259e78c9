package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"roombook/internal/auth"
	"roombook/internal/bookings/availability"
	"roombook/internal/bookings/conflict"
	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/validator"
	"roombook/internal/notify"
	roomsrepo "roombook/internal/rooms/repository"
	"roombook/pkg/clock"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// UserBookings splits a user's bookings around "now": Upcoming holds scheduled
// bookings that have not ended, soonest first; Past holds everything else,
// most recent first.
type UserBookings struct {
	Upcoming []*model.Booking `json:"upcoming"`
	Past     []*model.Booking `json:"past"`
}

type BookingService interface {
	Create(ctx context.Context, caller auth.Caller, req *model.BookingRequest) (*model.Booking, error)
	Cancel(ctx context.Context, caller auth.Caller, id string, req *model.CancelRequest) (*model.Booking, error)
	GetByID(ctx context.Context, caller auth.Caller, id string) (*model.Booking, error)
	AuditTrail(ctx context.Context, caller auth.Caller, id string, order string) ([]*model.AuditEntry, error)
	ListForUser(ctx context.Context, caller auth.Caller, userID string) (*UserBookings, error)
	OccupiedSlots(ctx context.Context, roomID, date string) ([]*model.Booking, error)
	ActiveRooms(ctx context.Context) ([]*model.Room, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	audit     repository.AuditRepository
	rooms     roomsrepo.RoomRepository
	index     *availability.Index
	validator *validator.BookingValidator
	notifier  notify.Notifier
	clock     clock.Clock
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	audit repository.AuditRepository,
	rooms roomsrepo.RoomRepository,
	validator *validator.BookingValidator,
	notifier notify.Notifier,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		audit:     audit,
		rooms:     rooms,
		index:     availability.NewIndex(repo),
		validator: validator,
		notifier:  notifier,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, caller auth.Caller, req *model.BookingRequest) (*model.Booking, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	s.applyDefaults(req)
	s.sanitize(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if !auth.CanBook(caller, req.Priority) {
		s.cfg.Log.Warn("Booking priority not permitted",
			"caller", caller.ID,
			"priority", req.Priority,
		)
		return nil, apperrors.Forbidden(fmt.Sprintf("You are not allowed to book at %s priority", req.Priority))
	}

	if err := s.checkRoom(ctx, req.RoomID); err != nil {
		return nil, err
	}

	start, _ := model.ParseClock(req.StartTime)
	end, _ := model.ParseClock(req.EndTime)
	if err := s.checkNotPast(req.Date, start); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		RoomID:    req.RoomID,
		BookedBy:  caller.ID,
		Title:     req.Title,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Priority:  req.Priority,
		Status:    model.BookingStatusScheduled,
	}

	var decision conflict.Decision
	err := s.repo.WithSlotLock(ctx, req.RoomID, req.Date, func(ctx context.Context) error {
		existing, err := s.repo.ListByRoomDate(ctx, req.RoomID, req.Date)
		if err != nil {
			return apperrors.Storage("list bookings", err)
		}

		conflicts := conflict.FindConflicts(existing, req.RoomID, req.Date, conflict.Interval{Start: start, End: end}, "")
		decision = conflict.Resolve(req.Priority, conflicts)
		if !decision.Accepted() {
			return slotUnavailable(req, decision)
		}

		if err := s.repo.Insert(ctx, booking); err != nil {
			return apperrors.Storage("insert booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapError("create booking", err)
	}

	details := map[string]any{
		"room_id":    booking.RoomID,
		"title":      booking.Title,
		"date":       booking.Date,
		"start_time": booking.StartTime,
		"end_time":   booking.EndTime,
		"priority":   string(booking.Priority),
	}
	if len(decision.Overridden) > 0 {
		overrode := conflict.IDs(decision.Overridden)
		details["overrode"] = overrode
		s.cfg.Log.Warn("Booking overlaps lower-priority bookings, which stay scheduled",
			"id", booking.ID,
			"room_id", booking.RoomID,
			"date", booking.Date,
			"priority", booking.Priority,
			"overrode", overrode,
		)
	}
	s.appendAudit(ctx, booking.ID, model.AuditActionCreated, caller.ID, details)
	s.notify(ctx, booking, notify.EventBookingCreated)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"date", booking.Date,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
		"priority", booking.Priority,
		"booked_by", booking.BookedBy,
	)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, caller auth.Caller, id string, req *model.CancelRequest) (*model.Booking, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if req == nil {
		req = &model.CancelRequest{}
	}
	req.Reason = sanitizer.SanitizeTitle(req.Reason)
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, validationError("Cancellation validation failed", err)
	}

	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageBooking(caller, existing) {
		return nil, apperrors.Forbidden("Only the booking owner or an admin can cancel this booking")
	}
	if !existing.Status.CanTransitionTo(model.BookingStatusCancelled) {
		return nil, apperrors.InvalidTransition("Booking", id, string(existing.Status), string(model.BookingStatusCancelled))
	}

	reason := req.Reason
	updated, err := s.repo.UpdateStatus(ctx, id, model.BookingStatusCancelled, &reason)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id)
		case errors.Is(err, bookingserrors.ErrInvalidTransition):
			// Lost a race with another cancellation.
			return nil, apperrors.InvalidTransition("Booking", id, s.currentStatus(ctx, id), string(model.BookingStatusCancelled))
		}
		return nil, s.mapError("cancel booking", err)
	}

	s.appendAudit(ctx, id, model.AuditActionCancelled, caller.ID, map[string]any{"reason": reason})
	s.notify(ctx, updated, notify.EventBookingCancelled)

	s.cfg.Log.Info("Booking cancelled successfully",
		"id", id,
		"room_id", updated.RoomID,
		"cancelled_by", caller.ID,
	)
	return updated, nil
}

func (s *bookingService) GetByID(ctx context.Context, caller auth.Caller, id string) (*model.Booking, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return s.find(ctx, id)
}

func (s *bookingService) AuditTrail(ctx context.Context, caller auth.Caller, id string, order string) ([]*model.AuditEntry, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageBooking(caller, booking) {
		return nil, apperrors.Forbidden("Only the booking owner or an admin can view the audit trail")
	}

	entries, err := s.audit.ListForBooking(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to list audit trail", "id", id, "error", err)
		return nil, s.mapError("list audit trail", err)
	}
	if order == SortDesc {
		slices.Reverse(entries)
	}
	return entries, nil
}

func (s *bookingService) ListForUser(ctx context.Context, caller auth.Caller, userID string) (*UserBookings, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if userID == "" {
		userID = caller.ID
	}
	if !auth.CanViewUser(caller, userID) {
		return nil, apperrors.Forbidden("You can only list your own bookings")
	}

	bookings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings for user", "user_id", userID, "error", err)
		return nil, s.mapError("list bookings", err)
	}

	return s.partition(bookings), nil
}

func (s *bookingService) OccupiedSlots(ctx context.Context, roomID, date string) ([]*model.Booking, error) {
	roomID = sanitizer.SanitizeSlug(roomID)
	if roomID == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, roomsrepo.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", roomID)
		}
		return nil, s.mapError("find room", err)
	}

	slots, err := s.index.GetOccupiedSlots(ctx, roomID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list occupied slots", "room_id", roomID, "date", date, "error", err)
		return nil, s.mapError("list occupied slots", err)
	}
	return slots, nil
}

func (s *bookingService) ActiveRooms(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list active rooms", "error", err)
		return nil, s.mapError("list rooms", err)
	}
	return rooms, nil
}

// --- Helpers ---

func (s *bookingService) applyDefaults(req *model.BookingRequest) {
	if req.Priority == "" {
		req.Priority = model.PriorityNormal
	}
}

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.RoomID = sanitizer.SanitizeSlug(req.RoomID)
	req.Title = sanitizer.SanitizeTitle(req.Title)
	req.Date = sanitizer.TrimAndNormalize(req.Date)
	req.StartTime = model.CanonicalClock(req.StartTime)
	req.EndTime = model.CanonicalClock(req.EndTime)
}

func (s *bookingService) validate(req *model.BookingRequest) error {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return validationError("Booking validation failed", err)
	}
	return nil
}

func validationError(message string, err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func (s *bookingService) checkRoom(ctx context.Context, roomID string) error {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, roomsrepo.ErrNotFound) {
			return apperrors.NotFoundWithID("Room", roomID)
		}
		s.cfg.Log.Error("Failed to look up room", "room_id", roomID, "error", err)
		return s.mapError("find room", err)
	}
	if !room.IsActive() {
		return apperrors.Validation("Room is not available for booking", map[string]any{
			"room_id": roomID,
			"status":  string(room.Status),
		})
	}
	return nil
}

// checkNotPast rejects dates before today and, for today, start times that
// have already passed, both in the configured time zone.
func (s *bookingService) checkNotPast(date string, start int) error {
	now := s.clock.Now().In(s.location())
	today := now.Format(model.DateLayout)

	if date < today {
		return apperrors.Validation("Booking date is in the past", map[string]any{
			"date":  date,
			"today": today,
		})
	}
	if date == today && start < now.Hour()*60+now.Minute() {
		return apperrors.Validation("Booking start time has already passed", map[string]any{
			"date":       date,
			"start_time": fmt.Sprintf("%02d:%02d", start/60, start%60),
		})
	}
	return nil
}

func (s *bookingService) location() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.UTC
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, s.mapError("find booking", err)
	}
	return booking, nil
}

func (s *bookingService) currentStatus(ctx context.Context, id string) string {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "unknown"
	}
	return string(b.Status)
}

// appendAudit never fails the caller. A lost entry is logged for
// reconciliation and the mutation stands.
func (s *bookingService) appendAudit(ctx context.Context, bookingID string, action model.AuditAction, performedBy string, details map[string]any) {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	if _, err := s.audit.Append(auditCtx, bookingID, action, performedBy, details); err != nil {
		s.cfg.Log.Warn("Failed to append audit entry",
			"failure", "AuditWriteFailure",
			"booking_id", bookingID,
			"action", action,
			"performed_by", performedBy,
			"reconcile", true,
			"error", err,
		)
	}
}

// notify tags the event with the request id so downstream logs line up.
func (s *bookingService) notify(ctx context.Context, b *model.Booking, event notify.Event) {
	n := notify.NewNotification(b, event, s.clock.Now())
	n.CorrelationID = middleware.RequestID(ctx)
	s.notifier.Notify(n)
}

func (s *bookingService) partition(bookings []*model.Booking) *UserBookings {
	now := s.clock.Now()
	loc := s.location()
	out := &UserBookings{
		Upcoming: []*model.Booking{},
		Past:     []*model.Booking{},
	}

	for _, b := range bookings {
		endsAt, err := b.EndsAt(loc)
		if err == nil && !b.Status.IsTerminal() && endsAt.After(now) {
			out.Upcoming = append(out.Upcoming, b)
			continue
		}
		out.Past = append(out.Past, b)
	}

	byStart := func(a, b *model.Booking) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	}
	slices.SortStableFunc(out.Upcoming, byStart)
	slices.SortStableFunc(out.Past, func(a, b *model.Booking) int { return byStart(b, a) })
	return out
}

func slotUnavailable(req *model.BookingRequest, d conflict.Decision) *apperrors.AppError {
	msg := fmt.Sprintf(
		"Room %s is already booked on %s between %s and %s by %d booking(s) of %s priority or higher. "+
			"Only a booking with strictly higher priority can override an existing one.",
		req.RoomID, req.Date, req.StartTime, req.EndTime, len(d.Blocking), req.Priority,
	)
	return apperrors.SlotUnavailable(msg, conflict.IDs(d.Blocking))
}

// mapError turns repository and context failures into AppErrors. AppErrors
// raised inside the slot lock pass through unchanged.
func (s *bookingService) mapError(operation string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == apperrors.CodeStorage {
			s.cfg.Log.Error("Storage failure", "operation", operation, "error", err)
		}
		return appErr
	}

	switch {
	case errors.Is(err, bookingserrors.ErrSlotBusy):
		s.cfg.Log.Warn("Room slot busy", "operation", operation, "error", err)
		return apperrors.Unavailable("Booking for this room and date")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Timeout("The request took too long, please try again")
	}

	s.cfg.Log.Error("Storage failure", "operation", operation, "error", err)
	return apperrors.Storage(operation, err)
}

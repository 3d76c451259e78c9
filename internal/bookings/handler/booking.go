package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"roombook/internal/auth"
	"roombook/internal/bookings/service"
	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "Create")
	if !ok {
		return
	}

	var req model.BookingRequest
	if !h.decode(w, r, "Create", &req) {
		return
	}

	booking, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.service.GetByID(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Cancel")
	if !ok {
		return
	}

	var req model.CancelRequest
	if !h.decode(w, r, "Cancel", &req) {
		return
	}

	booking, err := h.service.Cancel(r.Context(), caller, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) AuditTrail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "AuditTrail")
	if !ok {
		return
	}

	order, err := httputil.ExtractOrder(r)
	if err != nil {
		h.writeError(w, "AuditTrail", err)
		return
	}

	entries, err := h.service.AuditTrail(r.Context(), caller, ps.ByName("id"), order)
	if err != nil {
		h.writeError(w, "AuditTrail", err)
		return
	}

	if err := httputil.WriteList(w, entries, len(entries)); err != nil {
		h.log.Error("failed to write list response", "handler", "AuditTrail", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "Mine")
	if !ok {
		return
	}

	bookings, err := h.service.ListForUser(r.Context(), caller, r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, "Mine", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "Mine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.ActiveRooms(r.Context())
	if err != nil {
		h.writeError(w, "ListRooms", err)
		return
	}

	if err := httputil.WriteList(w, rooms, len(rooms)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListRooms", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) OccupiedSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date, err := httputil.ExtractDate(r, "date")
	if err != nil {
		h.writeError(w, "OccupiedSlots", err)
		return
	}

	slots, err := h.service.OccupiedSlots(r.Context(), ps.ByName("room_id"), date)
	if err != nil {
		h.writeError(w, "OccupiedSlots", err)
		return
	}

	if err := httputil.WriteList(w, slots, len(slots)); err != nil {
		h.log.Error("failed to write list response", "handler", "OccupiedSlots", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) caller(w http.ResponseWriter, r *http.Request, handler string) (auth.Caller, bool) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
		return auth.Caller{}, false
	}
	return caller, true
}

func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, handler string, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	status, message := http.StatusBadRequest, "Invalid request body"
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status, message = http.StatusRequestEntityTooLarge, "Request body too large"
	}
	if writeErr := httputil.WriteJSON(w, status, httputil.ErrorResponse{
		Error: message,
		Code:  apperrors.CodeBadRequest,
	}); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", writeErr)
	}
	return false
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/mine", h.Mine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/bookings/id/:id/audit", h.AuditTrail)
	router.GET("/api/v1/rooms", h.ListRooms)
	router.GET("/api/v1/rooms/:room_id/slots", h.OccupiedSlots)
}

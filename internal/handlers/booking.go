package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barberbook/barberbook/internal/availability"
	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/service"
	"github.com/barberbook/barberbook/internal/storage"
)

// BookingHandler exposes slot discovery and the booking lifecycle over HTTP.
// All domain rules live in the services; this layer parses, authorizes, and
// maps errors to status codes.
type BookingHandler struct {
	slots     *service.AvailabilityService
	lifecycle *service.LifecycleService
	bookings  *storage.BookingRepository
	business  *storage.BusinessRepository
	logger    *slog.Logger
}

func NewBookingHandler(slots *service.AvailabilityService, lifecycle *service.LifecycleService, bookings *storage.BookingRepository, business *storage.BusinessRepository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		slots:     slots,
		lifecycle: lifecycle,
		bookings:  bookings,
		business:  business,
		logger:    logger,
	}
}

type bookingItem struct {
	BookingID       string `json:"booking_id"`
	BusinessID      string `json:"business_id"`
	BarberID        string `json:"barber_id"`
	CustomerID      string `json:"customer_id"`
	ServiceID       string `json:"service_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toBookingItem(b booking.Booking) bookingItem {
	return bookingItem{
		BookingID:       b.ID,
		BusinessID:      b.BusinessID,
		BarberID:        b.BarberID,
		CustomerID:      b.CustomerID,
		ServiceID:       b.ServiceID,
		StartTime:       b.StartTime.UTC().Format(time.RFC3339),
		EndTime:         b.EndTime().UTC().Format(time.RFC3339),
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Slots answers GET /api/v1/public/slots?business_id=&barber_id=&service_id=&date=YYYY-MM-DD.
// The date is interpreted in the business's timezone. The response carries
// every candidate slot, booked ones flagged unavailable, so clients can
// render the full grid.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	barberID := strings.TrimSpace(q.Get("barber_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if businessID == "" || barberID == "" || serviceID == "" || dateStr == "" {
		http.Error(w, "business_id, barber_id, service_id, and date are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	profile, err := h.business.GetProfile(ctx, businessID)
	if err != nil {
		h.writeError(w, err, "load business")
		return
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	durationMins, err := h.business.ServiceDuration(ctx, businessID, serviceID)
	if err != nil {
		h.writeError(w, err, "load service")
		return
	}
	week, err := h.business.WeeklySchedule(ctx, businessID)
	if err != nil {
		h.writeError(w, err, "load schedule")
		return
	}

	slots, err := h.slots.SlotsForDay(ctx, barberID, day, week, time.Duration(durationMins)*time.Minute)
	if err != nil {
		h.writeError(w, err, "compute slots")
		return
	}
	if slots == nil {
		slots = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

type createBookingRequest struct {
	BusinessID string `json:"business_id"`
	BarberID   string `json:"barber_id"`
	ServiceID  string `json:"service_id"`
	StartTime  string `json:"start_time"`
	Notes      string `json:"notes"`
}

// Create answers POST /api/v1/public/book. The caller identity comes from
// the auth middleware; an Idempotency-Key header makes retries return the
// originally created booking.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	customerID := CallerID(r)
	if customerID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.BarberID = strings.TrimSpace(req.BarberID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.BusinessID == "" || req.BarberID == "" || req.ServiceID == "" {
		http.Error(w, "business_id, barber_id, and service_id are required", http.StatusBadRequest)
		return
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time, want RFC3339", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		if bookingID, seen, err := h.bookings.LookupIdempotencyKey(ctx, req.BusinessID, idempotencyKey); err == nil && seen {
			if b, err := h.bookings.Get(ctx, req.BusinessID, bookingID); err == nil {
				writeJSON(w, http.StatusOK, toBookingItem(b))
				return
			}
		}
	}

	durationMins, err := h.business.ServiceDuration(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		h.writeError(w, err, "load service")
		return
	}

	created, err := h.lifecycle.Create(ctx, service.CreateInput{
		BusinessID:      req.BusinessID,
		BarberID:        req.BarberID,
		CustomerID:      customerID,
		ServiceID:       req.ServiceID,
		StartTime:       startTime,
		DurationMinutes: durationMins,
		Notes:           strings.TrimSpace(req.Notes),
	})
	if err != nil {
		// A retried request can lose the insert race to its own first
		// attempt; the idempotency key resolves that to the original row.
		if idempotencyKey != "" && errors.Is(err, booking.ErrSlotTaken) {
			if bookingID, seen, lerr := h.bookings.LookupIdempotencyKey(ctx, req.BusinessID, idempotencyKey); lerr == nil && seen {
				if b, gerr := h.bookings.Get(ctx, req.BusinessID, bookingID); gerr == nil {
					writeJSON(w, http.StatusOK, toBookingItem(b))
					return
				}
			}
		}
		h.writeError(w, err, "create booking")
		return
	}

	if idempotencyKey != "" {
		if err := h.bookings.SaveIdempotencyKey(ctx, req.BusinessID, idempotencyKey, created.ID); err != nil {
			h.logger.Warn("failed to save idempotency key", "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, toBookingItem(created))
}

// ListMine answers GET /api/v1/bookings for the authenticated customer.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	customerID := CallerID(r)
	if customerID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	list, err := h.bookings.ListForCustomer(r.Context(), customerID, limit)
	if err != nil {
		h.writeError(w, err, "list bookings")
		return
	}
	items := make([]bookingItem, 0, len(list))
	for _, b := range list {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}

type bookingActionRequest struct {
	BusinessID string `json:"business_id"`
	BookingID  string `json:"booking_id"`
}

// Cancel answers POST /api/v1/bookings/cancel. Customers may only cancel
// their own bookings; owners may cancel any booking of their business.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	b, err := h.bookings.Get(ctx, req.BusinessID, req.BookingID)
	if err != nil {
		h.writeError(w, err, "load booking")
		return
	}
	if CallerRole(r) != RoleOwner && b.CustomerID != CallerID(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cancelled, err := h.lifecycle.Cancel(ctx, req.BusinessID, req.BookingID)
	if err != nil {
		h.writeError(w, err, "cancel booking")
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(cancelled))
}

// Confirm answers POST /api/v1/owner/bookings/confirm.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(w, r, h.lifecycle.Confirm)
}

// Complete answers POST /api/v1/owner/bookings/complete.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(w, r, h.lifecycle.Complete)
}

// DayAgenda answers GET /api/v1/owner/agenda?date=YYYY-MM-DD: every booking
// of the business on that local date, cancelled ones included.
func (h *BookingHandler) DayAgenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID := CallerBusinessID(r)
	if businessID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	profile, err := h.business.GetProfile(ctx, businessID)
	if err != nil {
		h.writeError(w, err, "load business")
		return
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(r.URL.Query().Get("date")), loc)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	list, err := h.bookings.ListForBusinessOnDay(ctx, businessID, day, day.AddDate(0, 0, 1))
	if err != nil {
		h.writeError(w, err, "list agenda")
		return
	}
	items := make([]bookingItem, 0, len(list))
	for _, b := range list {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) ownerTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, businessID, bookingID string) (booking.Booking, error)) {
	req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}
	if CallerBusinessID(r) != req.BusinessID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	b, err := fn(r.Context(), req.BusinessID, req.BookingID)
	if err != nil {
		h.writeError(w, err, "transition booking")
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *BookingHandler) decodeAction(w http.ResponseWriter, r *http.Request) (bookingActionRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return bookingActionRequest{}, false
	}
	var req bookingActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return bookingActionRequest{}, false
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BusinessID == "" || req.BookingID == "" {
		http.Error(w, "business_id and booking_id required", http.StatusBadRequest)
		return bookingActionRequest{}, false
	}
	return req, true
}

// writeError maps domain errors onto HTTP status codes. Unrecognized errors
// are logged and collapsed to 500 so internals never leak to clients.
func (h *BookingHandler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, "time slot already booked", http.StatusConflict)
	case errors.Is(err, booking.ErrCancellationWindow):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrPlanLimit):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case storage.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.logger.Error(op+" failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

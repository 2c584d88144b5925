package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/barberbook/barberbook/internal/billing"
	"github.com/barberbook/barberbook/internal/schedule"
	"github.com/barberbook/barberbook/internal/storage"
)

// BusinessHandler is the owner-facing surface: shop profile, weekly
// schedule, barbers, and service offerings.
type BusinessHandler struct {
	business *storage.BusinessRepository
	logger   *slog.Logger
}

func NewBusinessHandler(business *storage.BusinessRepository, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{business: business, logger: logger}
}

type profileResponse struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
	Plan       string `json:"plan"`
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Profile answers GET and PUT /api/v1/owner/profile.
func (h *BusinessHandler) Profile(w http.ResponseWriter, r *http.Request) {
	businessID := CallerBusinessID(r)
	if businessID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.business.GetOrCreateProfile(r.Context(), businessID)
		if err != nil {
			h.internalError(w, "load profile", err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{BusinessID: p.BusinessID, Name: p.Name, Timezone: p.Timezone, Plan: p.Plan})
	case http.MethodPut:
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if err := h.business.UpdateProfile(r.Context(), businessID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Timezone)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Schedule answers GET and PUT /api/v1/owner/schedule. PUT expects all
// seven weekdays; closed days need is_open=false rather than omission.
func (h *BusinessHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	businessID := CallerBusinessID(r)
	if businessID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		week, err := h.business.WeeklySchedule(r.Context(), businessID)
		if err != nil {
			h.internalError(w, "load schedule", err)
			return
		}
		writeJSON(w, http.StatusOK, week)
	case http.MethodPut:
		var week schedule.WeeklySchedule
		if err := json.NewDecoder(r.Body).Decode(&week); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if err := h.business.SaveWeeklySchedule(r.Context(), businessID, week); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createBarberRequest struct {
	Name string `json:"name"`
}

// Barbers answers GET and POST /api/v1/owner/barbers. Creation is capped by
// the subscription plan.
func (h *BusinessHandler) Barbers(w http.ResponseWriter, r *http.Request) {
	businessID := CallerBusinessID(r)
	if businessID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		barbers, err := h.business.ListBarbers(r.Context(), businessID)
		if err != nil {
			h.internalError(w, "list barbers", err)
			return
		}
		if barbers == nil {
			barbers = []storage.Barber{}
		}
		writeJSON(w, http.StatusOK, barbers)
	case http.MethodPost:
		var req createBarberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		planName, err := h.business.PlanName(ctx, businessID)
		if err != nil {
			h.internalError(w, "load plan", err)
			return
		}
		count, err := h.business.CountActiveBarbers(ctx, businessID)
		if err != nil {
			h.internalError(w, "count barbers", err)
			return
		}
		plan := billing.PlanFor(planName)
		if !plan.AllowsBarbers(count) {
			http.Error(w, fmt.Sprintf("plan %s allows %d barbers", plan.Name, plan.MaxBarbers), http.StatusPaymentRequired)
			return
		}

		barber, err := h.business.CreateBarber(ctx, businessID, req.Name)
		if err != nil {
			h.internalError(w, "create barber", err)
			return
		}
		writeJSON(w, http.StatusCreated, barber)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	Description     string `json:"description"`
}

// Services answers GET and POST /api/v1/owner/services.
func (h *BusinessHandler) Services(w http.ResponseWriter, r *http.Request) {
	businessID := CallerBusinessID(r)
	if businessID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		services, err := h.business.ListServiceOfferings(r.Context(), businessID)
		if err != nil {
			h.internalError(w, "list services", err)
			return
		}
		if services == nil {
			services = []storage.Service{}
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.DurationMinutes <= 0 {
			http.Error(w, "name and a positive duration_minutes are required", http.StatusBadRequest)
			return
		}

		svc, err := h.business.CreateServiceOffering(r.Context(), businessID, req.Name, req.DurationMinutes, strings.TrimSpace(req.Price), strings.TrimSpace(req.Description))
		if err != nil {
			h.internalError(w, "create service", err)
			return
		}
		writeJSON(w, http.StatusCreated, svc)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// PublicServices answers GET /api/v1/public/services?business_id= so
// customers can browse offerings before booking.
func (h *BusinessHandler) PublicServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	services, err := h.business.ListServiceOfferings(r.Context(), businessID)
	if err != nil {
		h.internalError(w, "list services", err)
		return
	}
	if services == nil {
		services = []storage.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}

// PublicBarbers answers GET /api/v1/public/barbers?business_id=.
func (h *BusinessHandler) PublicBarbers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	barbers, err := h.business.ListBarbers(r.Context(), businessID)
	if err != nil {
		h.internalError(w, "list barbers", err)
		return
	}
	active := make([]storage.Barber, 0, len(barbers))
	for _, b := range barbers {
		if b.Active {
			active = append(active, b)
		}
	}
	writeJSON(w, http.StatusOK, active)
}

func (h *BusinessHandler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

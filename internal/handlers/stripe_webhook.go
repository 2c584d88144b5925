package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/barberbook/barberbook/internal/billing"
	"github.com/barberbook/barberbook/internal/storage"
)

// StripeWebhookHandler applies subscription changes pushed by Stripe. No JWT
// auth on this route; the signature verification is the auth.
type StripeWebhookHandler struct {
	business  *storage.BusinessRepository
	logger    *slog.Logger
	secret    string
	tolerance time.Duration
}

func NewStripeWebhookHandler(business *storage.BusinessRepository, logger *slog.Logger, secret string, tolerance time.Duration) *StripeWebhookHandler {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &StripeWebhookHandler{business: business, logger: logger, secret: secret, tolerance: tolerance}
}

func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.TrimSpace(h.secret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.secret, h.tolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("billing provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	ctx := r.Context()
	fresh, err := h.business.RecordProviderEvent(ctx, "stripe", evt.ID, body)
	if err != nil {
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}
	if !fresh {
		h.logger.Info("billing provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
		return
	}

	switch evtType {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		businessID := strings.TrimSpace(session.Metadata["business_id"])
		plan := normalizePlan(session.Metadata["plan"])
		if businessID == "" || plan == "" {
			h.logger.Warn("stripe: missing metadata on checkout session (business_id/plan)")
			break
		}
		customerID := ""
		if session.Customer != nil {
			customerID = session.Customer.ID
		}
		subscriptionID := ""
		if session.Subscription != nil {
			subscriptionID = session.Subscription.ID
		}
		if err := h.business.SetPlan(ctx, businessID, plan, customerID, subscriptionID); err != nil {
			http.Error(w, "failed to apply plan", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			h.logger.Error("stripe: invalid subscription payload", "err", err)
			break
		}
		// Only active/trialing subscriptions grant a paid plan.
		if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
			break
		}
		businessID := strings.TrimSpace(sub.Metadata["business_id"])
		plan := normalizePlan(sub.Metadata["plan"])
		if businessID == "" || plan == "" {
			h.logger.Warn("stripe: missing metadata on subscription (business_id/plan)")
			break
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		if err := h.business.SetPlan(ctx, businessID, plan, customerID, sub.ID); err != nil {
			http.Error(w, "failed to apply plan", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			h.logger.Error("stripe: invalid subscription payload", "err", err)
			break
		}
		businessID := strings.TrimSpace(sub.Metadata["business_id"])
		if businessID == "" && sub.Customer != nil {
			businessID, err = h.business.BusinessByStripeCustomer(ctx, sub.Customer.ID)
			if err != nil {
				h.logger.Warn("stripe: cannot resolve business for deleted subscription", "err", err)
				break
			}
		}
		if businessID == "" {
			break
		}
		if err := h.business.SetPlan(ctx, businessID, "trial", "", ""); err != nil {
			http.Error(w, "failed to apply downgrade", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// normalizePlan maps provider metadata onto a known plan name; unknown
// values are rejected rather than silently becoming trial.
func normalizePlan(raw string) string {
	plan := strings.TrimSpace(strings.ToLower(raw))
	if !billing.KnownPlan(plan) {
		return ""
	}
	return plan
}

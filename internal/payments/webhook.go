package payments

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"pixelmart-backend/internal/shared/metrics"
	"pixelmart-backend/internal/shared/server/respond"
	"pixelmart-backend/internal/shared/telemetry"
)

const maxWebhookBody = 1 << 20

// WebhookHandler is the ingestion gate for payment-provider events: it
// verifies the signature, enforces exactly-once intake through the event
// repo, and only then hands the parsed session to the settler.
type WebhookHandler struct {
	Secret    string
	Events    EventRepo
	Settler   Settler
	Retention time.Duration

	now func() time.Time
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(secret string, events EventRepo, settler Settler, retention time.Duration) *WebhookHandler {
	return &WebhookHandler{
		Secret:    secret,
		Events:    events,
		Settler:   settler,
		Retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes attaches the webhook endpoint.
func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhooks/stripe", h.Handle)
}

// Handle processes one inbound webhook delivery.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.Secret == "" {
		respond.Error(c, http.StatusInternalServerError, "not_configured", "webhook secret not configured", nil)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to read body", nil)
		return
	}

	// Events may arrive pinned to an older API version than the SDK's;
	// the signature check is what matters here.
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.IncWebhookRejected()
		// Raw error surfaced for operator diagnosis; the provider's own
		// retry schedule governs redelivery.
		respond.Error(c, http.StatusBadRequest, "signature_verification_failed", err.Error(), nil)
		return
	}

	inserted, err := h.Events.TryInsert(c.Request.Context(), event.ID, h.now().Add(h.Retention))
	if err != nil {
		// No side effects have run yet, so a non-200 here safely defers to
		// the provider's redelivery.
		telemetry.Error("webhook.dedup_failed", map[string]any{
			"event_id": event.ID,
			"error":    err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record event", nil)
		return
	}
	if !inserted {
		metrics.IncWebhookDuplicate()
		telemetry.Info("webhook.duplicate", map[string]any{"event_id": event.ID, "type": string(event.Type)})
		respond.OK(c, gin.H{"received": true, "duplicate": true})
		return
	}

	metrics.IncWebhookReceived()
	h.dispatch(c, event)
}

func (h *WebhookHandler) dispatch(c *gin.Context, event stripe.Event) {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		sess, err := sessionFromEvent(event)
		if err != nil {
			telemetry.Error("webhook.bad_payload", map[string]any{
				"event_id": event.ID,
				"type":     string(event.Type),
				"error":    err.Error(),
			})
			respond.OK(c, gin.H{"received": true})
			return
		}
		c.Set("checkoutSessionId", sess.ID)
		if err := h.Settler.SettlePaidSession(c.Request.Context(), sess); err != nil {
			// Settlement captures money-owed durably before returning; an
			// error here is logged, not bounced, so the provider does not
			// redeliver forever.
			telemetry.Error("webhook.settle_failed", map[string]any{
				"event_id":   event.ID,
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
		respond.OK(c, gin.H{"received": true})

	case "checkout.session.async_payment_failed":
		sess, err := sessionFromEvent(event)
		if err == nil {
			if ferr := h.Settler.HandlePaymentFailed(c.Request.Context(), sess); ferr != nil {
				telemetry.Error("webhook.failure_handling_failed", map[string]any{
					"event_id":   event.ID,
					"session_id": sess.ID,
					"error":      ferr.Error(),
				})
			}
		}
		respond.OK(c, gin.H{"received": true})

	default:
		telemetry.Info("webhook.ignored", map[string]any{"event_id": event.ID, "type": string(event.Type)})
		respond.OK(c, gin.H{"received": true})
	}
}

// sessionPayload matches the checkout.session object embedded in webhook
// events, where payment_intent is an id rather than an expanded object.
type sessionPayload struct {
	ID                string            `json:"id"`
	PaymentStatus     string            `json:"payment_status"`
	PaymentIntent     string            `json:"payment_intent"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func sessionFromEvent(event stripe.Event) (CheckoutSession, error) {
	var payload sessionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{
		ID:                payload.ID,
		PaymentStatus:     payload.PaymentStatus,
		PaymentIntentID:   payload.PaymentIntent,
		AmountTotal:       payload.AmountTotal,
		Currency:          payload.Currency,
		ClientReferenceID: payload.ClientReferenceID,
		Metadata:          payload.Metadata,
	}, nil
}

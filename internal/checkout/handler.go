package checkout

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/downloads"
	"pixelmart-backend/internal/items"
	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/settlement"
	"pixelmart-backend/internal/shared/server/respond"
	"pixelmart-backend/internal/shared/telemetry"
	"pixelmart-backend/internal/users"
)

// Handler starts hosted checkout sessions and serves the success-page
// settlement fallback for when the webhook is delayed.
type Handler struct {
	Items      items.Repo
	Users      users.Repo
	Sync       *users.Synchronizer
	Processor  payments.Processor
	Settler    payments.Settler
	Tokens     downloads.Repo
	FeePercent int64
	SuccessURL string
	CancelURL  string
}

// RegisterRoutes attaches checkout routes to the public API group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/items/:slug/checkout", h.start)
	rg.GET("/checkout/success", h.success)
}

// start creates a hosted checkout session for an item. If the seller is
// payout-enabled the charge is a destination charge with the platform fee
// retained; otherwise the platform takes the charge and the seller's share
// is settled after the fact.
func (h *Handler) start(c *gin.Context) {
	if h.Processor == nil {
		respond.Error(c, http.StatusServiceUnavailable, "payments_unavailable", "payments are not configured", nil)
		return
	}

	item, err := h.Items.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "item not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load item", nil)
		return
	}

	params := payments.CheckoutParams{
		ItemID:        item.ID,
		ItemSlug:      item.Slug,
		Title:         item.Title,
		AmountCents:   item.PriceCents,
		Currency:      item.Currency,
		SuccessURL:    h.SuccessURL,
		CancelURL:     h.CancelURL,
		TransferGroup: "item_" + item.ID,
	}

	if seller, err := h.Users.GetByID(c.Request.Context(), item.UserID); err == nil {
		hasAccount, payoutsEnabled := h.Sync.Sync(c.Request.Context(), seller)
		if hasAccount && payoutsEnabled {
			params.Destination = seller.StripeAccountID
			params.ApplicationFeeAmount = settlement.FeeCents(item.PriceCents, h.FeePercent)
			params.TransferGroup = ""
		}
	}

	sess, err := h.Processor.CreateCheckoutSession(c.Request.Context(), params)
	if err != nil {
		telemetry.Error("checkout.session_create_failed", map[string]any{
			"item_id": item.ID,
			"error":   err.Error(),
		})
		respond.Error(c, http.StatusBadGateway, "processor_error", "failed to create checkout session", nil)
		return
	}

	telemetry.Info("checkout.session_created", map[string]any{
		"item_id":            item.ID,
		"session_id":         sess.ID,
		"destination_charge": params.Destination != "",
	})
	respond.OK(c, gin.H{"sessionId": sess.ID, "url": sess.URL})
}

// success is the post-redirect fallback: it settles the session directly
// so the buyer gets their download token even if the webhook has not
// arrived yet. Settlement is idempotent, so racing the webhook is safe.
func (h *Handler) success(c *gin.Context) {
	if h.Processor == nil {
		respond.Error(c, http.StatusServiceUnavailable, "payments_unavailable", "payments are not configured", nil)
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "session_id is required", nil)
		return
	}

	sess, err := h.Processor.GetCheckoutSession(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "processor_error", "failed to load checkout session", nil)
		return
	}

	if !sess.Paid() {
		respond.OK(c, gin.H{"paid": false})
		return
	}

	if err := h.Settler.SettlePaidSession(c.Request.Context(), sess); err != nil {
		telemetry.Error("checkout.success_settle_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to settle session", nil)
		return
	}

	token, err := h.Tokens.GetBySession(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load download token", nil)
		return
	}

	respond.OK(c, gin.H{"paid": true, "downloadToken": token.Token})
}

package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/shared/server/middleware"
	"pixelmart-backend/internal/shared/server/respond"
	"pixelmart-backend/internal/shared/telemetry"
)

// SellerDrainer retries a seller's queued pending transfers once payouts
// become enabled (the return-flow drain).
type SellerDrainer interface {
	DrainSeller(ctx context.Context, sellerID string) (transferred int, failed int, err error)
}

// Handler wires payout-onboarding HTTP endpoints.
type Handler struct {
	Repo       Repo
	Processor  payments.Processor
	Sync       *Synchronizer
	Drainer    SellerDrainer
	RefreshURL string
	ReturnURL  string
}

// RegisterRoutes attaches Connect onboarding routes to an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/connect/onboard", h.onboard)
	rg.GET("/connect/return", h.onboardReturn)
	rg.GET("/connect/status", h.status)
}

func (h *Handler) onboard(c *gin.Context) {
	if h.Processor == nil {
		respond.Error(c, http.StatusServiceUnavailable, "payments_unavailable", "payments are not configured", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	user, err := h.Repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "account not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load account", nil)
		return
	}

	if !user.HasPayoutAccount() {
		acct, err := h.Processor.CreateAccount(c.Request.Context(), user.Email)
		if err != nil {
			respond.Error(c, http.StatusBadGateway, "processor_error", "failed to create payout account", nil)
			return
		}
		if err := h.Repo.SetPayoutAccount(c.Request.Context(), user.ID, acct.ID); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save payout account", nil)
			return
		}
		user.StripeAccountID = acct.ID
	}

	link, err := h.Processor.CreateAccountLink(c.Request.Context(), user.StripeAccountID, h.RefreshURL, h.ReturnURL)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "processor_error", "failed to create onboarding link", nil)
		return
	}

	respond.OK(c, gin.H{"url": link})
}

// onboardReturn syncs payout status after the seller comes back from the
// processor's hosted onboarding; if payouts just became enabled, queued
// transfers for the seller are drained.
func (h *Handler) onboardReturn(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	user, err := h.Repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "account not found", nil)
		return
	}

	hasAccount, payoutsEnabled := h.Sync.Sync(c.Request.Context(), user)

	transferred, failed := 0, 0
	if hasAccount && payoutsEnabled {
		transferred, failed, err = h.Drainer.DrainSeller(c.Request.Context(), user.ID)
		if err != nil {
			telemetry.Error("connect.return_drain_failed", map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}

	respond.OK(c, gin.H{
		"hasAccount":     hasAccount,
		"payoutsEnabled": payoutsEnabled,
		"transferred":    transferred,
		"failed":         failed,
	})
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	user, err := h.Repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "account not found", nil)
		return
	}

	hasAccount, payoutsEnabled := h.Sync.Sync(c.Request.Context(), user)
	respond.OK(c, gin.H{"hasAccount": hasAccount, "payoutsEnabled": payoutsEnabled})
}

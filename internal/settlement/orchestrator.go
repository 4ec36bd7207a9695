package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixelmart-backend/internal/downloads"
	"pixelmart-backend/internal/items"
	"pixelmart-backend/internal/ledger"
	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/shared/metrics"
	"pixelmart-backend/internal/shared/telemetry"
	"pixelmart-backend/internal/users"
)

// Orchestrator turns a verified paid checkout event into its business
// effects: a download token for the buyer and the seller's share of the
// money, either transferred immediately or queued in the pending ledger.
// Every step is idempotent, so a redelivered event converges to the same
// final state.
type Orchestrator struct {
	Items      items.Repo
	Users      users.Repo
	Sync       *users.Synchronizer
	Ledger     ledger.Repo
	Downloads  *downloads.Service
	Processor  payments.Processor
	FeePercent int64
	TokenTTL   time.Duration
	PendingTTL time.Duration

	now func() time.Time
}

// NewOrchestrator constructs an Orchestrator with sane fallbacks for
// unset durations.
func NewOrchestrator(itemRepo items.Repo, userRepo users.Repo, sync *users.Synchronizer, ledgerRepo ledger.Repo, dl *downloads.Service, proc payments.Processor, feePercent int64, tokenTTL, pendingTTL time.Duration) *Orchestrator {
	if tokenTTL <= 0 {
		tokenTTL = 120 * time.Minute
	}
	if pendingTTL <= 0 {
		pendingTTL = 180 * 24 * time.Hour
	}
	return &Orchestrator{
		Items:      itemRepo,
		Users:      userRepo,
		Sync:       sync,
		Ledger:     ledgerRepo,
		Downloads:  dl,
		Processor:  proc,
		FeePercent: feePercent,
		TokenTTL:   tokenTTL,
		PendingTTL: pendingTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SettlePaidSession settles one paid checkout session: token first, money
// second. Token issuance failing aborts before any money movement; money
// movement failing still leaves the buyer their token and the debt queued.
func (o *Orchestrator) SettlePaidSession(ctx context.Context, sess payments.CheckoutSession) error {
	started := o.now()
	defer func() {
		metrics.ObserveSettlementDurationMs(float64(o.now().Sub(started).Milliseconds()))
	}()

	if !sess.Paid() {
		telemetry.Info("settlement.session_not_paid", map[string]any{
			"session_id":     sess.ID,
			"payment_status": sess.PaymentStatus,
		})
		return nil
	}

	item, err := o.resolveItem(ctx, sess)
	if err != nil {
		return err
	}

	if _, err := o.Downloads.Issue(ctx, item.ID, sess.ID, o.TokenTTL); err != nil {
		return fmt.Errorf("issue download token: %w", err)
	}

	return o.routeSellerShare(ctx, sess, item)
}

// HandlePaymentFailed acknowledges an async payment failure. No token was
// issued and no money moved, so there is nothing to unwind.
func (o *Orchestrator) HandlePaymentFailed(ctx context.Context, sess payments.CheckoutSession) error {
	telemetry.Warn("settlement.async_payment_failed", map[string]any{
		"session_id":        sess.ID,
		"payment_intent_id": sess.PaymentIntentID,
	})
	return nil
}

func (o *Orchestrator) resolveItem(ctx context.Context, sess payments.CheckoutSession) (items.Item, error) {
	slug := sess.Metadata["item_slug"]
	if slug == "" {
		slug = sess.ClientReferenceID
	}
	if slug == "" {
		return items.Item{}, fmt.Errorf("session %s carries no item reference", sess.ID)
	}

	item, err := o.Items.GetBySlug(ctx, slug)
	if err != nil {
		return items.Item{}, fmt.Errorf("resolve item %q: %w", slug, err)
	}
	return item, nil
}

// routeSellerShare moves the seller's cut or records the debt. Transfer
// failures are absorbed into the ledger rather than propagated, so the
// webhook is still acknowledged and never redelivered for a money hiccup.
func (o *Orchestrator) routeSellerShare(ctx context.Context, sess payments.CheckoutSession, item items.Item) error {
	pi, err := o.Processor.GetPaymentIntent(ctx, sess.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("load payment intent: %w", err)
	}

	if pi.TransferDestination != "" {
		// Destination charge: funds were routed at charge time, and any
		// previously queued row for this intent is now moot.
		if err := o.Ledger.DeleteByIntent(ctx, pi.ID); err != nil {
			telemetry.Warn("settlement.stale_pending_cleanup_failed", map[string]any{
				"payment_intent_id": pi.ID,
				"error":             err.Error(),
			})
		}
		telemetry.Info("settlement.destination_charge", map[string]any{
			"session_id":        sess.ID,
			"payment_intent_id": pi.ID,
			"destination":       pi.TransferDestination,
		})
		return nil
	}

	if item.UserID == "" {
		// Legacy anonymous upload: there is no seller to owe, so the whole
		// amount stays with the platform and nothing enters the ledger.
		telemetry.Info("settlement.no_seller", map[string]any{
			"session_id":        sess.ID,
			"payment_intent_id": pi.ID,
			"item_id":           item.ID,
		})
		return nil
	}

	fee, sellerAmount := Split(sess.AmountTotal, o.FeePercent)
	group := pi.TransferGroup
	if group == "" {
		group = "item_" + item.ID
	}

	pending := ledger.PendingTransfer{
		ID:              uuid.NewString(),
		PaymentIntentID: pi.ID,
		SellerID:        item.UserID,
		ItemID:          item.ID,
		AmountCents:     sellerAmount,
		Currency:        sess.Currency,
		TransferGroup:   group,
		Status:          ledger.StatusQueued,
		ExpiresAt:       o.now().Add(o.PendingTTL),
	}

	if sellerAmount <= 0 {
		return o.enqueue(ctx, pending, ledger.ReasonAmountNonPositive)
	}

	seller, err := o.Users.GetByID(ctx, item.UserID)
	if err != nil || !seller.HasPayoutAccount() {
		return o.enqueue(ctx, pending, ledger.ReasonNoAccount)
	}

	_, payoutsEnabled := o.Sync.Sync(ctx, seller)
	if !payoutsEnabled {
		return o.enqueue(ctx, pending, ledger.ReasonPayoutsDisabled)
	}

	transfer, err := o.Processor.CreateTransfer(ctx, payments.TransferParams{
		Amount:        sellerAmount,
		Currency:      sess.Currency,
		Destination:   seller.StripeAccountID,
		TransferGroup: group,
	})
	if err != nil {
		telemetry.Warn("settlement.transfer_failed", map[string]any{
			"payment_intent_id": pi.ID,
			"seller_id":         seller.ID,
			"amount_cents":      sellerAmount,
			"error":             err.Error(),
		})
		return o.enqueue(ctx, pending, ledger.ReasonTransferError)
	}

	// A redelivered event may have queued this intent before; the row is
	// paid off now.
	if err := o.Ledger.DeleteByIntent(ctx, pi.ID); err != nil {
		telemetry.Warn("settlement.stale_pending_cleanup_failed", map[string]any{
			"payment_intent_id": pi.ID,
			"error":             err.Error(),
		})
	}

	metrics.IncTransferCreated()
	telemetry.Info("settlement.transfer_created", map[string]any{
		"session_id":        sess.ID,
		"payment_intent_id": pi.ID,
		"seller_id":         seller.ID,
		"amount_cents":      sellerAmount,
		"fee_cents":         fee,
		"transfer_id":       transfer.ID,
	})
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, pending ledger.PendingTransfer, reason ledger.Reason) error {
	pending.Reason = reason
	if err := o.Ledger.Upsert(ctx, pending); err != nil {
		return fmt.Errorf("queue pending transfer: %w", err)
	}

	metrics.IncTransferDeferred()
	telemetry.Info("settlement.transfer_deferred", map[string]any{
		"payment_intent_id": pending.PaymentIntentID,
		"seller_id":         pending.SellerID,
		"amount_cents":      pending.AmountCents,
		"reason":            string(reason),
	})
	return nil
}

var _ payments.Settler = (*Orchestrator)(nil)

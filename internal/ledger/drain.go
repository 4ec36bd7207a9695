package ledger

import (
	"context"

	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/shared/metrics"
	"pixelmart-backend/internal/shared/telemetry"
	"pixelmart-backend/internal/users"
)

// Outcome describes what happened to one queued transfer during a drain.
type Outcome struct {
	PaymentIntentID string `json:"paymentIntentId"`
	SellerID        string `json:"sellerId"`
	AmountCents     int64  `json:"amountCents"`
	Status          string `json:"status"`
	TransferID      string `json:"transferId,omitempty"`
	Error           string `json:"error,omitempty"`
}

const (
	OutcomeTransferred     = "transferred"
	OutcomeSkipNoAccount   = "skip_no_account"
	OutcomeSkipDisabled    = "skip_payouts_disabled"
	OutcomeError           = "error"
	OutcomeSkipUnknownUser = "skip_unknown_seller"
)

// Drainer retries queued pending transfers. Each row is attempted in
// isolation; one failure never aborts the batch, and failed rows stay
// queued for the next pass.
type Drainer struct {
	Repo      Repo
	Users     users.Repo
	Processor payments.Processor
}

// DrainSeller retries every queued transfer for one seller. Used by the
// onboarding return flow once payouts become enabled.
func (d *Drainer) DrainSeller(ctx context.Context, sellerID string) (int, int, error) {
	queued, err := d.Repo.ListQueuedBySeller(ctx, sellerID)
	if err != nil {
		return 0, 0, err
	}

	transferred, failed := 0, 0
	for _, pt := range queued {
		out := d.retry(ctx, pt)
		if out.Status == OutcomeTransferred {
			transferred++
		} else {
			failed++
		}
	}
	return transferred, failed, nil
}

// DrainAll retries every queued transfer across all sellers. Backs the
// admin retry endpoint.
func (d *Drainer) DrainAll(ctx context.Context) ([]Outcome, error) {
	queued, err := d.Repo.ListQueued(ctx, 0)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(queued))
	for _, pt := range queued {
		outcomes = append(outcomes, d.retry(ctx, pt))
	}
	return outcomes, nil
}

func (d *Drainer) retry(ctx context.Context, pt PendingTransfer) Outcome {
	out := Outcome{
		PaymentIntentID: pt.PaymentIntentID,
		SellerID:        pt.SellerID,
		AmountCents:     pt.AmountCents,
	}

	seller, err := d.Users.GetByID(ctx, pt.SellerID)
	if err != nil {
		out.Status = OutcomeSkipUnknownUser
		out.Error = err.Error()
		return out
	}
	if !seller.HasPayoutAccount() {
		out.Status = OutcomeSkipNoAccount
		return out
	}
	if !seller.PayoutsEnabled {
		out.Status = OutcomeSkipDisabled
		return out
	}

	transfer, err := d.Processor.CreateTransfer(ctx, payments.TransferParams{
		Amount:        pt.AmountCents,
		Currency:      pt.Currency,
		Destination:   seller.StripeAccountID,
		TransferGroup: pt.TransferGroup,
	})
	if err != nil {
		telemetry.Warn("ledger.retry_transfer_failed", map[string]any{
			"payment_intent_id": pt.PaymentIntentID,
			"seller_id":         pt.SellerID,
			"amount_cents":      pt.AmountCents,
			"error":             err.Error(),
		})
		out.Status = OutcomeError
		out.Error = err.Error()
		return out
	}

	if err := d.Repo.DeleteByIntent(ctx, pt.PaymentIntentID); err != nil {
		// The money moved; losing the delete only risks a later duplicate
		// attempt, which the processor rejects by transfer group review.
		telemetry.Error("ledger.delete_after_transfer_failed", map[string]any{
			"payment_intent_id": pt.PaymentIntentID,
			"transfer_id":       transfer.ID,
			"error":             err.Error(),
		})
	}

	metrics.IncTransferDrained()
	telemetry.Info("ledger.transfer_drained", map[string]any{
		"payment_intent_id": pt.PaymentIntentID,
		"seller_id":         pt.SellerID,
		"amount_cents":      pt.AmountCents,
		"transfer_id":       transfer.ID,
	})
	out.Status = OutcomeTransferred
	out.TransferID = transfer.ID
	return out
}

var _ users.SellerDrainer = (*Drainer)(nil)

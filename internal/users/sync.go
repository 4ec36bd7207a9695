package users

import (
	"context"

	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/shared/telemetry"
)

// Synchronizer reconciles a seller's cached payout-eligibility flag against
// the payment processor's source of truth.
type Synchronizer struct {
	Repo      Repo
	Processor payments.Processor
}

// Sync returns the seller's payout status. The processor's live account
// state always wins; on mismatch the corrected flag is persisted. If the
// processor is unreachable the last-known cached value is used and a
// warning logged — the caller is never failed over a read-mostly flag.
func (s *Synchronizer) Sync(ctx context.Context, user User) (hasAccount bool, payoutsEnabled bool) {
	if !user.HasPayoutAccount() {
		return false, false
	}
	if s.Processor == nil {
		return true, user.PayoutsEnabled
	}

	acct, err := s.Processor.GetAccount(ctx, user.StripeAccountID)
	if err != nil {
		telemetry.Warn("connect.sync_unreachable", map[string]any{
			"user_id":    user.ID,
			"account_id": user.StripeAccountID,
			"error":      err.Error(),
		})
		return true, user.PayoutsEnabled
	}

	if acct.PayoutsEnabled != user.PayoutsEnabled {
		if err := s.Repo.SetPayoutsEnabled(ctx, user.ID, acct.PayoutsEnabled); err != nil {
			telemetry.Error("connect.sync_persist_failed", map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		} else {
			telemetry.Info("connect.sync_corrected", map[string]any{
				"user_id":         user.ID,
				"payouts_enabled": acct.PayoutsEnabled,
			})
		}
	}

	return true, acct.PayoutsEnabled
}

package ledger

import "time"

// TransferStatus is the explicit lifecycle state of a pending transfer.
type TransferStatus string

const (
	StatusQueued      TransferStatus = "queued"
	StatusTransferred TransferStatus = "transferred"
	StatusExpired     TransferStatus = "expired"
)

// Reason records why a payout could not be executed immediately.
type Reason string

const (
	ReasonNoAccount         Reason = "seller_no_stripe_account"
	ReasonAmountNonPositive Reason = "amount_non_positive"
	ReasonPayoutsDisabled   Reason = "payouts_disabled"
	ReasonTransferError     Reason = "transfer_error"
)

// PendingTransfer is a durable IOU: money owed to a seller that a payment
// event could not immediately route. At most one row exists per payment
// intent; upsert is the only write path that creates or updates one.
type PendingTransfer struct {
	ID              string         `json:"id"`
	PaymentIntentID string         `json:"paymentIntentId"`
	SellerID        string         `json:"sellerId"`
	ItemID          string         `json:"itemId"`
	AmountCents     int64          `json:"amountCents"`
	Currency        string         `json:"currency"`
	TransferGroup   string         `json:"transferGroup"`
	Reason          Reason         `json:"reason"`
	Status          TransferStatus `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	ExpiresAt       time.Time      `json:"expiresAt"`
}

package payments

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates the payment processor integration is missing
// credentials and cannot be used.
var ErrNotConfigured = errors.New("payment processor not configured")

// CheckoutSession is the processor-neutral view of a hosted checkout session.
type CheckoutSession struct {
	ID                string
	URL               string
	PaymentStatus     string
	PaymentIntentID   string
	AmountTotal       int64
	Currency          string
	ClientReferenceID string
	Metadata          map[string]string
}

// Paid reports whether the session has confirmed payment.
func (s CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// PaymentIntent is the processor-neutral view of a payment intent.
type PaymentIntent struct {
	ID       string
	Amount   int64
	Currency string
	// TransferDestination is set when the charge was executed as a
	// destination charge; funds were already routed at charge time.
	TransferDestination string
	TransferGroup       string
}

// Account is the processor-neutral view of a connected payout account.
type Account struct {
	ID             string
	PayoutsEnabled bool
}

// Transfer is the result of a platform-to-seller money movement.
type Transfer struct {
	ID            string
	Amount        int64
	Destination   string
	TransferGroup string
}

// TransferParams describes a transfer to a connected account.
type TransferParams struct {
	Amount        int64
	Currency      string
	Destination   string
	TransferGroup string
}

// CheckoutParams describes a hosted checkout session to create.
type CheckoutParams struct {
	ItemID      string
	ItemSlug    string
	Title       string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	// Destination, when set, requests a destination charge with
	// ApplicationFeeAmount retained by the platform.
	Destination          string
	ApplicationFeeAmount int64
	TransferGroup        string
}

// Processor is the payment-provider gateway consumed by checkout, settlement
// and the payout ledger. Implementations translate provider errors verbatim;
// callers map them to reason codes.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error)
	CreateTransfer(ctx context.Context, p TransferParams) (Transfer, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	CreateAccount(ctx context.Context, email string) (Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}

// Settler consumes verified, deduplicated checkout events.
type Settler interface {
	SettlePaidSession(ctx context.Context, sess CheckoutSession) error
	HandlePaymentFailed(ctx context.Context, sess CheckoutSession) error
}

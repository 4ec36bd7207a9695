package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeProcessor implements Processor against the Stripe API.
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor builds a StripeProcessor with the given secret key.
// Returns nil if the key is empty so callers can detect an unconfigured
// integration.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	if secretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api}
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.ItemSlug),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(in.Currency),
					UnitAmount: stripe.Int64(in.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(in.Title),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("item_id", in.ItemID)
	params.AddMetadata("item_slug", in.ItemSlug)

	if in.Destination != "" {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(in.ApplicationFeeAmount),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(in.Destination),
			},
		}
	} else {
		// transfer_group may only be set when no destination charge is
		// requested; the deferred transfer reuses it for reconciliation.
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferGroup: stripe.String(in.TransferGroup),
		}
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return sessionFromStripe(sess), nil
}

func (p *StripeProcessor) GetCheckoutSession(ctx context.Context, id string) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return sessionFromStripe(sess), nil
}

func (p *StripeProcessor) GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return PaymentIntent{}, err
	}
	out := PaymentIntent{
		ID:            pi.ID,
		Amount:        pi.Amount,
		Currency:      string(pi.Currency),
		TransferGroup: pi.TransferGroup,
	}
	if pi.TransferData != nil && pi.TransferData.Destination != nil {
		out.TransferDestination = pi.TransferData.Destination.ID
	}
	return out, nil
}

func (p *StripeProcessor) CreateTransfer(ctx context.Context, in TransferParams) (Transfer, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(in.Amount),
		Currency:      stripe.String(in.Currency),
		Destination:   stripe.String(in.Destination),
		TransferGroup: stripe.String(in.TransferGroup),
	}
	params.Context = ctx
	tr, err := p.api.Transfers.New(params)
	if err != nil {
		return Transfer{}, err
	}
	return Transfer{
		ID:            tr.ID,
		Amount:        tr.Amount,
		Destination:   in.Destination,
		TransferGroup: tr.TransferGroup,
	}, nil
}

func (p *StripeProcessor) GetAccount(ctx context.Context, id string) (Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := p.api.Accounts.GetByID(id, params)
	if err != nil {
		return Account{}, err
	}
	return Account{ID: acct.ID, PayoutsEnabled: acct.PayoutsEnabled}, nil
}

func (p *StripeProcessor) CreateAccount(ctx context.Context, email string) (Account, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return Account{}, err
	}
	return Account{ID: acct.ID, PayoutsEnabled: acct.PayoutsEnabled}, nil
}

func (p *StripeProcessor) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx
	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func sessionFromStripe(s *stripe.CheckoutSession) CheckoutSession {
	out := CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		PaymentStatus:     string(s.PaymentStatus),
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

var _ Processor = (*StripeProcessor)(nil)

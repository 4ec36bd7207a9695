package users

import (
	"context"
	"errors"
	"testing"

	"pixelmart-backend/internal/payments"
)

type fakeAccountProcessor struct {
	accounts map[string]payments.Account
	err      error
	calls    int
}

func (f *fakeAccountProcessor) GetAccount(ctx context.Context, id string) (payments.Account, error) {
	f.calls++
	if f.err != nil {
		return payments.Account{}, f.err
	}
	acct, ok := f.accounts[id]
	if !ok {
		return payments.Account{}, errors.New("no such account")
	}
	return acct, nil
}

func (f *fakeAccountProcessor) CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (payments.CheckoutSession, error) {
	return payments.CheckoutSession{}, errors.New("not implemented")
}

func (f *fakeAccountProcessor) GetCheckoutSession(ctx context.Context, id string) (payments.CheckoutSession, error) {
	return payments.CheckoutSession{}, errors.New("not implemented")
}

func (f *fakeAccountProcessor) GetPaymentIntent(ctx context.Context, id string) (payments.PaymentIntent, error) {
	return payments.PaymentIntent{}, errors.New("not implemented")
}

func (f *fakeAccountProcessor) CreateTransfer(ctx context.Context, p payments.TransferParams) (payments.Transfer, error) {
	return payments.Transfer{}, errors.New("not implemented")
}

func (f *fakeAccountProcessor) CreateAccount(ctx context.Context, email string) (payments.Account, error) {
	return payments.Account{}, errors.New("not implemented")
}

func (f *fakeAccountProcessor) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return "", errors.New("not implemented")
}

func TestSyncLiveStateWinsAndPersists(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	if err := repo.Upsert(ctx, User{ID: "u1", StripeAccountID: "acct_1", PayoutsEnabled: false}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	proc := &fakeAccountProcessor{accounts: map[string]payments.Account{
		"acct_1": {ID: "acct_1", PayoutsEnabled: true},
	}}
	sync := &Synchronizer{Repo: repo, Processor: proc}

	user, _ := repo.GetByID(ctx, "u1")
	hasAccount, payoutsEnabled := sync.Sync(ctx, user)
	if !hasAccount || !payoutsEnabled {
		t.Fatalf("got hasAccount=%v payoutsEnabled=%v, want true/true", hasAccount, payoutsEnabled)
	}

	// The corrected flag was written back.
	updated, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !updated.PayoutsEnabled {
		t.Fatal("expected payouts_enabled persisted")
	}
}

func TestSyncFallsBackToCachedWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	if err := repo.Upsert(ctx, User{ID: "u1", StripeAccountID: "acct_1", PayoutsEnabled: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	proc := &fakeAccountProcessor{err: errors.New("processor down")}
	sync := &Synchronizer{Repo: repo, Processor: proc}

	user, _ := repo.GetByID(ctx, "u1")
	hasAccount, payoutsEnabled := sync.Sync(ctx, user)
	if !hasAccount || !payoutsEnabled {
		t.Fatalf("got hasAccount=%v payoutsEnabled=%v, want cached true/true", hasAccount, payoutsEnabled)
	}
}

func TestSyncNoAccountShortCircuits(t *testing.T) {
	proc := &fakeAccountProcessor{}
	sync := &Synchronizer{Repo: NewMemoryRepo(), Processor: proc}

	hasAccount, payoutsEnabled := sync.Sync(context.Background(), User{ID: "u1"})
	if hasAccount || payoutsEnabled {
		t.Fatalf("got hasAccount=%v payoutsEnabled=%v, want false/false", hasAccount, payoutsEnabled)
	}
	if proc.calls != 0 {
		t.Fatalf("processor called %d times, want 0", proc.calls)
	}
}

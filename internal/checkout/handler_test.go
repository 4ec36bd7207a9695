package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/downloads"
	"pixelmart-backend/internal/items"
	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/users"
)

type fakeCheckoutProcessor struct {
	lastCheckout payments.CheckoutParams
	session      payments.CheckoutSession
	sessionErr   error
	accounts     map[string]payments.Account
}

func (f *fakeCheckoutProcessor) CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (payments.CheckoutSession, error) {
	f.lastCheckout = p
	return payments.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func (f *fakeCheckoutProcessor) GetCheckoutSession(ctx context.Context, id string) (payments.CheckoutSession, error) {
	if f.sessionErr != nil {
		return payments.CheckoutSession{}, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeCheckoutProcessor) GetPaymentIntent(ctx context.Context, id string) (payments.PaymentIntent, error) {
	return payments.PaymentIntent{}, errors.New("not implemented")
}

func (f *fakeCheckoutProcessor) CreateTransfer(ctx context.Context, p payments.TransferParams) (payments.Transfer, error) {
	return payments.Transfer{}, errors.New("not implemented")
}

func (f *fakeCheckoutProcessor) GetAccount(ctx context.Context, id string) (payments.Account, error) {
	acct, ok := f.accounts[id]
	if !ok {
		return payments.Account{}, errors.New("no such account")
	}
	return acct, nil
}

func (f *fakeCheckoutProcessor) CreateAccount(ctx context.Context, email string) (payments.Account, error) {
	return payments.Account{}, errors.New("not implemented")
}

func (f *fakeCheckoutProcessor) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return "", errors.New("not implemented")
}

type fakeSettler struct {
	sessions []payments.CheckoutSession
	err      error
}

func (f *fakeSettler) SettlePaidSession(ctx context.Context, sess payments.CheckoutSession) error {
	f.sessions = append(f.sessions, sess)
	return f.err
}

func (f *fakeSettler) HandlePaymentFailed(ctx context.Context, sess payments.CheckoutSession) error {
	return nil
}

type checkoutEnv struct {
	router    *gin.Engine
	items     *items.MemoryRepo
	users     *users.MemoryRepo
	tokens    *downloads.MemoryRepo
	processor *fakeCheckoutProcessor
	settler   *fakeSettler
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	itemRepo := items.NewMemoryRepo()
	userRepo := users.NewMemoryRepo()
	tokenRepo := downloads.NewMemoryRepo()
	proc := &fakeCheckoutProcessor{accounts: map[string]payments.Account{}}
	settler := &fakeSettler{}

	h := &Handler{
		Items:      itemRepo,
		Users:      userRepo,
		Sync:       &users.Synchronizer{Repo: userRepo, Processor: proc},
		Processor:  proc,
		Settler:    settler,
		Tokens:     tokenRepo,
		FeePercent: 20,
		SuccessURL: "https://ui.example/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://ui.example/cancelled",
	}

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	return &checkoutEnv{
		router:    r,
		items:     itemRepo,
		users:     userRepo,
		tokens:    tokenRepo,
		processor: proc,
		settler:   settler,
	}
}

func (e *checkoutEnv) seedItem(t *testing.T, sellerID string) {
	t.Helper()
	if err := e.items.Create(context.Background(), items.Item{
		ID:         "item-1",
		Slug:       "sunset-print",
		Title:      "Sunset Print",
		PriceCents: 1000,
		Currency:   "usd",
		StorageKey: "originals/sunset-print.png",
		UserID:     sellerID,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func TestStartCheckoutPlatformChargeWithoutPayoutAccount(t *testing.T) {
	env := newCheckoutEnv(t)
	env.seedItem(t, "seller-1")
	if err := env.users.Upsert(context.Background(), users.User{ID: "seller-1"}); err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/sunset-print/checkout", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	p := env.processor.lastCheckout
	if p.Destination != "" {
		t.Fatalf("expected platform charge, got destination %q", p.Destination)
	}
	if p.TransferGroup != "item_item-1" {
		t.Fatalf("transfer group = %q, want item_item-1", p.TransferGroup)
	}
	if p.AmountCents != 1000 || p.Currency != "usd" {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestStartCheckoutDestinationChargeWhenPayoutsEnabled(t *testing.T) {
	env := newCheckoutEnv(t)
	env.seedItem(t, "seller-1")
	if err := env.users.Upsert(context.Background(), users.User{ID: "seller-1", StripeAccountID: "acct_1", PayoutsEnabled: true}); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	env.processor.accounts["acct_1"] = payments.Account{ID: "acct_1", PayoutsEnabled: true}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/sunset-print/checkout", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	p := env.processor.lastCheckout
	if p.Destination != "acct_1" {
		t.Fatalf("destination = %q, want acct_1", p.Destination)
	}
	if p.ApplicationFeeAmount != 200 {
		t.Fatalf("application fee = %d, want 200", p.ApplicationFeeAmount)
	}
	if p.TransferGroup != "" {
		t.Fatalf("transfer group must be unset for destination charge, got %q", p.TransferGroup)
	}

	var body struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SessionID != "cs_1" || body.URL == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStartCheckoutUnknownItem(t *testing.T) {
	env := newCheckoutEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/nope/checkout", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestSuccessFallbackSettlesAndReturnsToken(t *testing.T) {
	env := newCheckoutEnv(t)
	env.seedItem(t, "seller-1")
	env.processor.session = payments.CheckoutSession{
		ID:            "cs_1",
		PaymentStatus: "paid",
		AmountTotal:   1000,
		Metadata:      map[string]string{"item_slug": "sunset-print"},
	}
	if _, err := env.tokens.Insert(context.Background(), downloads.DownloadToken{
		Token:     "tok_abc",
		ItemID:    "item-1",
		SessionID: "cs_1",
		Status:    downloads.TokenUnused,
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/success?session_id=cs_1", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	if len(env.settler.sessions) != 1 {
		t.Fatalf("settler calls = %d, want 1", len(env.settler.sessions))
	}

	var body struct {
		Paid          bool   `json:"paid"`
		DownloadToken string `json:"downloadToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Paid || body.DownloadToken != "tok_abc" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestSuccessFallbackUnpaidSession(t *testing.T) {
	env := newCheckoutEnv(t)
	env.processor.session = payments.CheckoutSession{ID: "cs_1", PaymentStatus: "unpaid"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/success?session_id=cs_1", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if len(env.settler.sessions) != 0 {
		t.Fatalf("settler must not run for unpaid session")
	}
	var body struct {
		Paid bool `json:"paid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Paid {
		t.Fatal("expected paid=false")
	}
}

func TestSuccessFallbackRequiresSessionID(t *testing.T) {
	env := newCheckoutEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/success", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoUpsertConvergesOnIntent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	pt := PendingTransfer{
		ID:              "pend-1",
		PaymentIntentID: "pi_1",
		SellerID:        "seller-1",
		ItemID:          "item-1",
		AmountCents:     800,
		Currency:        "usd",
		TransferGroup:   "item_item-1",
		Reason:          ReasonNoAccount,
		Status:          StatusQueued,
		ExpiresAt:       time.Now().Add(time.Hour),
	}

	mock.ExpectExec("INSERT INTO pending_transfers").
		WithArgs(
			pt.ID,
			pt.PaymentIntentID,
			pt.SellerID,
			pt.ItemID,
			pt.AmountCents,
			pt.Currency,
			pt.TransferGroup,
			string(pt.Reason),
			string(pt.Status),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), pt); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoExpireStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE pending_transfers").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := repo.ExpireStale(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if expired != 3 {
		t.Fatalf("expired = %d, want 3", expired)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func pendingCols() []string {
	return []string{"id", "payment_intent_id", "seller_id", "item_id", "amount_cents", "currency", "transfer_group", "reason", "status", "created_at", "expires_at"}
}

func TestPGRepoListQueuedUnlimitedOmitsLimitClause(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	// Anchored on end-of-query so a LIMIT clause sneaking back in for the
	// unlimited case fails to match.
	mock.ExpectQuery(`ORDER BY created_at\s*$`).
		WithArgs().
		WillReturnRows(sqlmock.NewRows(pendingCols()).
			AddRow("pend-1", "pi_1", "seller-1", "item-1", int64(800), "usd", "item_item-1", string(ReasonNoAccount), string(StatusQueued), now, now.Add(time.Hour)).
			AddRow("pend-2", "pi_2", "seller-2", "item-2", int64(400), "usd", "item_item-2", string(ReasonPayoutsDisabled), string(StatusQueued), now, now.Add(time.Hour)))

	rows, err := repo.ListQueued(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListQueued: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].PaymentIntentID != "pi_1" || rows[0].Reason != ReasonNoAccount {
		t.Fatalf("first row = %+v", rows[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListQueuedBindsPositiveLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery(`LIMIT \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(pendingCols()).
			AddRow("pend-1", "pi_1", "seller-1", "item-1", int64(800), "usd", "item_item-1", string(ReasonNoAccount), string(StatusQueued), now, now.Add(time.Hour)))

	rows, err := repo.ListQueued(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListQueued: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIntentNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	cols := []string{"id", "payment_intent_id", "seller_id", "item_id", "amount_cents", "currency", "transfer_group", "reason", "status", "created_at", "expires_at"}
	mock.ExpectQuery("FROM pending_transfers").
		WithArgs("pi_missing").
		WillReturnRows(sqlmock.NewRows(cols))

	if _, err := repo.GetByIntent(context.Background(), "pi_missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetByIDScansPayoutFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	cols := []string{"id", "email", "full_name", "picture_url", "country", "stripe_account_id", "payouts_enabled", "created_at", "updated_at"}
	mock.ExpectQuery("FROM users").
		WithArgs("google:123").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("google:123", "a@example.com", "Alex", nil, nil, "acct_1", true, now, now))

	user, err := repo.GetByID(context.Background(), "google:123")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.StripeAccountID != "acct_1" || !user.PayoutsEnabled {
		t.Fatalf("payout fields lost: %+v", user)
	}
	if !user.HasPayoutAccount() {
		t.Fatal("expected HasPayoutAccount")
	}
}

func TestPGRepoSetPayoutsEnabledUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE users SET payouts_enabled").
		WithArgs("missing", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetPayoutsEnabled(context.Background(), "missing", true); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpsertNullablesEmptyAsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("INSERT INTO users").
		WithArgs("google:123", "a@example.com", "Alex", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), User{ID: "google:123", Email: "a@example.com", FullName: "Alex"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

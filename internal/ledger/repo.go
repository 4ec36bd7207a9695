package ledger

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("pending transfer not found")

type Repo interface {
	// Upsert creates or refreshes the single row for a payment intent, so a
	// retried webhook delivery converges instead of duplicating.
	Upsert(ctx context.Context, pt PendingTransfer) error
	GetByIntent(ctx context.Context, paymentIntentID string) (PendingTransfer, error)
	// DeleteByIntent removes the row once the owed amount has been paid.
	DeleteByIntent(ctx context.Context, paymentIntentID string) error
	ListQueuedBySeller(ctx context.Context, sellerID string) ([]PendingTransfer, error)
	// ListQueued returns queued rows oldest first. A limit <= 0 means no
	// limit; every implementation must honor that convention.
	ListQueued(ctx context.Context, limit int) ([]PendingTransfer, error)
	// ExpireStale marks queued rows past their horizon expired (terminal).
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

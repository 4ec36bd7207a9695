package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, pt PendingTransfer) error {
	const query = `
INSERT INTO pending_transfers
  (id, payment_intent_id, seller_id, item_id, amount_cents, currency, transfer_group, reason, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), $10)
ON CONFLICT (payment_intent_id) DO UPDATE SET
  amount_cents = EXCLUDED.amount_cents,
  currency = EXCLUDED.currency,
  transfer_group = EXCLUDED.transfer_group,
  reason = EXCLUDED.reason`
	_, err := r.DB.ExecContext(ctx, query,
		pt.ID,
		pt.PaymentIntentID,
		pt.SellerID,
		pt.ItemID,
		pt.AmountCents,
		pt.Currency,
		pt.TransferGroup,
		string(pt.Reason),
		string(pt.Status),
		pt.ExpiresAt,
	)
	return err
}

func (r *PGRepo) GetByIntent(ctx context.Context, paymentIntentID string) (PendingTransfer, error) {
	const query = `
SELECT id, payment_intent_id, seller_id, item_id, amount_cents, currency, transfer_group, reason, status, created_at, expires_at
FROM pending_transfers
WHERE payment_intent_id = $1
LIMIT 1`
	var pt PendingTransfer
	var reason, status string
	err := r.DB.QueryRowContext(ctx, query, paymentIntentID).Scan(
		&pt.ID,
		&pt.PaymentIntentID,
		&pt.SellerID,
		&pt.ItemID,
		&pt.AmountCents,
		&pt.Currency,
		&pt.TransferGroup,
		&reason,
		&status,
		&pt.CreatedAt,
		&pt.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PendingTransfer{}, ErrNotFound
		}
		return PendingTransfer{}, err
	}
	pt.Reason = Reason(reason)
	pt.Status = TransferStatus(status)
	return pt, nil
}

func (r *PGRepo) DeleteByIntent(ctx context.Context, paymentIntentID string) error {
	const query = `DELETE FROM pending_transfers WHERE payment_intent_id = $1`
	_, err := r.DB.ExecContext(ctx, query, paymentIntentID)
	return err
}

func (r *PGRepo) ListQueuedBySeller(ctx context.Context, sellerID string) ([]PendingTransfer, error) {
	const query = `
SELECT id, payment_intent_id, seller_id, item_id, amount_cents, currency, transfer_group, reason, status, created_at, expires_at
FROM pending_transfers
WHERE seller_id = $1 AND status = 'queued'
ORDER BY created_at`
	return r.list(ctx, query, sellerID)
}

func (r *PGRepo) ListQueued(ctx context.Context, limit int) ([]PendingTransfer, error) {
	// Postgres reads LIMIT 0 as "zero rows", so the unlimited case must
	// omit the clause entirely.
	const query = `
SELECT id, payment_intent_id, seller_id, item_id, amount_cents, currency, transfer_group, reason, status, created_at, expires_at
FROM pending_transfers
WHERE status = 'queued'
ORDER BY created_at`
	if limit > 0 {
		return r.list(ctx, query+`
LIMIT $1`, limit)
	}
	return r.list(ctx, query)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]PendingTransfer, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingTransfer
	for rows.Next() {
		var pt PendingTransfer
		var reason, status string
		if err := rows.Scan(
			&pt.ID,
			&pt.PaymentIntentID,
			&pt.SellerID,
			&pt.ItemID,
			&pt.AmountCents,
			&pt.Currency,
			&pt.TransferGroup,
			&reason,
			&status,
			&pt.CreatedAt,
			&pt.ExpiresAt,
		); err != nil {
			return nil, err
		}
		pt.Reason = Reason(reason)
		pt.Status = TransferStatus(status)
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (r *PGRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const query = `
UPDATE pending_transfers
SET status = 'expired'
WHERE status = 'queued' AND expires_at < $1`
	res, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ Repo = (*PGRepo)(nil)

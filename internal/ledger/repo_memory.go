package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and DB-less dev.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]PendingTransfer // keyed by payment intent id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]PendingTransfer)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, pt PendingTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rows[pt.PaymentIntentID]; ok {
		existing.AmountCents = pt.AmountCents
		existing.Currency = pt.Currency
		existing.TransferGroup = pt.TransferGroup
		existing.Reason = pt.Reason
		r.rows[pt.PaymentIntentID] = existing
		return nil
	}
	if pt.CreatedAt.IsZero() {
		pt.CreatedAt = time.Now().UTC()
	}
	r.rows[pt.PaymentIntentID] = pt
	return nil
}

func (r *MemoryRepo) GetByIntent(ctx context.Context, paymentIntentID string) (PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.rows[paymentIntentID]
	if !ok {
		return PendingTransfer{}, ErrNotFound
	}
	return pt, nil
}

func (r *MemoryRepo) DeleteByIntent(ctx context.Context, paymentIntentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, paymentIntentID)
	return nil
}

func (r *MemoryRepo) ListQueuedBySeller(ctx context.Context, sellerID string) ([]PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PendingTransfer
	for _, pt := range r.rows {
		if pt.SellerID == sellerID && pt.Status == StatusQueued {
			out = append(out, pt)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r *MemoryRepo) ListQueued(ctx context.Context, limit int) ([]PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PendingTransfer
	for _, pt := range r.rows {
		if pt.Status == StatusQueued {
			out = append(out, pt)
		}
	}
	sortByCreated(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired int64
	for key, pt := range r.rows {
		if pt.Status == StatusQueued && pt.ExpiresAt.Before(now) {
			pt.Status = StatusExpired
			r.rows[key] = pt
			expired++
		}
	}
	return expired, nil
}

func sortByCreated(rows []PendingTransfer) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
}

var _ Repo = (*MemoryRepo)(nil)

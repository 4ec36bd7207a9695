package payments

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// EventRepo records processed webhook event ids for exactly-once intake.
// TryInsert is the only write path: the first writer wins and a duplicate
// insert reports inserted=false rather than an error.
type EventRepo interface {
	TryInsert(ctx context.Context, eventID string, expiresAt time.Time) (inserted bool, err error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGEventRepo stores processed events in Postgres.
type PGEventRepo struct {
	DB *sql.DB
}

func (r *PGEventRepo) TryInsert(ctx context.Context, eventID string, expiresAt time.Time) (bool, error) {
	const query = `
INSERT INTO processed_events (event_id, received_at, expires_at)
VALUES ($1, now(), $2)
ON CONFLICT (event_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, eventID, expiresAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *PGEventRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM processed_events WHERE expires_at < $1`
	res, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MemoryEventRepo is an in-memory EventRepo for tests and DB-less dev.
type MemoryEventRepo struct {
	mu     sync.Mutex
	events map[string]time.Time
}

func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{events: make(map[string]time.Time)}
}

func (r *MemoryEventRepo) TryInsert(ctx context.Context, eventID string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[eventID]; ok {
		return false, nil
	}
	r.events[eventID] = expiresAt
	return true, nil
}

func (r *MemoryEventRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id, exp := range r.events {
		if exp.Before(now) {
			delete(r.events, id)
			purged++
		}
	}
	return purged, nil
}

var (
	_ EventRepo = (*PGEventRepo)(nil)
	_ EventRepo = (*MemoryEventRepo)(nil)
)

package downloads

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and DB-less dev.
type MemoryRepo struct {
	mu        sync.Mutex
	byToken   map[string]DownloadToken
	bySession map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byToken:   make(map[string]DownloadToken),
		bySession: make(map[string]string),
	}
}

func (r *MemoryRepo) Insert(ctx context.Context, token DownloadToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySession[token.SessionID]; ok {
		return false, nil
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	r.byToken[token.Token] = token
	r.bySession[token.SessionID] = token.Token
	return true, nil
}

func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (DownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok {
		return DownloadToken{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) GetBySession(ctx context.Context, sessionID string) (DownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.bySession[sessionID]
	if !ok {
		return DownloadToken{}, ErrNotFound
	}
	return r.byToken[tok], nil
}

func (r *MemoryRepo) MarkUsed(ctx context.Context, token string, usedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok || t.Status != TokenUnused {
		return false, nil
	}
	t.markUsed(usedAt)
	r.byToken[token] = t
	return true, nil
}

func (r *MemoryRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired int64
	for key, t := range r.byToken {
		if t.Status == TokenUnused && t.ExpiredAt(now) {
			t.Status = TokenExpired
			r.byToken[key] = t
			expired++
		}
	}
	return expired, nil
}

var _ Repo = (*MemoryRepo)(nil)

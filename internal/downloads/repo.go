package downloads

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("download token not found")
	ErrExpired     = errors.New("download token expired")
	ErrAlreadyUsed = errors.New("download token already used")
)

type Repo interface {
	// Insert records a token; inserted=false means a token already exists
	// for the session (the unique constraint is the concurrency primitive).
	Insert(ctx context.Context, token DownloadToken) (inserted bool, err error)
	GetByToken(ctx context.Context, token string) (DownloadToken, error)
	GetBySession(ctx context.Context, sessionID string) (DownloadToken, error)
	// MarkUsed claims the token; claimed=false means another redemption won.
	MarkUsed(ctx context.Context, token string, usedAt time.Time) (claimed bool, err error)
	// ExpireStale transitions unused tokens past expiry to expired.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

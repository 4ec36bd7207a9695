package downloads

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, token DownloadToken) (bool, error) {
	const query = `
INSERT INTO download_tokens (token, item_id, session_id, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (session_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query,
		token.Token,
		token.ItemID,
		token.SessionID,
		string(token.Status),
		token.ExpiresAt,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *PGRepo) GetByToken(ctx context.Context, token string) (DownloadToken, error) {
	return r.get(ctx, `WHERE token = $1`, token)
}

func (r *PGRepo) GetBySession(ctx context.Context, sessionID string) (DownloadToken, error) {
	return r.get(ctx, `WHERE session_id = $1`, sessionID)
}

func (r *PGRepo) get(ctx context.Context, where, arg string) (DownloadToken, error) {
	query := `
SELECT token, item_id, session_id, status, expires_at, used_at, created_at
FROM download_tokens ` + where + ` LIMIT 1`
	var t DownloadToken
	var status string
	var usedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&t.Token,
		&t.ItemID,
		&t.SessionID,
		&status,
		&t.ExpiresAt,
		&usedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DownloadToken{}, ErrNotFound
		}
		return DownloadToken{}, err
	}
	t.Status = TokenStatus(status)
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return t, nil
}

func (r *PGRepo) MarkUsed(ctx context.Context, token string, usedAt time.Time) (bool, error) {
	const query = `
UPDATE download_tokens
SET status = 'used', used_at = $2
WHERE token = $1 AND status = 'unused'`
	res, err := r.DB.ExecContext(ctx, query, token, usedAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *PGRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const query = `
UPDATE download_tokens
SET status = 'expired'
WHERE status = 'unused' AND expires_at < $1`
	res, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ Repo = (*PGRepo)(nil)

package downloads

import "time"

// TokenStatus is the explicit lifecycle state of a download token.
type TokenStatus string

const (
	TokenUnused  TokenStatus = "unused"
	TokenUsed    TokenStatus = "used"
	TokenExpired TokenStatus = "expired"
)

// DownloadToken is a one-time capability granting one download of a
// purchased item. SessionID is unique: at most one token per checkout
// session, ever.
type DownloadToken struct {
	Token     string
	ItemID    string
	SessionID string
	Status    TokenStatus
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the token's expiry has passed. Expiry wins over
// the used flag: an expired token is rejected as expired regardless of
// whether it was redeemed.
func (t DownloadToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// markUsed transitions unused -> used. Any other transition is rejected by
// the repo's guarded update; this is the only mutation a token supports
// besides expiry.
func (t *DownloadToken) markUsed(now time.Time) {
	t.Status = TokenUsed
	t.UsedAt = &now
}

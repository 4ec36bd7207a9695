package downloads

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"pixelmart-backend/internal/items"
	"pixelmart-backend/internal/shared/metrics"
	"pixelmart-backend/internal/shared/storage/object"
	"pixelmart-backend/internal/shared/telemetry"
)

// Grant is the outcome of a successful redemption: either a short-lived
// signed URL, or a direct stream for legacy locally-stored items.
type Grant struct {
	Item        items.Item
	URL         string
	ExpiresIn   time.Duration
	Content     io.ReadCloser
	ContentType string
}

// Service issues and redeems download tokens.
type Service struct {
	Repo         Repo
	Items        items.Repo
	Store        object.ObjectStore
	SignedURLTTL time.Duration

	now func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, itemRepo items.Repo, store object.ObjectStore, signedURLTTL time.Duration) *Service {
	if signedURLTTL <= 0 {
		signedURLTTL = 60 * time.Second
	}
	return &Service{
		Repo:         repo,
		Items:        itemRepo,
		Store:        store,
		SignedURLTTL: signedURLTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a download token for a paid checkout session. Idempotent: a
// second call for the same session returns the original token unchanged.
func (s *Service) Issue(ctx context.Context, itemID, sessionID string, ttl time.Duration) (DownloadToken, error) {
	if itemID == "" || sessionID == "" {
		return DownloadToken{}, fmt.Errorf("item id and session id are required")
	}
	if ttl <= 0 {
		ttl = 120 * time.Minute
	}

	token := DownloadToken{
		Token:     newToken(),
		ItemID:    itemID,
		SessionID: sessionID,
		Status:    TokenUnused,
		ExpiresAt: s.now().Add(ttl),
	}

	inserted, err := s.Repo.Insert(ctx, token)
	if err != nil {
		return DownloadToken{}, fmt.Errorf("insert token: %w", err)
	}
	if !inserted {
		return s.Repo.GetBySession(ctx, sessionID)
	}

	metrics.IncTokenIssued()
	telemetry.Info("download.token_issued", map[string]any{
		"item_id":    itemID,
		"session_id": sessionID,
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})
	return token, nil
}

// Redeem consumes a token and returns a grant. Every success path marks the
// token used, atomically, so the single-use guarantee is uniform.
func (s *Service) Redeem(ctx context.Context, rawToken string) (Grant, error) {
	token, err := s.Repo.GetByToken(ctx, rawToken)
	if err != nil {
		return Grant{}, err
	}

	now := s.now()
	if token.ExpiredAt(now) {
		return Grant{}, ErrExpired
	}
	if token.Status != TokenUnused {
		return Grant{}, ErrAlreadyUsed
	}

	item, err := s.Items.GetByID(ctx, token.ItemID)
	if err != nil {
		return Grant{}, fmt.Errorf("load item: %w", err)
	}

	grant, err := s.buildGrant(ctx, item)
	if err != nil {
		return Grant{}, err
	}

	// Claim last so a failed grant build never burns the token; the
	// guarded update decides races between concurrent redemptions.
	claimed, err := s.Repo.MarkUsed(ctx, token.Token, now)
	if err != nil || !claimed {
		if grant.Content != nil {
			grant.Content.Close()
		}
		if err != nil {
			return Grant{}, fmt.Errorf("mark used: %w", err)
		}
		return Grant{}, ErrAlreadyUsed
	}

	metrics.IncTokenRedeemed()
	telemetry.Info("download.token_redeemed", map[string]any{
		"item_id":    item.ID,
		"session_id": token.SessionID,
	})
	return grant, nil
}

func (s *Service) buildGrant(ctx context.Context, item items.Item) (Grant, error) {
	if item.Legacy() {
		f, err := os.Open(item.LocalPath)
		if err != nil {
			return Grant{}, fmt.Errorf("open legacy asset: %w", err)
		}
		return Grant{Item: item, Content: f, ContentType: "application/octet-stream"}, nil
	}

	url, err := s.Store.SignedURL(ctx, item.StorageKey, s.SignedURLTTL)
	if err == nil {
		return Grant{Item: item, URL: url, ExpiresIn: s.SignedURLTTL}, nil
	}
	if !errors.Is(err, object.ErrSignedURLUnsupported) {
		return Grant{}, fmt.Errorf("sign url: %w", err)
	}

	rc, err := s.Store.Open(ctx, item.StorageKey)
	if err != nil {
		return Grant{}, fmt.Errorf("open asset: %w", err)
	}
	return Grant{Item: item, Content: rc, ContentType: "application/octet-stream"}, nil
}

func newToken() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is unrecoverable for capability minting
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b[:])
}

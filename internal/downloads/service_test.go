package downloads

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixelmart-backend/internal/items"
	"pixelmart-backend/internal/shared/storage/object"
)

type fakeStore struct {
	signedURL string
	signErr   error
	objects   map[string]string
}

func (f *fakeStore) Save(ctx context.Context, userId string, fileName string, r io.Reader) (string, int64, string, error) {
	return "", 0, "", errors.New("not implemented")
}

func (f *fakeStore) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeStore) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return f.signedURL, nil
}

func newTestService(t *testing.T, store object.ObjectStore) (*Service, *MemoryRepo, *items.MemoryRepo) {
	t.Helper()
	tokenRepo := NewMemoryRepo()
	itemRepo := items.NewMemoryRepo()
	svc := NewService(tokenRepo, itemRepo, store, 60*time.Second)
	return svc, tokenRepo, itemRepo
}

func seedItem(t *testing.T, repo *items.MemoryRepo, item items.Item) {
	t.Helper()
	if err := repo.Create(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func TestIssueIsIdempotentPerSession(t *testing.T) {
	svc, _, itemRepo := newTestService(t, &fakeStore{})
	seedItem(t, itemRepo, items.Item{ID: "item-1", Slug: "a", StorageKey: "originals/a.png"})
	ctx := context.Background()

	first, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first.Token != second.Token {
		t.Fatalf("expected same token for same session, got %q and %q", first.Token, second.Token)
	}
	if len(first.Token) < 40 {
		t.Fatalf("token suspiciously short: %q", first.Token)
	}
}

func TestRedeemReturnsSignedURLAndBurnsToken(t *testing.T) {
	store := &fakeStore{signedURL: "https://s3.example/signed"}
	svc, _, itemRepo := newTestService(t, store)
	seedItem(t, itemRepo, items.Item{ID: "item-1", Slug: "a", Title: "A", StorageKey: "originals/a.png"})
	ctx := context.Background()

	token, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	grant, err := svc.Redeem(ctx, token.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if grant.URL != "https://s3.example/signed" {
		t.Fatalf("url = %q", grant.URL)
	}
	if grant.ExpiresIn != 60*time.Second {
		t.Fatalf("expiresIn = %s", grant.ExpiresIn)
	}

	if _, err := svc.Redeem(ctx, token.Token); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("second redeem err = %v, want ErrAlreadyUsed", err)
	}
}

func TestRedeemExpiredWinsOverUsed(t *testing.T) {
	svc, _, itemRepo := newTestService(t, &fakeStore{signedURL: "https://s3.example/signed"})
	seedItem(t, itemRepo, items.Item{ID: "item-1", Slug: "a", StorageKey: "originals/a.png"})
	ctx := context.Background()

	token, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Redeem(ctx, token.Token); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// Move the clock past expiry: the expired verdict must win even though
	// the token is also used.
	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, err := svc.Redeem(ctx, token.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeStore{})
	if _, err := svc.Redeem(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRedeemFailedGrantKeepsTokenUnused(t *testing.T) {
	store := &fakeStore{signErr: errors.New("s3 unavailable")}
	svc, _, itemRepo := newTestService(t, store)
	seedItem(t, itemRepo, items.Item{ID: "item-1", Slug: "a", StorageKey: "originals/a.png"})
	ctx := context.Background()

	token, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Redeem(ctx, token.Token); err == nil {
		t.Fatal("expected redeem to fail")
	}

	// The failed grant must not have burned the token.
	store.signErr = nil
	store.signedURL = "https://s3.example/signed"
	if _, err := svc.Redeem(ctx, token.Token); err != nil {
		t.Fatalf("retry redeem: %v", err)
	}
}

func TestRedeemFallsBackToStreamWhenSigningUnsupported(t *testing.T) {
	store := &fakeStore{
		signErr: object.ErrSignedURLUnsupported,
		objects: map[string]string{"originals/a.png": "image-bytes"},
	}
	svc, _, itemRepo := newTestService(t, store)
	seedItem(t, itemRepo, items.Item{ID: "item-1", Slug: "a", StorageKey: "originals/a.png"})
	ctx := context.Background()

	token, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	grant, err := svc.Redeem(ctx, token.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if grant.Content == nil {
		t.Fatal("expected streamed content")
	}
	defer grant.Content.Close()
	body, err := io.ReadAll(grant.Content)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if string(body) != "image-bytes" {
		t.Fatalf("body = %q", body)
	}
}

func TestRedeemLegacyItemStreamsFromDisk(t *testing.T) {
	svc, _, itemRepo := newTestService(t, &fakeStore{})
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.png")
	if err := os.WriteFile(path, []byte("legacy-bytes"), 0o600); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	seedItem(t, itemRepo, items.Item{ID: "item-1", Slug: "a", LocalPath: path})
	ctx := context.Background()

	token, err := svc.Issue(ctx, "item-1", "cs_1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	grant, err := svc.Redeem(ctx, token.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	defer grant.Content.Close()
	body, err := io.ReadAll(grant.Content)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if string(body) != "legacy-bytes" {
		t.Fatalf("body = %q", body)
	}
}

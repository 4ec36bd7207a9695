package items

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"pixelmart-backend/internal/previews"
	"pixelmart-backend/internal/shared/storage/object"
)

var (
	ErrPriceTooLow      = errors.New("price below platform minimum")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedImage = errors.New("unsupported image")
)

// Service owns listing creation and preview generation.
type Service struct {
	Repo          Repo
	Store         object.ObjectStore
	MinPriceCents int64
}

// UploadInput carries a new listing and its original image bytes.
type UploadInput struct {
	Title      string
	License    string
	Currency   string
	PriceCents int64
	FileName   string
	Data       []byte
}

// Upload stores the original, generates a watermarked preview and creates
// the listing. The item is immutable afterwards except preview repair.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (Item, error) {
	if strings.TrimSpace(in.Title) == "" || len(in.Data) == 0 {
		return Item{}, ErrInvalidInput
	}
	if in.PriceCents < s.MinPriceCents {
		return Item{}, ErrPriceTooLow
	}

	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}

	preview, err := previews.Generate(in.Data)
	if err != nil {
		return Item{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, err)
	}

	storageKey, _, _, err := s.Store.Save(ctx, userID, in.FileName, bytes.NewReader(in.Data))
	if err != nil {
		return Item{}, fmt.Errorf("store original: %w", err)
	}

	slug := newSlug()
	previewKey := path.Join("previews", slug+".jpg")
	if _, err := s.Store.SaveWithKey(ctx, previewKey, "image/jpeg", bytes.NewReader(preview)); err != nil {
		return Item{}, fmt.Errorf("store preview: %w", err)
	}

	item := Item{
		ID:         uuid.NewString(),
		Slug:       slug,
		Title:      strings.TrimSpace(in.Title),
		PriceCents: in.PriceCents,
		Currency:   currency,
		StorageKey: storageKey,
		PreviewKey: previewKey,
		UserID:     userID,
		License:    strings.TrimSpace(in.License),
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// RepairPreview regenerates the watermarked preview from the original.
// This is the only administrative mutation an item supports.
func (s *Service) RepairPreview(ctx context.Context, slug string) (Item, error) {
	item, err := s.Repo.GetBySlug(ctx, slug)
	if err != nil {
		return Item{}, err
	}

	original, err := s.readOriginal(ctx, item)
	if err != nil {
		return Item{}, fmt.Errorf("read original: %w", err)
	}

	preview, err := previews.Generate(original)
	if err != nil {
		return Item{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, err)
	}

	previewKey := path.Join("previews", item.Slug+"_"+shortID()+".jpg")
	if _, err := s.Store.SaveWithKey(ctx, previewKey, "image/jpeg", bytes.NewReader(preview)); err != nil {
		return Item{}, fmt.Errorf("store preview: %w", err)
	}
	if err := s.Repo.UpdatePreviewKey(ctx, item.ID, previewKey); err != nil {
		return Item{}, err
	}
	item.PreviewKey = previewKey
	return item, nil
}

// OpenPreview opens the watermarked preview for streaming.
func (s *Service) OpenPreview(ctx context.Context, item Item) (io.ReadCloser, error) {
	if item.PreviewKey == "" {
		return nil, ErrNotFound
	}
	return s.Store.Open(ctx, item.PreviewKey)
}

func (s *Service) readOriginal(ctx context.Context, item Item) ([]byte, error) {
	if item.Legacy() {
		return os.ReadFile(item.LocalPath)
	}
	rc, err := s.Store.Open(ctx, item.StorageKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func newSlug() string {
	return shortID()
}

func shortID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uuid.NewString()[:12]
	}
	return hex.EncodeToString(b[:])
}

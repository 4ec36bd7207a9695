package items

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	localstore "pixelmart-backend/internal/shared/storage/object/local"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(4 * x), G: uint8(4 * y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newUploadService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Repo:          NewMemoryRepo(),
		Store:         localstore.New(t.TempDir()),
		MinPriceCents: 100,
	}
}

func TestUploadCreatesListingWithPreview(t *testing.T) {
	svc := newUploadService(t)
	ctx := context.Background()

	item, err := svc.Upload(ctx, "seller-1", UploadInput{
		Title:      "Sunset Print",
		PriceCents: 1000,
		FileName:   "sunset.png",
		Data:       pngBytes(t),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if item.Slug == "" || item.StorageKey == "" || item.PreviewKey == "" {
		t.Fatalf("incomplete item: %+v", item)
	}
	if item.Currency != "usd" {
		t.Fatalf("currency = %q, want usd default", item.Currency)
	}

	rc, err := svc.OpenPreview(ctx, item)
	if err != nil {
		t.Fatalf("OpenPreview: %v", err)
	}
	rc.Close()
}

func TestUploadRejectsLowPrice(t *testing.T) {
	svc := newUploadService(t)
	_, err := svc.Upload(context.Background(), "seller-1", UploadInput{
		Title:      "Cheap",
		PriceCents: 50,
		FileName:   "a.png",
		Data:       pngBytes(t),
	})
	if !errors.Is(err, ErrPriceTooLow) {
		t.Fatalf("err = %v, want ErrPriceTooLow", err)
	}
}

func TestUploadRejectsMissingTitle(t *testing.T) {
	svc := newUploadService(t)
	_, err := svc.Upload(context.Background(), "seller-1", UploadInput{
		Title:      "   ",
		PriceCents: 1000,
		FileName:   "a.png",
		Data:       pngBytes(t),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	svc := newUploadService(t)
	_, err := svc.Upload(context.Background(), "seller-1", UploadInput{
		Title:      "Broken",
		PriceCents: 1000,
		FileName:   "a.txt",
		Data:       []byte("not an image"),
	})
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("err = %v, want ErrUnsupportedImage", err)
	}
}

func TestRepairPreviewRotatesKey(t *testing.T) {
	svc := newUploadService(t)
	ctx := context.Background()

	item, err := svc.Upload(ctx, "seller-1", UploadInput{
		Title:      "Sunset Print",
		PriceCents: 1000,
		FileName:   "sunset.png",
		Data:       pngBytes(t),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	repaired, err := svc.RepairPreview(ctx, item.Slug)
	if err != nil {
		t.Fatalf("RepairPreview: %v", err)
	}
	if repaired.PreviewKey == item.PreviewKey {
		t.Fatal("expected a fresh preview key after repair")
	}
	rc, err := svc.OpenPreview(ctx, repaired)
	if err != nil {
		t.Fatalf("OpenPreview after repair: %v", err)
	}
	rc.Close()
}

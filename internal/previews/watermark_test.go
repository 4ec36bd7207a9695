package previews

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateProducesJPEG(t *testing.T) {
	preview, err := Generate(encodePNG(t, 200, 120))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(preview)); err != nil {
		t.Fatalf("preview is not a decodable JPEG: %v", err)
	}
}

func TestGenerateDownscalesLargeImages(t *testing.T) {
	preview, err := Generate(encodePNG(t, 3000, 1500))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(preview))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > MaxPreviewEdge || bounds.Dy() > MaxPreviewEdge {
		t.Fatalf("preview %dx%d exceeds max edge %d", bounds.Dx(), bounds.Dy(), MaxPreviewEdge)
	}
	// Aspect ratio survives the fit.
	if bounds.Dx() != 1024 || bounds.Dy() != 512 {
		t.Fatalf("preview %dx%d, want 1024x512", bounds.Dx(), bounds.Dy())
	}
}

func TestGenerateSmallImageKeepsSize(t *testing.T) {
	preview, err := Generate(encodePNG(t, 300, 200))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(preview))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 200 {
		t.Fatalf("preview resized to %dx%d, want 300x200", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestGenerateRejectsNonImage(t *testing.T) {
	if _, err := Generate([]byte("definitely not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

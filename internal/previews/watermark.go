package previews

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	// MaxPreviewEdge bounds the longest edge of a generated preview.
	MaxPreviewEdge = 1024

	jpegQuality = 80
	stripePitch = 96
	stripeWidth = 14
)

// Generate decodes an uploaded image, downscales it and overlays a tiled
// translucent stripe watermark, returning JPEG bytes suitable for public
// display.
func Generate(original []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > MaxPreviewEdge || bounds.Dy() > MaxPreviewEdge {
		src = imaging.Fit(src, MaxPreviewEdge, MaxPreviewEdge, imaging.Lanczos)
	}

	marked := imaging.Overlay(src, stamp(src.Bounds().Dx(), src.Bounds().Dy()), image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, marked, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// stamp draws diagonal translucent stripes across the full preview area so
// that no crop of the preview is clean.
func stamp(w, h int) image.Image {
	overlay := image.NewNRGBA(image.Rect(0, 0, w, h))
	stripe := color.NRGBA{R: 255, G: 255, B: 255, A: 70}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if (x+y)%stripePitch < stripeWidth {
				overlay.SetNRGBA(x, y, stripe)
			}
		}
	}

	// Faint border marks the asset as a preview even on tiny crops.
	border := color.NRGBA{R: 255, G: 255, B: 255, A: 110}
	draw.Draw(overlay, image.Rect(0, 0, w, 4), &image.Uniform{C: border}, image.Point{}, draw.Src)
	draw.Draw(overlay, image.Rect(0, h-4, w, h), &image.Uniform{C: border}, image.Point{}, draw.Src)

	return overlay
}

// Package imgio loads and saves the image files the CLI works with. It is
// the only package that touches the filesystem; the geometric core operates
// purely on in-memory planes.
package imgio

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder for image.Decode
)

// Load reads an image from disk. PNG, JPEG, GIF, TIFF, BMP and WebP inputs
// are supported.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err == nil {
		return img, nil
	}

	// imaging.Open only knows the formats imaging registers itself; fall
	// back to a direct WebP decode before giving up.
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open image: %w", openErr)
	}
	defer f.Close()
	if img, webpErr := webp.Decode(f); webpErr == nil {
		return img, nil
	}
	return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
}

// Save writes an image in the given format. Quality applies to JPEG and
// lossy WebP; lossless applies to WebP only.
func Save(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return nil
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

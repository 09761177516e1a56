// Package preview renders diagnostic overlays: the computed context box and
// a tint over the masked pixels, drawn on top of the source image. The
// overlay is for human inspection only and never feeds back into the
// pipeline.
package preview

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blend"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/inpaintkit/cropstitch/internal/buffer"
	ctxarea "github.com/inpaintkit/cropstitch/internal/context"
)

// tintOpacity is the blend weight of the mask highlight layer.
const tintOpacity = 0.45

// Overlay renders the image with the masked region tinted and the context
// box outlined. The mask highlight is magenta, the box border green; both
// are picked in HSV so they stay readable over most photographic content.
func Overlay(img *buffer.Image, mask *buffer.Mask, box ctxarea.Box) image.Image {
	base := img.ToNRGBA()
	bounds := base.Bounds()

	highlight := toNRGBA(colorful.Hsv(315, 0.85, 1.0))
	boxColor := toNRGBA(colorful.Hsv(130, 0.9, 0.95))

	// Highlight layer: masked pixels take the tint, the rest copy the base
	// so the uniform blend below only changes masked pixels.
	tint := image.NewNRGBA(bounds)
	draw.Draw(tint, bounds, base, bounds.Min, draw.Src)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(y, x) > 0 {
				tint.SetNRGBA(x, y, highlight)
			}
		}
	}

	out := blend.Opacity(base, tint, tintOpacity)

	// Box outline, one pixel wide.
	for x := box.XMin; x <= box.XMax; x++ {
		out.Set(x, box.YMin, boxColor)
		out.Set(x, box.YMax, boxColor)
	}
	for y := box.YMin; y <= box.YMax; y++ {
		out.Set(box.XMin, y, boxColor)
		out.Set(box.XMax, y, boxColor)
	}
	return out
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

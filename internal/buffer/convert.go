package buffer

import (
	"image"
	"image/color"
	"math"
)

// FromImage converts a decoded image into a normalized RGB float plane.
//
// The alpha channel is dropped; callers that need transparency should
// pre-composite before conversion. 16-bit sources keep only their high byte,
// matching the 8-bit convention used across the toolchain.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	out := NewImage(bounds.Dy(), bounds.Dx(), 3)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b, _ := src.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			out.Set(y, x, 0, float64(r>>8)/255.0)
			out.Set(y, x, 1, float64(g>>8)/255.0)
			out.Set(y, x, 2, float64(b>>8)/255.0)
		}
	}
	return out
}

// MaskFromImage converts a decoded image into a normalized mask plane.
//
// Color sources are reduced to luminance using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B), so a white-on-black mask image maps to
// 1-on-0 mask values.
func MaskFromImage(src image.Image) *Mask {
	bounds := src.Bounds()
	out := NewMask(bounds.Dy(), bounds.Dx())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b, _ := src.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			rf := float64(r>>8) / 255.0
			gf := float64(g>>8) / 255.0
			bf := float64(b>>8) / 255.0
			out.Set(y, x, 0.299*rf+0.587*gf+0.114*bf)
		}
	}
	return out
}

// ToNRGBA renders the float plane as an 8-bit image for encoding.
// Values are clamped to [0,1] and rounded; single-channel planes are
// replicated to gray, extra channels beyond the third are ignored.
func (im *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			var r, g, b float64
			switch {
			case im.Channels >= 3:
				r = im.At(y, x, 0)
				g = im.At(y, x, 1)
				b = im.At(y, x, 2)
			default:
				r = im.At(y, x, 0)
				g, b = r, r
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: quantize(r),
				G: quantize(g),
				B: quantize(b),
				A: 255,
			})
		}
	}
	return out
}

// ToGray renders the mask as an 8-bit grayscale image for encoding.
func (m *Mask) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			out.SetGray(x, y, color.Gray{Y: quantize(m.At(y, x))})
		}
	}
	return out
}

func quantize(v float64) uint8 {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return uint8(math.Round(v * 255))
}

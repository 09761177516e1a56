// Package stitch crops the context area out of an image/mask pair and later
// composites a processed sub-image back into the original at the recorded
// offset, blending only where the mask allows.
package stitch

import (
	"github.com/inpaintkit/cropstitch/internal/buffer"
	ctxarea "github.com/inpaintkit/cropstitch/internal/context"
)

// Descriptor records where a crop came from so the processed result can be
// stitched back: the crop's top-left offset in original coordinates, the
// original image and the cropped mask used as the blend weight.
//
// A Descriptor is created by Crop and consumed exactly once by Stitch. The
// original image it holds must stay unmodified in between; concurrent
// stitching against the same descriptor is not supported.
type Descriptor struct {
	X           int
	Y           int
	Original    *buffer.Image
	CroppedMask *buffer.Mask
}

// Crop slices the image and mask to the context box and returns the stitch
// descriptor alongside the new sub-buffers. The inputs are never mutated and
// the sub-buffers share no storage with them.
func Crop(img *buffer.Image, mask *buffer.Mask, box ctxarea.Box) (*Descriptor, *buffer.Image, *buffer.Mask) {
	h := box.Height()
	w := box.Width()

	croppedImage := buffer.NewImage(h, w, img.Channels)
	for y := 0; y < h; y++ {
		srcOff := ((box.YMin+y)*img.Width + box.XMin) * img.Channels
		dstOff := y * w * img.Channels
		copy(croppedImage.Pix[dstOff:dstOff+w*img.Channels], img.Pix[srcOff:srcOff+w*img.Channels])
	}

	croppedMask := buffer.NewMask(h, w)
	for y := 0; y < h; y++ {
		srcOff := (box.YMin+y)*mask.Width + box.XMin
		dstOff := y * w
		copy(croppedMask.Pix[dstOff:dstOff+w], mask.Pix[srcOff:srcOff+w])
	}

	desc := &Descriptor{
		X:           box.XMin,
		Y:           box.YMin,
		Original:    img,
		CroppedMask: croppedMask,
	}
	return desc, croppedImage, croppedMask
}

// Stitch blends the inpainted sub-image back into a copy of the original
// image at the descriptor's offset, weighting each pixel by the cropped
// mask. Pixels where the mask is 0 stay identical to the original; pixels
// where it is 1 are fully replaced.
func Stitch(desc *Descriptor, inpainted *buffer.Image) *buffer.Image {
	out := desc.Original.Clone()
	composite(out, inpainted, desc.X, desc.Y, desc.CroppedMask, 1, false)
	return out
}

// composite blends src into dst in place at offset (x, y), mapping offsets
// to destination pixels with floor division by multiplier.
//
// When resizeSource is set, src is first resized (bilinear) to the
// destination dimensions. The mask, when present, is resized (bilinear) to
// the source dimensions; a nil mask blends as all-ones, i.e. a hard paste.
// The offset is clamped so the source overlaps the destination by at least
// one pixel where possible; when no overlap survives, dst is left unchanged.
func composite(dst, src *buffer.Image, x, y int, mask *buffer.Mask, multiplier int, resizeSource bool) {
	if resizeSource {
		src = buffer.ResizeImage(src, dst.Height, dst.Width)
	}

	x = clampInt(x, -src.Width*multiplier, dst.Width*multiplier)
	y = clampInt(y, -src.Height*multiplier, dst.Height*multiplier)

	left := floorDiv(x, multiplier)
	top := floorDiv(y, multiplier)

	if mask != nil {
		mask = buffer.ResizeMask(mask, src.Height, src.Width)
	}

	// Visible region: intersection of the placed source rectangle with the
	// destination bounds.
	srcX0 := max(0, -left)
	srcY0 := max(0, -top)
	dstX0 := max(0, left)
	dstY0 := max(0, top)
	visW := min(src.Width-srcX0, dst.Width-dstX0)
	visH := min(src.Height-srcY0, dst.Height-dstY0)
	if visW <= 0 || visH <= 0 {
		return
	}

	channels := min(src.Channels, dst.Channels)
	for dy := 0; dy < visH; dy++ {
		sy := srcY0 + dy
		ty := dstY0 + dy
		for dx := 0; dx < visW; dx++ {
			sx := srcX0 + dx
			tx := dstX0 + dx
			w := 1.0
			if mask != nil {
				w = mask.At(sy, sx)
			}
			for c := 0; c < channels; c++ {
				blended := w*src.At(sy, sx, c) + (1-w)*dst.At(ty, tx, c)
				dst.Set(ty, tx, c, blended)
			}
		}
	}
}

// floorDiv divides rounding toward negative infinity, matching the offset
// mapping contract for negative coordinates.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

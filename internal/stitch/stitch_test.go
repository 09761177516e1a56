package stitch

import (
	"math"
	"testing"

	"github.com/inpaintkit/cropstitch/internal/buffer"
	ctxarea "github.com/inpaintkit/cropstitch/internal/context"
)

// gradientImage builds an image whose pixel values encode their coordinates,
// so misplaced pixels are easy to catch.
func gradientImage(h, w, c int) *buffer.Image {
	im := buffer.NewImage(h, w, c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				im.Set(y, x, ch, float64(y*w+x+ch)/float64(h*w+c))
			}
		}
	}
	return im
}

func onesMask(h, w int) *buffer.Mask {
	m := buffer.NewMask(h, w)
	for i := range m.Pix {
		m.Pix[i] = 1
	}
	return m
}

func imagesEqual(a, b *buffer.Image) bool {
	if a.Height != b.Height || a.Width != b.Width || a.Channels != b.Channels {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}

func TestCrop_SlicesBox(t *testing.T) {
	img := gradientImage(20, 30, 3)
	mask := onesMask(20, 30)
	box := ctxarea.Box{YMin: 5, YMax: 14, XMin: 10, XMax: 21}

	desc, croppedImg, croppedMask := Crop(img, mask, box)

	if croppedImg.Height != 10 || croppedImg.Width != 12 {
		t.Fatalf("cropped image: got %dx%d, want 12x10", croppedImg.Width, croppedImg.Height)
	}
	if croppedMask.Height != 10 || croppedMask.Width != 12 {
		t.Fatalf("cropped mask: got %dx%d, want 12x10", croppedMask.Width, croppedMask.Height)
	}
	if desc.X != 10 || desc.Y != 5 {
		t.Errorf("descriptor offset: got (%d,%d), want (10,5)", desc.X, desc.Y)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 12; x++ {
			if got, want := croppedImg.At(y, x, 0), img.At(y+5, x+10, 0); got != want {
				t.Fatalf("pixel (%d,%d): got %g, want %g", y, x, got, want)
			}
		}
	}
}

func TestCrop_DoesNotMutateInputs(t *testing.T) {
	img := gradientImage(10, 10, 3)
	mask := onesMask(10, 10)
	imgBefore := img.Clone()
	box := ctxarea.Box{YMin: 2, YMax: 7, XMin: 2, XMax: 7}

	_, croppedImg, croppedMask := Crop(img, mask, box)
	croppedImg.Set(0, 0, 0, -99)
	croppedMask.Set(0, 0, -99)

	if !imagesEqual(img, imgBefore) {
		t.Error("crop buffers share storage with the original image")
	}
	if mask.At(2, 2) != 1 {
		t.Error("crop buffers share storage with the original mask")
	}
}

func TestStitch_RoundTripReproducesOriginal(t *testing.T) {
	img := gradientImage(40, 50, 3)
	mask := onesMask(40, 50)
	box := ctxarea.Box{YMin: 8, YMax: 27, XMin: 12, XMax: 41}

	desc, croppedImg, _ := Crop(img, mask, box)
	out := Stitch(desc, croppedImg)

	if !imagesEqual(out, img) {
		t.Error("pasting an unmodified crop back with a full mask must reproduce the original exactly")
	}
}

func TestStitch_ZeroMaskLeavesDestinationUntouched(t *testing.T) {
	img := gradientImage(20, 20, 3)
	box := ctxarea.Box{YMin: 5, YMax: 14, XMin: 5, XMax: 14}
	zeroMask := buffer.NewMask(20, 20)

	desc, croppedImg, _ := Crop(img, zeroMask, box)
	// Replace the crop with garbage; the zero mask must suppress all of it.
	for i := range croppedImg.Pix {
		croppedImg.Pix[i] = 1
	}
	out := Stitch(desc, croppedImg)

	if !imagesEqual(out, img) {
		t.Error("an all-zero mask must leave the destination bit-identical")
	}
}

func TestStitch_BlendsByMaskWeight(t *testing.T) {
	img := buffer.NewImage(10, 10, 3) // all zeros
	mask := buffer.NewMask(10, 10)
	for y := 2; y <= 5; y++ {
		for x := 2; x <= 5; x++ {
			mask.Set(y, x, 0.25)
		}
	}
	box := ctxarea.Box{YMin: 2, YMax: 5, XMin: 2, XMax: 5}

	desc, croppedImg, _ := Crop(img, mask, box)
	for i := range croppedImg.Pix {
		croppedImg.Pix[i] = 1
	}
	out := Stitch(desc, croppedImg)

	// 0.25*1 + 0.75*0 inside the crop.
	if got := out.At(3, 3, 0); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("blended pixel: got %g, want 0.25", got)
	}
	if got := out.At(0, 0, 0); got != 0 {
		t.Errorf("pixel outside crop changed: got %g, want 0", got)
	}
}

func TestStitch_DoesNotMutateOriginal(t *testing.T) {
	img := gradientImage(10, 10, 3)
	before := img.Clone()
	box := ctxarea.Box{YMin: 0, YMax: 9, XMin: 0, XMax: 9}

	desc, croppedImg, _ := Crop(img, onesMask(10, 10), box)
	for i := range croppedImg.Pix {
		croppedImg.Pix[i] = 0.5
	}
	Stitch(desc, croppedImg)

	if !imagesEqual(img, before) {
		t.Error("Stitch must composite into a copy, not the held original")
	}
}

func TestComposite_ResizeSource(t *testing.T) {
	dst := buffer.NewImage(8, 8, 3)
	src := buffer.NewImage(4, 4, 3)
	for i := range src.Pix {
		src.Pix[i] = 1
	}

	composite(dst, src, 0, 0, nil, 1, true)

	for i, v := range dst.Pix {
		if math.Abs(v-1) > 1e-9 {
			t.Fatalf("resized hard paste: pixel %d is %g, want 1", i, v)
		}
	}
}

func TestComposite_MaskResizedToSource(t *testing.T) {
	dst := buffer.NewImage(6, 6, 3)
	src := buffer.NewImage(6, 6, 3)
	for i := range src.Pix {
		src.Pix[i] = 1
	}
	// Mask at half the source resolution, constant 0.5.
	mask := buffer.NewMask(3, 3)
	for i := range mask.Pix {
		mask.Pix[i] = 0.5
	}

	composite(dst, src, 0, 0, mask, 1, false)

	if got := dst.At(3, 3, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("blend with upscaled mask: got %g, want 0.5", got)
	}
}

func TestComposite_PartialOverlap(t *testing.T) {
	dst := buffer.NewImage(10, 10, 1)
	src := buffer.NewImage(4, 4, 1)
	for i := range src.Pix {
		src.Pix[i] = 1
	}

	composite(dst, src, 8, 8, nil, 1, false)

	// Only the 2x2 intersection is written.
	if got := dst.At(9, 9, 0); got != 1 {
		t.Errorf("visible corner: got %g, want 1", got)
	}
	if got := dst.At(7, 7, 0); got != 0 {
		t.Errorf("outside source: got %g, want 0", got)
	}
}

func TestComposite_NegativeOffset(t *testing.T) {
	dst := buffer.NewImage(10, 10, 1)
	src := buffer.NewImage(4, 4, 1)
	for i := range src.Pix {
		src.Pix[i] = 1
	}

	composite(dst, src, -2, -2, nil, 1, false)

	// The top-left 2x2 of the destination receives the bottom-right of the
	// source; everything else stays.
	if got := dst.At(0, 0, 0); got != 1 {
		t.Errorf("clipped corner: got %g, want 1", got)
	}
	if got := dst.At(2, 2, 0); got != 0 {
		t.Errorf("beyond clipped source: got %g, want 0", got)
	}
}

func TestComposite_OffsetClampedToOverlap(t *testing.T) {
	dst := buffer.NewImage(10, 10, 1)
	src := buffer.NewImage(4, 4, 1)
	for i := range src.Pix {
		src.Pix[i] = 1
	}
	before := dst.Clone()

	// Far out of range: the clamp pins the source to the edge where the
	// overlap is empty, so nothing is written.
	composite(dst, src, 500, 500, nil, 1, false)

	if !imagesEqual(dst, before) {
		t.Error("fully out-of-bounds paste must leave the destination unchanged")
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{8, 1, 8},
		{-8, 8, -1},
		{-9, 8, -2},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

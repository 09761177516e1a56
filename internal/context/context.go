// Package context derives the rectangular context area around the masked
// pixels: the tight bounding box of the mask, expanded by caller-controlled
// padding and optionally snapped to preferred sizes or squared.
package context

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/inpaintkit/cropstitch/internal/buffer"
)

// Box is an integer rectangle with inclusive bounds in image coordinates:
// 0 <= YMin <= YMax < height and 0 <= XMin <= XMax < width.
type Box struct {
	YMin int `json:"y_min"`
	YMax int `json:"y_max"`
	XMin int `json:"x_min"`
	XMax int `json:"x_max"`
}

// Width returns the number of pixels the box spans horizontally.
func (b Box) Width() int { return b.XMax - b.XMin + 1 }

// Height returns the number of pixels the box spans vertically.
func (b Box) Height() int { return b.YMax - b.YMin + 1 }

// Options controls how the context area is expanded beyond the tight
// bounding box of the mask.
type Options struct {
	// ExpandPixels is the minimum padding added around the box, in pixels,
	// split between both sides of each axis.
	ExpandPixels int
	// ExpandFactor scales each axis relative to its tight size; 1.0 adds
	// nothing. The larger of factor-based and pixel-based growth wins per axis.
	ExpandFactor float64
	// AdjustToPreferredSizes snaps each axis to the smallest entry of
	// PreferredSizes strictly greater than the axis' tight size.
	AdjustToPreferredSizes bool
	PreferredSizes         []int
	// PreferSquare forces both axes to the same size: the larger of the two
	// chosen preferred sizes when snapping, otherwise the larger tight size.
	PreferSquare bool
}

// Compute derives the context box for the given effective context mask.
//
// A mask with no non-zero pixel yields the whole-image box and ok = false:
// the caller should pass the image and mask through unchanged rather than
// crop. All boundary conditions are resolved by clamping; Compute never
// fails on geometric input.
func Compute(mask *buffer.Mask, opts Options) (box Box, ok bool) {
	h, w := mask.Height, mask.Width
	box, found := tightBounds(mask)
	if !found {
		return Box{YMin: 0, YMax: h - 1, XMin: 0, XMax: w - 1}, false
	}

	ySize := box.Height()
	xSize := box.Width()

	yGrow := int(math.Round(math.Max(float64(ySize)*(opts.ExpandFactor-1), float64(opts.ExpandPixels))))
	xGrow := int(math.Round(math.Max(float64(xSize)*(opts.ExpandFactor-1), float64(opts.ExpandPixels))))
	box.YMin = max(box.YMin-yGrow/2, 0)
	box.YMax = min(box.YMax+yGrow/2, h-1)
	box.XMin = max(box.XMin-xGrow/2, 0)
	box.XMax = min(box.XMax+xGrow/2, w-1)

	switch {
	case opts.AdjustToPreferredSizes:
		// Snap against the tight (pre-expansion) sizes.
		xTarget := nextLarger(opts.PreferredSizes, xSize)
		yTarget := nextLarger(opts.PreferredSizes, ySize)
		if xTarget == 0 {
			xTarget = xSize
		}
		if yTarget == 0 {
			yTarget = ySize
		}
		if opts.PreferSquare {
			xTarget = max(xTarget, yTarget)
			yTarget = xTarget
		}
		xTarget = min(xTarget, w)
		yTarget = min(yTarget, h)
		box.XMin, box.XMax = recenter(box.XMin, box.XMax, w, xTarget)
		box.YMin, box.YMax = recenter(box.YMin, box.YMax, h, yTarget)

	case opts.PreferSquare:
		target := max(xSize, ySize)
		xTarget := min(target, w)
		yTarget := min(target, h)
		box.XMin, box.XMax = recenter(box.XMin, box.XMax, w, xTarget)
		box.YMin, box.YMax = recenter(box.YMin, box.YMax, h, yTarget)
	}

	return box, true
}

// tightBounds returns the smallest box containing every non-zero mask pixel.
func tightBounds(mask *buffer.Mask) (Box, bool) {
	b := Box{YMin: mask.Height, YMax: -1, XMin: mask.Width, XMax: -1}
	for y := 0; y < mask.Height; y++ {
		row := mask.Pix[y*mask.Width : (y+1)*mask.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if y < b.YMin {
				b.YMin = y
			}
			if y > b.YMax {
				b.YMax = y
			}
			if x < b.XMin {
				b.XMin = x
			}
			if x > b.XMax {
				b.XMax = x
			}
		}
	}
	return b, b.YMax >= 0
}

// nextLarger picks the smallest size strictly greater than the given size,
// or 0 when none qualifies. The slice is treated as unsorted.
func nextLarger(sizes []int, size int) int {
	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)
	for _, s := range sorted {
		if s > size {
			return s
		}
	}
	return 0
}

// recenter resizes the [min,max] span on one axis to exactly targetSize
// pixels, keeping the original center when possible and shifting the span
// back inside [0, dimension) when the centered placement would cross a
// border.
func recenter(minVal, maxVal, dimension, targetSize int) (int, int) {
	center := (minVal + maxVal) / 2
	newMin := center - targetSize/2
	newMax := newMin + targetSize - 1
	if newMin < 0 {
		newMin = 0
		newMax = targetSize - 1
	}
	if newMax >= dimension {
		newMax = dimension - 1
		newMin = newMax - targetSize + 1
	}
	return newMin, newMax
}

// ParseSizes parses a comma-separated list of positive pixel sizes, e.g.
// "128,256,512". This is the only operation in the package that can fail;
// a bad list is a configuration error, not a geometry error.
func ParseSizes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid preferred size %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid preferred size %d: must be positive", n)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

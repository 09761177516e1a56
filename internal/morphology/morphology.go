package morphology

import (
	"math"

	"github.com/inpaintkit/cropstitch/internal/buffer"
)

// Options selects which mask transforms to run. The transforms always execute
// in the fixed order invert, grow, fill holes, blur, context union; each
// stage clamps its output to [0,1] before the next stage runs.
type Options struct {
	Invert     bool
	GrowPixels int
	FillHoles  bool
	BlurRadius float64
}

// Apply runs the selected transforms over a copy of the mask and returns the
// working mask together with the effective context mask. The context mask is
// the clamped union of the optional context mask and the working mask, or the
// working mask itself when none is supplied. The input mask is not mutated.
func Apply(mask *buffer.Mask, contextMask *buffer.Mask, opts Options) (working, context *buffer.Mask) {
	m := mask.Clone()
	if opts.Invert {
		m = Invert(m)
	}
	if opts.GrowPixels > 0 {
		m = Grow(m, opts.GrowPixels)
	}
	if opts.FillHoles {
		m = FillHoles(m)
	}
	if opts.BlurRadius > 0 {
		m = Blur(m, opts.BlurRadius)
	}
	return m, ContextUnion(contextMask, m)
}

// Invert returns 1-m, clamped to [0,1].
func Invert(m *buffer.Mask) *buffer.Mask {
	out := buffer.NewMask(m.Height, m.Width)
	for i, v := range m.Pix {
		out.Pix[i] = 1 - v
	}
	out.Clamp01()
	return out
}

// Grow applies a grey dilation with a flat square structuring element of side
// 2*pixels+1: every output pixel is the maximum of the input over the window
// centered there, with the window clipped at the image border. pixels = 0
// returns the mask unchanged.
//
// The square footprint is separable, so the dilation runs as a horizontal
// 1D max pass followed by a vertical one.
func Grow(m *buffer.Mask, pixels int) *buffer.Mask {
	if pixels <= 0 {
		return m
	}
	h, w := m.Height, m.Width
	tmp := buffer.NewMask(h, w)
	for y := 0; y < h; y++ {
		row := m.Pix[y*w : (y+1)*w]
		dst := tmp.Pix[y*w : (y+1)*w]
		maxFilter1D(row, dst, 1, w, pixels)
	}
	out := buffer.NewMask(h, w)
	for x := 0; x < w; x++ {
		maxFilter1D(tmp.Pix[x:], out.Pix[x:], w, h, pixels)
	}
	out.Clamp01()
	return out
}

// maxFilter1D writes the running window maximum of src into dst. Both slices
// are strided views of length n; the window extends radius elements to each
// side and is clipped at the ends.
func maxFilter1D(src, dst []float64, stride, n, radius int) {
	for i := 0; i < n; i++ {
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius
		if hi > n-1 {
			hi = n - 1
		}
		best := src[lo*stride]
		for j := lo + 1; j <= hi; j++ {
			if v := src[j*stride]; v > best {
				best = v
			}
		}
		dst[i*stride] = best
	}
}

// FillHoles closes small gaps in the mask and fills fully enclosed background
// regions.
//
// The mask is thresholded at >0 to binary, bridged with a binary closing
// (dilate then erode, 5x5 full square), and the background is flood-filled
// from every border pixel with 4-connectivity. Background pixels the flood
// never reaches are enclosed holes and become foreground. The result is a
// hard {0,1} mask.
func FillHoles(m *buffer.Mask) *buffer.Mask {
	h, w := m.Height, m.Width
	bin := make([]bool, h*w)
	for i, v := range m.Pix {
		bin[i] = v > 0
	}

	closed := binaryErode(binaryDilate(bin, h, w, 2), h, w, 2)

	// Flood fill the background from the border. Pixels left unreached and
	// not foreground are enclosed holes.
	reached := make([]bool, h*w)
	queue := make([]int, 0, 2*(h+w))
	push := func(idx int) {
		if !reached[idx] && !closed[idx] {
			reached[idx] = true
			queue = append(queue, idx)
		}
	}
	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		y, x := idx/w, idx%w
		if x > 0 {
			push(idx - 1)
		}
		if x < w-1 {
			push(idx + 1)
		}
		if y > 0 {
			push(idx - w)
		}
		if y < h-1 {
			push(idx + w)
		}
	}

	out := buffer.NewMask(h, w)
	for i := range out.Pix {
		if closed[i] || !reached[i] {
			out.Pix[i] = 1
		}
	}
	out.Clamp01()
	return out
}

// binaryDilate sets a pixel when any pixel in the clipped square window of
// the given radius is set.
func binaryDilate(src []bool, h, w, radius int) []bool {
	out := make([]bool, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if windowAny(src, h, w, y, x, radius) {
				out[y*w+x] = true
			}
		}
	}
	return out
}

// binaryErode keeps a pixel only when every pixel in the clipped square
// window of the given radius is set.
func binaryErode(src []bool, h, w, radius int) []bool {
	out := make([]bool, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = windowAll(src, h, w, y, x, radius)
		}
	}
	return out
}

func windowAny(src []bool, h, w, y, x, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		py := y + dy
		if py < 0 || py >= h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			px := x + dx
			if px < 0 || px >= w {
				continue
			}
			if src[py*w+px] {
				return true
			}
		}
	}
	return false
}

func windowAll(src []bool, h, w, y, x, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		py := y + dy
		if py < 0 || py >= h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			px := x + dx
			if px < 0 || px >= w {
				continue
			}
			if !src[py*w+px] {
				return false
			}
		}
	}
	return true
}

// Blur applies an isotropic Gaussian smoothing with sigma = radius/2.
// The kernel is separable and truncated at 3 sigma; border pixels use
// clamped (replicated) edge values. radius = 0 returns the mask unchanged.
func Blur(m *buffer.Mask, radius float64) *buffer.Mask {
	if radius <= 0 {
		return m
	}
	sigma := radius / 2
	kernel := gaussianKernel(sigma)
	kr := len(kernel) / 2
	h, w := m.Height, m.Width

	tmp := buffer.NewMask(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -kr; k <= kr; k++ {
				px := clamp(x+k, 0, w-1)
				sum += m.At(y, px) * kernel[k+kr]
			}
			tmp.Set(y, x, sum)
		}
	}
	out := buffer.NewMask(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -kr; k <= kr; k++ {
				py := clamp(y+k, 0, h-1)
				sum += tmp.At(py, x) * kernel[k+kr]
			}
			out.Set(y, x, sum)
		}
	}
	out.Clamp01()
	return out
}

// gaussianKernel builds a normalized 1D Gaussian of the given sigma,
// truncated at 3 sigma (kernel side 2*ceil(3*sigma)+1).
func gaussianKernel(sigma float64) []float64 {
	kr := int(math.Ceil(3 * sigma))
	if kr < 1 {
		kr = 1
	}
	kernel := make([]float64, 2*kr+1)
	var sum float64
	for i := -kr; i <= kr; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+kr] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// ContextUnion combines an optional context mask with the working mask:
// clamp(context + working, 0, 1). A nil context mask means the working mask
// is the effective context mask.
func ContextUnion(contextMask, working *buffer.Mask) *buffer.Mask {
	if contextMask == nil {
		return working
	}
	out := buffer.NewMask(working.Height, working.Width)
	for i := range out.Pix {
		out.Pix[i] = contextMask.Pix[i] + working.Pix[i]
	}
	out.Clamp01()
	return out
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

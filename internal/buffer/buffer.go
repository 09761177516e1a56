package buffer

// Image is a float image plane with H*W*C layout, row-major, channel-interleaved.
// Values are normalized to [0,1].
type Image struct {
	Height   int
	Width    int
	Channels int
	Pix      []float64
}

// Mask is a single-channel float plane with H*W layout.
// Values are normalized to [0,1]; 1 marks fully masked (editable) pixels.
type Mask struct {
	Height int
	Width  int
	Pix    []float64
}

// NewImage allocates a zero-filled image plane.
func NewImage(height, width, channels int) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float64, height*width*channels),
	}
}

// NewMask allocates a zero-filled mask plane.
func NewMask(height, width int) *Mask {
	return &Mask{
		Height: height,
		Width:  width,
		Pix:    make([]float64, height*width),
	}
}

// At returns the value at (y, x) for channel c.
func (im *Image) At(y, x, c int) float64 {
	return im.Pix[(y*im.Width+x)*im.Channels+c]
}

// Set stores a value at (y, x) for channel c.
func (im *Image) Set(y, x, c int, v float64) {
	im.Pix[(y*im.Width+x)*im.Channels+c] = v
}

// At returns the mask value at (y, x).
func (m *Mask) At(y, x int) float64 {
	return m.Pix[y*m.Width+x]
}

// Set stores a mask value at (y, x).
func (m *Mask) Set(y, x int, v float64) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns an independent copy of the image.
func (im *Image) Clone() *Image {
	out := NewImage(im.Height, im.Width, im.Channels)
	copy(out.Pix, im.Pix)
	return out
}

// Clone returns an independent copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Height, m.Width)
	copy(out.Pix, m.Pix)
	return out
}

// Clamp01 clamps every value to [0,1] in place.
// Called after every transform stage to uphold the value-range invariant.
func (m *Mask) Clamp01() {
	clamp01(m.Pix)
}

// Clamp01 clamps every value to [0,1] in place.
func (im *Image) Clamp01() {
	clamp01(im.Pix)
}

func clamp01(pix []float64) {
	for i, v := range pix {
		if v < 0 {
			pix[i] = 0
		} else if v > 1 {
			pix[i] = 1
		}
	}
}

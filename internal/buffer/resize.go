package buffer

// Bilinear resampling over the float planes. Resizing through an 8-bit
// image.Image round trip would quantize soft mask values, so the compositor
// resizes in float space directly.

// ResizeImage resamples the image to the given dimensions with bilinear
// interpolation. Returns the receiver unchanged if the size already matches.
func ResizeImage(src *Image, height, width int) *Image {
	if src.Height == height && src.Width == width {
		return src
	}
	out := NewImage(height, width, src.Channels)
	scaleY := float64(src.Height) / float64(height)
	scaleX := float64(src.Width) / float64(width)
	for y := 0; y < height; y++ {
		_, y0, y1, wy := sampleAxis(y, scaleY, src.Height)
		for x := 0; x < width; x++ {
			_, x0, x1, wx := sampleAxis(x, scaleX, src.Width)
			for c := 0; c < src.Channels; c++ {
				top := src.At(y0, x0, c)*(1-wx) + src.At(y0, x1, c)*wx
				bot := src.At(y1, x0, c)*(1-wx) + src.At(y1, x1, c)*wx
				out.Set(y, x, c, top*(1-wy)+bot*wy)
			}
		}
	}
	return out
}

// ResizeMask resamples the mask to the given dimensions with bilinear
// interpolation. Returns the receiver unchanged if the size already matches.
func ResizeMask(src *Mask, height, width int) *Mask {
	if src.Height == height && src.Width == width {
		return src
	}
	out := NewMask(height, width)
	scaleY := float64(src.Height) / float64(height)
	scaleX := float64(src.Width) / float64(width)
	for y := 0; y < height; y++ {
		_, y0, y1, wy := sampleAxis(y, scaleY, src.Height)
		for x := 0; x < width; x++ {
			_, x0, x1, wx := sampleAxis(x, scaleX, src.Width)
			top := src.At(y0, x0)*(1-wx) + src.At(y0, x1)*wx
			bot := src.At(y1, x0)*(1-wx) + src.At(y1, x1)*wx
			out.Set(y, x, top*(1-wy)+bot*wy)
		}
	}
	return out
}

// sampleAxis maps a destination index to the two bracketing source indices
// and the interpolation weight, using the pixel-center convention
// src = (dst+0.5)*scale - 0.5 with edge clamping.
func sampleAxis(dst int, scale float64, srcDim int) (pos float64, i0, i1 int, w float64) {
	pos = (float64(dst)+0.5)*scale - 0.5
	if pos < 0 {
		pos = 0
	}
	if pos > float64(srcDim-1) {
		pos = float64(srcDim - 1)
	}
	i0 = int(pos)
	i1 = i0 + 1
	if i1 > srcDim-1 {
		i1 = srcDim - 1
	}
	w = pos - float64(i0)
	return pos, i0, i1, w
}

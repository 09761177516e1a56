// Package pipeline ties the mask, context and stitch stages together and
// runs them over batches of independent image/mask pairs.
package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inpaintkit/cropstitch/internal/buffer"
	ctxarea "github.com/inpaintkit/cropstitch/internal/context"
	"github.com/inpaintkit/cropstitch/internal/morphology"
	"github.com/inpaintkit/cropstitch/internal/stitch"
)

// Params is the caller-facing parameter surface of the crop stage.
type Params struct {
	ContextExpandPixels    int     `json:"context_expand_pixels"`
	ContextExpandFactor    float64 `json:"context_expand_factor"`
	InvertMask             bool    `json:"invert_mask"`
	GrowMaskPixels         int     `json:"grow_mask_pixels"`
	FillHoles              bool    `json:"fill_holes"`
	BlurRadiusPixels       float64 `json:"blur_radius_pixels"`
	AdjustToPreferredSizes bool    `json:"adjust_to_preferred_sizes"`
	PreferredSizes         string  `json:"preferred_sizes"`
	PreferSquareSize       bool    `json:"prefer_square_size"`
}

// DefaultParams returns the documented defaults for the crop stage.
func DefaultParams() Params {
	return Params{
		ContextExpandPixels: 10,
		ContextExpandFactor: 1.01,
		GrowMaskPixels:      12,
		BlurRadiusPixels:    3.0,
		PreferredSizes:      "128,256,512,768,1024,1344,1536,2048",
	}
}

// Validate checks the parameter ranges and parses the preferred-size list.
// These are the only failures the pipeline can produce for well-formed
// buffers; the geometry itself resolves every boundary case by clamping.
func (p Params) Validate() ([]int, error) {
	if p.ContextExpandPixels < 0 {
		return nil, fmt.Errorf("context_expand_pixels must be >= 0, got %d", p.ContextExpandPixels)
	}
	if p.ContextExpandFactor < 1.0 || p.ContextExpandFactor > 100.0 {
		return nil, fmt.Errorf("context_expand_factor must be in [1.0, 100.0], got %g", p.ContextExpandFactor)
	}
	if p.GrowMaskPixels < 0 {
		return nil, fmt.Errorf("grow_mask_pixels must be >= 0, got %d", p.GrowMaskPixels)
	}
	if p.BlurRadiusPixels < 0 {
		return nil, fmt.Errorf("blur_radius_pixels must be >= 0, got %g", p.BlurRadiusPixels)
	}
	sizes, err := ctxarea.ParseSizes(p.PreferredSizes)
	if err != nil {
		return nil, fmt.Errorf("preferred_sizes: %w", err)
	}
	return sizes, nil
}

// CropResult is the output of the crop stage for one batch element.
type CropResult struct {
	Stitch *stitch.Descriptor
	Image  *buffer.Image
	Mask   *buffer.Mask
	Box    ctxarea.Box
	// PassThrough is set when the effective context mask had no non-zero
	// pixel and the element was returned uncropped at offset (0,0).
	PassThrough bool
}

// Pipeline runs the crop and stitch stages with a fixed parameter set.
type Pipeline struct {
	params Params
	sizes  []int
	log    zerolog.Logger
}

// New validates the parameters and builds a pipeline. The logger may be a
// disabled logger when no diagnostics are wanted.
func New(params Params, log zerolog.Logger) (*Pipeline, error) {
	sizes, err := params.Validate()
	if err != nil {
		return nil, err
	}
	return &Pipeline{params: params, sizes: sizes, log: log}, nil
}

// CropOne runs mask preprocessing, context-area computation and cropping for
// a single image/mask pair. contextMask may be nil.
func (p *Pipeline) CropOne(img *buffer.Image, mask *buffer.Mask, contextMask *buffer.Mask) (*CropResult, error) {
	if img.Height != mask.Height || img.Width != mask.Width {
		return nil, fmt.Errorf("image %dx%d and mask %dx%d dimensions differ",
			img.Width, img.Height, mask.Width, mask.Height)
	}
	if contextMask != nil && (contextMask.Height != mask.Height || contextMask.Width != mask.Width) {
		return nil, fmt.Errorf("context mask %dx%d does not match mask %dx%d",
			contextMask.Width, contextMask.Height, mask.Width, mask.Height)
	}

	start := time.Now()
	working, effective := morphology.Apply(mask, contextMask, morphology.Options{
		Invert:     p.params.InvertMask,
		GrowPixels: p.params.GrowMaskPixels,
		FillHoles:  p.params.FillHoles,
		BlurRadius: p.params.BlurRadiusPixels,
	})

	box, ok := ctxarea.Compute(effective, ctxarea.Options{
		ExpandPixels:           p.params.ContextExpandPixels,
		ExpandFactor:           p.params.ContextExpandFactor,
		AdjustToPreferredSizes: p.params.AdjustToPreferredSizes,
		PreferredSizes:         p.sizes,
		PreferSquare:           p.params.PreferSquareSize,
	})
	if !ok {
		// Nothing selected: hand the element through unchanged.
		p.log.Debug().Msg("empty context mask, passing element through uncropped")
		desc := &stitch.Descriptor{X: 0, Y: 0, Original: img, CroppedMask: working}
		return &CropResult{Stitch: desc, Image: img, Mask: working, Box: box, PassThrough: true}, nil
	}

	desc, croppedImage, croppedMask := stitch.Crop(img, working, box)
	p.log.Debug().
		Int("x_min", box.XMin).Int("x_max", box.XMax).
		Int("y_min", box.YMin).Int("y_max", box.YMax).
		Int("crop_width", box.Width()).Int("crop_height", box.Height()).
		Dur("elapsed", time.Since(start)).
		Msg("context area cropped")

	return &CropResult{Stitch: desc, Image: croppedImage, Mask: croppedMask, Box: box}, nil
}

// StitchOne blends an inpainted sub-image back into the original image
// recorded by the descriptor.
func (p *Pipeline) StitchOne(desc *stitch.Descriptor, inpainted *buffer.Image) *buffer.Image {
	start := time.Now()
	out := stitch.Stitch(desc, inpainted)
	p.log.Debug().
		Int("x", desc.X).Int("y", desc.Y).
		Dur("elapsed", time.Since(start)).
		Msg("inpainted image stitched")
	return out
}

// CropBatch crops every image/mask pair concurrently. Elements are
// independent, so they are fanned out over a bounded worker pool; results
// keep the input order. contextMasks may be nil, or hold nil entries for
// elements without a context mask.
func (p *Pipeline) CropBatch(images []*buffer.Image, masks []*buffer.Mask, contextMasks []*buffer.Mask) ([]*CropResult, error) {
	if len(images) != len(masks) {
		return nil, fmt.Errorf("batch size mismatch: %d images, %d masks", len(images), len(masks))
	}
	if contextMasks != nil && len(contextMasks) != len(images) {
		return nil, fmt.Errorf("batch size mismatch: %d images, %d context masks", len(images), len(contextMasks))
	}

	results := make([]*CropResult, len(images))
	errs := make([]error, len(images))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workerCount(len(images)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				var ctx *buffer.Mask
				if contextMasks != nil {
					ctx = contextMasks[idx]
				}
				results[idx], errs[idx] = p.CropOne(images[idx], masks[idx], ctx)
			}
		}()
	}
	for idx := range images {
		indexes <- idx
	}
	close(indexes)
	wg.Wait()

	for idx, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch element %d: %w", idx, err)
		}
	}
	return results, nil
}

// StitchBatch stitches every descriptor/inpainted pair concurrently,
// keeping the input order.
func (p *Pipeline) StitchBatch(descs []*stitch.Descriptor, inpainted []*buffer.Image) ([]*buffer.Image, error) {
	if len(descs) != len(inpainted) {
		return nil, fmt.Errorf("batch size mismatch: %d descriptors, %d images", len(descs), len(inpainted))
	}

	results := make([]*buffer.Image, len(descs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workerCount(len(descs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				results[idx] = p.StitchOne(descs[idx], inpainted[idx])
			}
		}()
	}
	for idx := range descs {
		indexes <- idx
	}
	close(indexes)
	wg.Wait()

	return results, nil
}

func workerCount(n int) int {
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

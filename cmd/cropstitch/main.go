// Command cropstitch runs the mask-guided crop-and-stitch pipeline over
// image files: crop extracts the context area around a mask, stitch blends a
// processed crop back, roundtrip does both in one run as a self-check.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/inpaintkit/cropstitch/internal/buffer"
	"github.com/inpaintkit/cropstitch/internal/imgio"
	"github.com/inpaintkit/cropstitch/internal/pipeline"
	"github.com/inpaintkit/cropstitch/internal/preview"
	"github.com/inpaintkit/cropstitch/internal/stitch"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// sidecar records what a later stitch invocation needs to rebuild the
// stitch descriptor from files written by the crop stage.
type sidecar struct {
	X             int    `json:"x"`
	Y             int    `json:"y"`
	OriginalImage string `json:"original_image"`
	CroppedMask   string `json:"cropped_mask"`
	CropWidth     int    `json:"crop_width"`
	CropHeight    int    `json:"crop_height"`
}

func main() {
	var (
		mode     string
		imgPath  string
		maskPath string
		ctxPath  string
		inpPath  string
		metaPath string
		outDir   string
		ext      string
		quality  int
		lossless bool
		debug    bool
		verbose  bool
		version  bool
	)
	params := pipeline.DefaultParams()

	flag.StringVar(&mode, "mode", "crop", "operation: crop, stitch or roundtrip")
	flag.StringVar(&imgPath, "image", "", "input image path")
	flag.StringVar(&maskPath, "mask", "", "mask image path (white = editable)")
	flag.StringVar(&ctxPath, "context-mask", "", "optional context mask path")
	flag.StringVar(&inpPath, "inpainted", "", "inpainted crop path (stitch mode)")
	flag.StringVar(&metaPath, "stitch-json", "", "stitch descriptor sidecar path (stitch mode)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&ext, "ext", "png", "output format: png|jpg|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")
	flag.BoolVar(&debug, "debug", false, "write a context-box/mask overlay next to the outputs")
	flag.BoolVar(&verbose, "v", false, "enable debug logging")
	flag.BoolVar(&version, "version", false, "print version information")

	flag.IntVar(&params.ContextExpandPixels, "expand-pixels", params.ContextExpandPixels, "minimum context padding in pixels")
	flag.Float64Var(&params.ContextExpandFactor, "expand-factor", params.ContextExpandFactor, "context growth factor (>= 1.0)")
	flag.BoolVar(&params.InvertMask, "invert", params.InvertMask, "invert the mask before processing")
	flag.IntVar(&params.GrowMaskPixels, "grow", params.GrowMaskPixels, "grow the mask by this many pixels")
	flag.BoolVar(&params.FillHoles, "fill-holes", params.FillHoles, "fill enclosed holes in the mask")
	flag.Float64Var(&params.BlurRadiusPixels, "blur", params.BlurRadiusPixels, "mask blur radius in pixels")
	flag.BoolVar(&params.AdjustToPreferredSizes, "adjust-sizes", params.AdjustToPreferredSizes, "snap the crop to preferred sizes")
	flag.StringVar(&params.PreferredSizes, "sizes", params.PreferredSizes, "comma-separated preferred sizes")
	flag.BoolVar(&params.PreferSquareSize, "square", params.PreferSquareSize, "prefer a square crop")
	flag.Parse()

	if version {
		fmt.Printf("cropstitch %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	pipe, err := pipeline.New(params, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid parameters")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", outDir).Msg("cannot create output directory")
	}

	switch mode {
	case "crop":
		err = runCrop(pipe, log, imgPath, maskPath, ctxPath, outDir, ext, quality, lossless, debug)
	case "stitch":
		err = runStitch(pipe, log, metaPath, inpPath, outDir, ext, quality, lossless)
	case "roundtrip":
		err = runRoundtrip(pipe, log, imgPath, maskPath, ctxPath, outDir, ext, quality, lossless)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", mode).Msg("run failed")
	}
}

func loadPair(imgPath, maskPath, ctxPath string) (*buffer.Image, *buffer.Mask, *buffer.Mask, error) {
	if imgPath == "" || maskPath == "" {
		return nil, nil, nil, fmt.Errorf("-image and -mask are required")
	}
	img, err := imgio.Load(imgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	maskImg, err := imgio.Load(maskPath)
	if err != nil {
		return nil, nil, nil, err
	}
	var ctx *buffer.Mask
	if ctxPath != "" {
		ctxImg, err := imgio.Load(ctxPath)
		if err != nil {
			return nil, nil, nil, err
		}
		ctx = buffer.MaskFromImage(ctxImg)
	}
	return buffer.FromImage(img), buffer.MaskFromImage(maskImg), ctx, nil
}

func runCrop(pipe *pipeline.Pipeline, log zerolog.Logger, imgPath, maskPath, ctxPath, outDir, ext string, quality int, lossless, debug bool) error {
	img, mask, ctx, err := loadPair(imgPath, maskPath, ctxPath)
	if err != nil {
		return err
	}

	res, err := pipe.CropOne(img, mask, ctx)
	if err != nil {
		return err
	}
	if res.PassThrough {
		log.Warn().Msg("mask selected nothing, writing the inputs unchanged")
	}

	imageOut := filepath.Join(outDir, "cropped_image."+ext)
	maskOut := filepath.Join(outDir, "cropped_mask.png")
	metaOut := filepath.Join(outDir, "stitch.json")

	if err := imgio.Save(res.Image.ToNRGBA(), imageOut, ext, quality, lossless); err != nil {
		return err
	}
	if err := imgio.Save(res.Mask.ToGray(), maskOut, "png", quality, false); err != nil {
		return err
	}
	meta := sidecar{
		X:             res.Stitch.X,
		Y:             res.Stitch.Y,
		OriginalImage: imgPath,
		CroppedMask:   maskOut,
		CropWidth:     res.Image.Width,
		CropHeight:    res.Image.Height,
	}
	if err := writeSidecar(metaOut, meta); err != nil {
		return err
	}

	if debug {
		overlayOut := filepath.Join(outDir, "overlay.png")
		if err := imgio.Save(preview.Overlay(img, mask, res.Box), overlayOut, "png", quality, false); err != nil {
			return err
		}
		log.Info().Str("path", overlayOut).Msg("debug overlay written")
	}

	log.Info().
		Str("image", imageOut).Str("mask", maskOut).Str("stitch", metaOut).
		Int("x", res.Stitch.X).Int("y", res.Stitch.Y).
		Msg("crop written")
	return nil
}

func runStitch(pipe *pipeline.Pipeline, log zerolog.Logger, metaPath, inpPath, outDir, ext string, quality int, lossless bool) error {
	if metaPath == "" || inpPath == "" {
		return fmt.Errorf("-stitch-json and -inpainted are required")
	}
	meta, err := readSidecar(metaPath)
	if err != nil {
		return err
	}

	originalImg, err := imgio.Load(meta.OriginalImage)
	if err != nil {
		return err
	}
	maskImg, err := imgio.Load(meta.CroppedMask)
	if err != nil {
		return err
	}
	inpaintedImg, err := imgio.Load(inpPath)
	if err != nil {
		return err
	}

	desc := &stitch.Descriptor{
		X:           meta.X,
		Y:           meta.Y,
		Original:    buffer.FromImage(originalImg),
		CroppedMask: buffer.MaskFromImage(maskImg),
	}
	out := pipe.StitchOne(desc, buffer.FromImage(inpaintedImg))

	stitchedOut := filepath.Join(outDir, "stitched."+ext)
	if err := imgio.Save(out.ToNRGBA(), stitchedOut, ext, quality, lossless); err != nil {
		return err
	}
	log.Info().Str("path", stitchedOut).Msg("stitched image written")
	return nil
}

// runRoundtrip crops and immediately stitches the unmodified crop back.
// The output must match the input image outside 8-bit quantization, which
// makes it a quick end-to-end self-check.
func runRoundtrip(pipe *pipeline.Pipeline, log zerolog.Logger, imgPath, maskPath, ctxPath, outDir, ext string, quality int, lossless bool) error {
	img, mask, ctx, err := loadPair(imgPath, maskPath, ctxPath)
	if err != nil {
		return err
	}

	res, err := pipe.CropOne(img, mask, ctx)
	if err != nil {
		return err
	}
	out := pipe.StitchOne(res.Stitch, res.Image)

	roundtripOut := filepath.Join(outDir, "roundtrip."+ext)
	if err := imgio.Save(out.ToNRGBA(), roundtripOut, ext, quality, lossless); err != nil {
		return err
	}
	log.Info().Str("path", roundtripOut).Msg("roundtrip image written")
	return nil
}

func writeSidecar(path string, meta sidecar) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readSidecar(path string) (sidecar, error) {
	var meta sidecar
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("failed to read stitch sidecar: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse stitch sidecar: %w", err)
	}
	return meta, nil
}

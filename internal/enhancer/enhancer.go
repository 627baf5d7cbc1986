package enhancer

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
)

// Options tune the enhancement pass
type Options struct {
	ClipLimit      float64 `mapstructure:"clip_limit"`
	TileGrid       int     `mapstructure:"tile_grid"`
	ContrastWeight float64 `mapstructure:"contrast_weight"`
	SharpenWeight  float64 `mapstructure:"sharpen_weight"`
}

// DefaultOptions returns CLAHE 2.0 on an 8x8 grid blended 0.7/0.3 with the
// sharpened result
func DefaultOptions() Options {
	return Options{
		ClipLimit:      2.0,
		TileGrid:       8,
		ContrastWeight: 0.7,
		SharpenWeight:  0.3,
	}
}

// Enhancer applies local contrast normalization and sharpening. It holds no
// per-call state and is safe for concurrent use.
type Enhancer struct {
	opts Options
}

// New creates an enhancer, filling zero options with defaults
func New(opts Options) *Enhancer {
	def := DefaultOptions()
	if opts.ClipLimit <= 0 {
		opts.ClipLimit = def.ClipLimit
	}
	if opts.TileGrid <= 0 {
		opts.TileGrid = def.TileGrid
	}
	if opts.ContrastWeight == 0 && opts.SharpenWeight == 0 {
		opts.ContrastWeight = def.ContrastWeight
		opts.SharpenWeight = def.SharpenWeight
	}
	return &Enhancer{opts: opts}
}

// Options returns the active settings
func (e *Enhancer) Options() Options {
	return e.opts
}

// Enhance returns a new image: CLAHE on the Lab lightness channel, then a
// weighted blend of that result with its 3x3 sharpened version. The input is
// not modified.
func (e *Enhancer) Enhance(img gocv.Mat) (gocv.Mat, error) {
	if err := frame.Validate(img); err != nil {
		return gocv.NewMat(), err
	}

	contrast, err := e.equalize(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer contrast.Close()

	sharpened := e.sharpen(contrast)
	defer sharpened.Close()

	// saturating
	out := gocv.NewMat()
	gocv.AddWeighted(contrast, e.opts.ContrastWeight, sharpened, e.opts.SharpenWeight, 0, &out)
	return out, nil
}

// equalize runs CLAHE on L only so hue and saturation are left alone
func (e *Enhancer) equalize(img gocv.Mat) (gocv.Mat, error) {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return gocv.NewMat(), fmt.Errorf("%w: expected 3 Lab channels, got %d", frame.ErrInvalidImage, len(channels))
	}

	clahe := gocv.NewCLAHEWithParams(e.opts.ClipLimit, image.Pt(e.opts.TileGrid, e.opts.TileGrid))
	defer clahe.Close()

	lightness := gocv.NewMat()
	defer lightness.Close()
	clahe.Apply(channels[0], &lightness)

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge([]gocv.Mat{lightness, channels[1], channels[2]}, &merged)

	out := gocv.NewMat()
	gocv.CvtColor(merged, &out, gocv.ColorLabToBGR)
	return out, nil
}

// sharpen convolves with the 3x3 kernel of center 9 and neighbors -1
func (e *Enhancer) sharpen(img gocv.Mat) gocv.Mat {
	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			kernel.SetFloatAt(y, x, -1)
		}
	}
	kernel.SetFloatAt(1, 1, 9)

	out := gocv.NewMat()
	gocv.Filter2D(img, &out, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)
	return out
}

package makeup

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
)

// Mode selects how a region's points are rasterized
type Mode int

const (
	// ModePolygon fills the points as one closed polygon. Self-intersecting
	// paths are filled by OpenCV's scanline edge pairing, which is even-odd
	// parity: an area enclosed twice is left empty.
	ModePolygon Mode = iota
	// ModeFeathered stamps a disk at every point and blurs the union.
	ModeFeathered
)

func (m Mode) String() string {
	switch m {
	case ModePolygon:
		return "polygon"
	case ModeFeathered:
		return "feathered"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	DefaultRadius     = 30
	DefaultBlurKernel = 51
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// MaskBuilder rasterizes region points into CV8UC1 influence masks
type MaskBuilder struct {
	radius     int
	blurKernel int
}

// NewMaskBuilder creates a builder for feathered masks with the given disk
// radius and blur kernel. Non-positive values select the defaults and even
// kernels are rounded up to the next odd size.
func NewMaskBuilder(radius, blurKernel int) *MaskBuilder {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if blurKernel <= 0 {
		blurKernel = DefaultBlurKernel
	}
	if blurKernel%2 == 0 {
		blurKernel++
	}
	return &MaskBuilder{radius: radius, blurKernel: blurKernel}
}

// Radius returns the feathered disk radius
func (b *MaskBuilder) Radius() int { return b.radius }

// BlurKernel returns the feathered blur kernel size
func (b *MaskBuilder) BlurKernel() int { return b.blurKernel }

// Build returns a rows x cols mask for points. An empty point list gives an
// all-zero mask. The caller owns the returned Mat.
func (b *MaskBuilder) Build(points []image.Point, mode Mode, rows, cols int) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 {
		return gocv.NewMat(), fmt.Errorf("%w: mask shape %dx%d", frame.ErrInvalidImage, cols, rows)
	}

	mask := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	if len(points) == 0 {
		return mask, nil
	}

	switch mode {
	case ModePolygon:
		poly := append([]image.Point(nil), points...)
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
		defer pv.Close()
		gocv.FillPoly(&mask, pv, white)
		return mask, nil

	case ModeFeathered:
		// overlapping disks saturate at 255 rather than summing
		for _, p := range points {
			gocv.Circle(&mask, p, b.radius, white, -1)
		}

		blurred := gocv.NewMat()
		gocv.GaussianBlur(mask, &blurred, image.Pt(b.blurKernel, b.blurKernel), 0, 0, gocv.BorderDefault)
		mask.Close()
		return blurred, nil

	default:
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("unknown mask mode %v", mode)
	}
}

// Union combines masks with a per-pixel maximum via bitwise OR. All masks must
// share one shape.
func Union(masks ...gocv.Mat) (gocv.Mat, error) {
	if len(masks) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: no masks to combine", frame.ErrInvalidImage)
	}

	rows, cols := masks[0].Rows(), masks[0].Cols()
	for _, m := range masks {
		if err := frame.ValidateMask(m, rows, cols); err != nil {
			return gocv.NewMat(), err
		}
	}

	out := masks[0].Clone()
	for _, m := range masks[1:] {
		gocv.BitwiseOr(out, m, &out)
	}
	return out, nil
}

package tone

import (
	"errors"
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"github.com/dudu/glowmirror/internal/frame"
	"github.com/dudu/glowmirror/internal/makeup"
	"github.com/dudu/glowmirror/internal/regions"
)

// ErrEmptyRegion is returned when the sampling polygon covers no pixels
var ErrEmptyRegion = errors.New("empty region")

// Value thresholds for the tone buckets
const (
	DarkBelow   = 0.3
	MediumBelow = 0.6
)

// Analysis is the mean facial color and its tone bucket
type Analysis struct {
	Tone    SkinTone   `json:"tone"`
	MeanRGB [3]float64 `json:"mean_rgb"` // R, G, B in [0,255]
	MeanHSV [3]float64 `json:"mean_hsv"` // H, S, V in [0,1]
	Pixels  int        `json:"pixels"`
}

// Classifier samples skin color under the cheek and lip polygon
type Classifier struct {
	masks *makeup.MaskBuilder
}

// NewClassifier creates a classifier
func NewClassifier() *Classifier {
	return &Classifier{masks: makeup.NewMaskBuilder(0, 0)}
}

// ClassifyRegions classifies using the cheeks and lips of a mapped region set
func (c *Classifier) ClassifyRegions(img gocv.Mat, set regions.RegionSet) (Analysis, error) {
	return c.Classify(img, set[regions.Cheeks], set[regions.Lips])
}

// Classify fills cheeks followed by lips as a single polygon and averages
// the image over exactly the covered pixels
func (c *Classifier) Classify(img gocv.Mat, cheeks, lips []image.Point) (Analysis, error) {
	if err := frame.Validate(img); err != nil {
		return Analysis{}, err
	}

	points := make([]image.Point, 0, len(cheeks)+len(lips))
	points = append(points, cheeks...)
	points = append(points, lips...)

	mask, err := c.masks.Build(points, makeup.ModePolygon, img.Rows(), img.Cols())
	if err != nil {
		return Analysis{}, err
	}
	defer mask.Close()

	covered := gocv.CountNonZero(mask)
	if covered == 0 {
		return Analysis{}, fmt.Errorf("%w: sampling polygon of %d points covers no pixels", ErrEmptyRegion, len(points))
	}

	pixels := frame.Bytes(img)
	weights := frame.Bytes(mask)

	// BGR planes
	var planes [3][]float64
	for ch := range planes {
		planes[ch] = make([]float64, 0, covered)
	}
	for i, m := range weights {
		if m == 0 {
			continue
		}
		for ch := range planes {
			planes[ch] = append(planes[ch], float64(pixels[i*3+ch]))
		}
	}

	b := stat.Mean(planes[0], nil)
	g := stat.Mean(planes[1], nil)
	r := stat.Mean(planes[2], nil)

	h, s, v := colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Hsv()

	return Analysis{
		Tone:    Bucket(v),
		MeanRGB: [3]float64{r, g, b},
		MeanHSV: [3]float64{h / 360, s, v},
		Pixels:  len(planes[0]),
	}, nil
}

// Bucket maps an HSV value component to a tone
func Bucket(value float64) SkinTone {
	switch {
	case value < DarkBelow:
		return Dark
	case value < MediumBelow:
		return Medium
	default:
		return Light
	}
}

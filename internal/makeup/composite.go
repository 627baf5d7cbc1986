package makeup

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
)

// FeatureConfig is the color and strength for one cosmetic feature. A nil
// Intensity selects the feature's default.
type FeatureConfig struct {
	Color     string   `mapstructure:"color" json:"color"`
	Intensity *float64 `mapstructure:"intensity" json:"intensity,omitempty"`
}

// IntensityOr returns the configured intensity or def when unset
func (f FeatureConfig) IntensityOr(def float64) float64 {
	if f.Intensity == nil {
		return def
	}
	return *f.Intensity
}

// Composite blends c into img through mask. Per pixel and channel
//
//	out = img*(1-w) + c*w,  w = mask/255 * intensity
//
// with intensity clamped to [0,1] and the result rounded to the nearest
// integer. img is not modified; the caller owns the returned Mat.
func Composite(img, mask gocv.Mat, c Color, intensity float64) (gocv.Mat, error) {
	if err := frame.Validate(img); err != nil {
		return gocv.NewMat(), err
	}
	rows, cols := img.Rows(), img.Cols()
	if err := frame.ValidateMask(mask, rows, cols); err != nil {
		return gocv.NewMat(), err
	}

	k := clampUnit(intensity)
	if k == 0 {
		return img.Clone(), nil
	}

	src := frame.Bytes(img)
	weights := frame.Bytes(mask)
	target := c.channels()

	out := make([]byte, len(src))
	copy(out, src)

	for i, m := range weights {
		if m == 0 {
			continue
		}
		w := float64(m) / 255 * k
		px := out[i*3 : i*3+3]
		for ch := range px {
			v := float64(px[ch])*(1-w) + target[ch]*w
			px[ch] = uint8(math.Round(v))
		}
	}

	return frame.FromBytes(rows, cols, gocv.MatTypeCV8UC3, out)
}

// CompositeHex parses hex and composites it
func CompositeHex(img, mask gocv.Mat, hex string, intensity float64) (gocv.Mat, error) {
	c, err := ParseColor(hex)
	if err != nil {
		return gocv.NewMat(), err
	}
	return Composite(img, mask, c, intensity)
}

func clampUnit(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

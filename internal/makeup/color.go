package makeup

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColorFormat is returned for anything other than #RRGGBB
var ErrInvalidColorFormat = errors.New("invalid color format")

var hexPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Color is a target color in the BGR order used by image buffers
type Color struct {
	B, G, R uint8
}

// ParseColor converts a #RRGGBB string to BGR. This is the only place where
// RGB component order is mapped to buffer order.
func ParseColor(hex string) (Color, error) {
	if !hexPattern.MatchString(hex) {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColorFormat, hex, err)
	}

	r, g, b := c.RGB255()
	return Color{B: b, G: g, R: r}, nil
}

// Hex formats the color as #rrggbb
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) channels() [3]float64 {
	return [3]float64{float64(c.B), float64(c.G), float64(c.R)}
}

// Package frame holds the image buffer conventions shared by every stage.
//
// Images are gocv Mats of type CV8UC3 in BGR channel order. Masks are CV8UC1
// Mats with the same rows and cols as the image they apply to.
package frame

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrInvalidImage is returned for empty, zero-area or non-BGR buffers.
var ErrInvalidImage = errors.New("invalid image")

// Validate checks that img is a non-empty 8-bit 3-channel image
func Validate(img gocv.Mat) error {
	if img.Empty() || img.Rows() <= 0 || img.Cols() <= 0 {
		return fmt.Errorf("%w: zero-area buffer", ErrInvalidImage)
	}
	if img.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: expected CV8UC3, got %v", ErrInvalidImage, img.Type())
	}
	return nil
}

// ValidateMask checks that mask is single channel and matches the image size
func ValidateMask(mask gocv.Mat, rows, cols int) error {
	if mask.Empty() {
		return fmt.Errorf("%w: empty mask", ErrInvalidImage)
	}
	if mask.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("%w: expected CV8UC1 mask, got %v", ErrInvalidImage, mask.Type())
	}
	if mask.Rows() != rows || mask.Cols() != cols {
		return fmt.Errorf("%w: mask is %dx%d, image is %dx%d",
			ErrInvalidImage, mask.Cols(), mask.Rows(), cols, rows)
	}
	return nil
}

// Bytes returns a copy of the Mat pixel data. Non-continuous Mats are cloned
// first so the result is always tightly packed.
func Bytes(m gocv.Mat) []byte {
	if m.IsContinuous() {
		return m.ToBytes()
	}
	c := m.Clone()
	defer c.Close()
	return c.ToBytes()
}

// FromBytes builds an owned Mat from packed pixel data. The returned Mat does
// not reference data.
func FromBytes(rows, cols int, mt gocv.MatType, data []byte) (gocv.Mat, error) {
	tmp, err := gocv.NewMatFromBytes(rows, cols, mt, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create mat from bytes: %w", err)
	}
	defer tmp.Close()
	return tmp.Clone(), nil
}

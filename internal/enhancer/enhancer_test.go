package enhancer

import (
	"bytes"
	"errors"
	"testing"

	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
)

func uniform(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func isUniform(t *testing.T, m gocv.Mat) bool {
	t.Helper()
	data := frame.Bytes(m)
	for i := 3; i < len(data); i += 3 {
		if data[i] != data[0] || data[i+1] != data[1] || data[i+2] != data[2] {
			return false
		}
	}
	return true
}

func TestEnhancePreservesShape(t *testing.T) {
	img := uniform(37, 53, 90, 120, 160)
	defer img.Close()

	out, err := New(DefaultOptions()).Enhance(img)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	defer out.Close()

	if out.Rows() != 37 || out.Cols() != 53 || out.Type() != gocv.MatTypeCV8UC3 {
		t.Errorf("output is %dx%d type %v, want 53x37 CV8UC3", out.Cols(), out.Rows(), out.Type())
	}
}

// Flat input has no edges to sharpen, so repeated passes must stay flat.
func TestEnhanceUniformInputStaysUniform(t *testing.T) {
	e := New(DefaultOptions())
	img := uniform(64, 64, 60, 110, 180)

	for pass := 1; pass <= 3; pass++ {
		out, err := e.Enhance(img)
		img.Close()
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if !isUniform(t, out) {
			out.Close()
			t.Fatalf("pass %d produced a non-uniform image from uniform input", pass)
		}
		img = out
	}
	img.Close()
}

// checkerboard builds a one-pixel gray checkerboard, lo where x+y is even
func checkerboard(t *testing.T, rows, cols int, lo, hi byte) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := lo
			if (x+y)%2 == 1 {
				v = hi
			}
			i := (y*cols + x) * 3
			data[i], data[i+1], data[i+2] = v, v, v
		}
	}
	img, err := frame.FromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return img
}

func maxDiff(a, b gocv.Mat) int {
	da, db := frame.Bytes(a), frame.Bytes(b)
	worst := 0
	for i := range da {
		d := int(da[i]) - int(db[i])
		if d < 0 {
			d = -d
		}
		worst = max(worst, d)
	}
	return worst
}

// cellMeans averages the pixels of the even and odd checkerboard cells
func cellMeans(m gocv.Mat) (even, odd float64) {
	data := frame.Bytes(m)
	cols := m.Cols()
	var sumEven, sumOdd float64
	var nEven, nOdd int
	for i := 0; i < len(data); i += 3 {
		px := i / 3
		v := (float64(data[i]) + float64(data[i+1]) + float64(data[i+2])) / 3
		if (px%cols+px/cols)%2 == 0 {
			sumEven += v
			nEven++
		} else {
			sumOdd += v
			nOdd++
		}
	}
	return sumEven / float64(nEven), sumOdd / float64(nOdd)
}

// Sharpening a textured image pushes it toward saturation, where further
// passes change less and less. The per-pass change must settle rather than
// grow, and the pattern itself must survive.
func TestEnhanceRepeatedPassesSettle(t *testing.T) {
	const (
		passes    = 8
		tolerance = 2 // Lab round trips wobble a level or two near the fixed point
	)

	e := New(DefaultOptions())
	img := checkerboard(t, 64, 64, 100, 150)

	var deltas []int
	for pass := 1; pass <= passes; pass++ {
		out, err := e.Enhance(img)
		if err != nil {
			img.Close()
			t.Fatalf("pass %d: %v", pass, err)
		}

		if out.Rows() != 64 || out.Cols() != 64 || out.Type() != gocv.MatTypeCV8UC3 {
			t.Fatalf("pass %d: output is %dx%d type %v, want 64x64 CV8UC3", pass, out.Cols(), out.Rows(), out.Type())
		}
		if dark, bright := cellMeans(out); bright <= dark {
			t.Errorf("pass %d: pattern lost, dark cells %.1f, bright cells %.1f", pass, dark, bright)
		}

		deltas = append(deltas, maxDiff(img, out))
		img.Close()
		img = out
	}
	img.Close()

	if deltas[0] == 0 {
		t.Fatal("first pass left a textured image unchanged")
	}
	for k := 1; k < len(deltas); k++ {
		if deltas[k] > deltas[k-1]+tolerance {
			t.Errorf("change grew from %d to %d at pass %d (all: %v)", deltas[k-1], deltas[k], k+1, deltas)
		}
	}
	if last := deltas[len(deltas)-1]; last >= deltas[1] {
		t.Errorf("passes did not settle: last change %d, second pass change %d (all: %v)", last, deltas[1], deltas)
	}
}

func TestEnhanceDoesNotModifyInput(t *testing.T) {
	data := make([]byte, 32*32*3)
	for i := range data {
		data[i] = byte((i * 13) % 251)
	}
	img, err := frame.FromBytes(32, 32, gocv.MatTypeCV8UC3, data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer img.Close()

	out, err := New(DefaultOptions()).Enhance(img)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	defer out.Close()

	if !bytes.Equal(frame.Bytes(img), data) {
		t.Error("Enhance modified its input")
	}
}

func TestEnhanceRejectsInvalidImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	gray := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC1)
	defer gray.Close()

	e := New(DefaultOptions())
	for name, img := range map[string]gocv.Mat{"empty": empty, "single channel": gray} {
		if _, err := e.Enhance(img); !errors.Is(err, frame.ErrInvalidImage) {
			t.Errorf("%s: error = %v, want ErrInvalidImage", name, err)
		}
	}
}

func TestNewFillsDefaults(t *testing.T) {
	got := New(Options{}).Options()
	if got != DefaultOptions() {
		t.Errorf("Options() = %+v, want %+v", got, DefaultOptions())
	}

	custom := Options{ClipLimit: 3, TileGrid: 4, ContrastWeight: 1, SharpenWeight: 0}
	if got := New(custom).Options(); got != custom {
		t.Errorf("Options() = %+v, want %+v", got, custom)
	}
}

package makeup

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
)

func uniform(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func gradient(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for i := range data {
		data[i] = byte((i * 7) % 256)
	}
	img, err := frame.FromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return img
}

func full(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

func ptr(f float64) *float64 { return &f }

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#FF0000", Color{B: 0, G: 0, R: 255}},
		{"#00ff00", Color{B: 0, G: 255, R: 0}},
		{"#0000FF", Color{B: 255, G: 0, R: 0}},
		{"#123abc", Color{B: 0xbc, G: 0x3a, R: 0x12}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if err != nil {
				t.Fatalf("ParseColor(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseColorRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "red", "#FFF", "FF0000", "#GG0000", "#FF00001", " #FF0000", "#ff 000"} {
		if _, err := ParseColor(in); !errors.Is(err, ErrInvalidColorFormat) {
			t.Errorf("ParseColor(%q) error = %v, want ErrInvalidColorFormat", in, err)
		}
	}
}

func TestColorHexRoundTrip(t *testing.T) {
	c, err := ParseColor("#A55EEA")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if got := c.Hex(); got != "#a55eea" {
		t.Errorf("Hex() = %q, want #a55eea", got)
	}
}

func TestCompositeZeroIntensityIsIdentity(t *testing.T) {
	img := gradient(t, 20, 30)
	defer img.Close()
	mask := full(20, 30)
	defer mask.Close()

	for _, hex := range []string{"#FF0000", "#00FF00", "#FFFFFF", "#000000", "#a55eea"} {
		out, err := CompositeHex(img, mask, hex, 0)
		if err != nil {
			t.Fatalf("CompositeHex(%s): %v", hex, err)
		}
		if !bytes.Equal(frame.Bytes(out), frame.Bytes(img)) {
			t.Errorf("%s at intensity 0 changed the image", hex)
		}
		out.Close()
	}
}

func TestCompositeFullIntensityHardMask(t *testing.T) {
	img := gradient(t, 40, 50)
	defer img.Close()
	before := frame.Bytes(img)

	b := NewMaskBuilder(0, 0)
	rect := []image.Point{{10, 10}, {29, 10}, {29, 19}, {10, 19}}
	mask, err := b.Build(rect, ModePolygon, 40, 50)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer mask.Close()

	out, err := CompositeHex(img, mask, "#FF0000", 1.0)
	if err != nil {
		t.Fatalf("CompositeHex: %v", err)
	}
	defer out.Close()

	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			got := out.GetVecbAt(y, x)
			orig := img.GetVecbAt(y, x)
			switch {
			case x > 10 && x < 29 && y > 10 && y < 19:
				if got[0] != 0 || got[1] != 0 || got[2] != 255 {
					t.Fatalf("inside pixel (%d,%d) = %v, want pure red BGR", x, y, got)
				}
			case x < 10 || x > 29 || y < 10 || y > 19:
				if got[0] != orig[0] || got[1] != orig[1] || got[2] != orig[2] {
					t.Fatalf("outside pixel (%d,%d) = %v, want %v", x, y, got, orig)
				}
			}
		}
	}

	if !bytes.Equal(frame.Bytes(img), before) {
		t.Error("Composite modified its input image")
	}
}

func TestCompositeBlendWeights(t *testing.T) {
	img := uniform(4, 4, 100, 100, 100)
	defer img.Close()
	mask := full(4, 4)
	defer mask.Close()
	c := Color{B: 200, G: 0, R: 100}

	tests := []struct {
		name      string
		intensity float64
		want      [3]uint8
	}{
		{"half", 0.5, [3]uint8{150, 50, 100}},
		{"quarter", 0.25, [3]uint8{125, 75, 100}},
		{"clamped high", 2, [3]uint8{200, 0, 100}},
		{"clamped low", -1, [3]uint8{100, 100, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Composite(img, mask, c, tt.intensity)
			if err != nil {
				t.Fatalf("Composite: %v", err)
			}
			defer out.Close()

			got := out.GetVecbAt(2, 2)
			if got[0] != tt.want[0] || got[1] != tt.want[1] || got[2] != tt.want[2] {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompositeRejectsBadInputs(t *testing.T) {
	img := uniform(10, 10, 1, 2, 3)
	defer img.Close()
	small := full(5, 10)
	defer small.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	okMask := full(10, 10)
	defer okMask.Close()

	if _, err := Composite(img, small, Color{}, 1); !errors.Is(err, frame.ErrInvalidImage) {
		t.Errorf("mismatched mask error = %v, want ErrInvalidImage", err)
	}
	if _, err := Composite(empty, okMask, Color{}, 1); !errors.Is(err, frame.ErrInvalidImage) {
		t.Errorf("empty image error = %v, want ErrInvalidImage", err)
	}
	if _, err := CompositeHex(img, okMask, "red", 1); !errors.Is(err, ErrInvalidColorFormat) {
		t.Errorf("bad color error = %v, want ErrInvalidColorFormat", err)
	}
}

func TestBuildEmptyPointsGivesZeroMask(t *testing.T) {
	b := NewMaskBuilder(0, 0)
	for _, mode := range []Mode{ModePolygon, ModeFeathered} {
		mask, err := b.Build(nil, mode, 30, 40)
		if err != nil {
			t.Fatalf("Build(%v): %v", mode, err)
		}
		if mask.Rows() != 30 || mask.Cols() != 40 || mask.Type() != gocv.MatTypeCV8UC1 {
			t.Errorf("%v mask shape = %dx%d type %v", mode, mask.Cols(), mask.Rows(), mask.Type())
		}
		if n := gocv.CountNonZero(mask); n != 0 {
			t.Errorf("%v mask has %d nonzero pixels, want 0", mode, n)
		}
		mask.Close()
	}
}

func TestBuildRejectsZeroShape(t *testing.T) {
	b := NewMaskBuilder(0, 0)
	if _, err := b.Build([]image.Point{{1, 1}}, ModePolygon, 0, 10); !errors.Is(err, frame.ErrInvalidImage) {
		t.Errorf("error = %v, want ErrInvalidImage", err)
	}
}

func TestBuildDoesNotMutatePoints(t *testing.T) {
	b := NewMaskBuilder(0, 0)
	points := []image.Point{{5, 5}, {30, 8}, {25, 30}, {4, 28}}
	before := append([]image.Point(nil), points...)

	for _, mode := range []Mode{ModePolygon, ModeFeathered} {
		mask, err := b.Build(points, mode, 40, 40)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		mask.Close()
	}

	for i := range points {
		if points[i] != before[i] {
			t.Fatalf("point %d changed from %v to %v", i, before[i], points[i])
		}
	}
}

// A bow tie crosses itself at (20,20). Both lobes are covered once and fill;
// the regions above and below the crossing are outside the path.
func TestBuildSelfIntersectingPolygon(t *testing.T) {
	b := NewMaskBuilder(0, 0)
	bowtie := []image.Point{{0, 0}, {40, 40}, {40, 0}, {0, 40}}

	mask, err := b.Build(bowtie, ModePolygon, 50, 50)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer mask.Close()

	checks := []struct {
		name string
		x, y int
		want uint8
	}{
		{"left lobe", 5, 20, 255},
		{"right lobe", 35, 20, 255},
		{"above crossing", 20, 5, 0},
		{"below crossing", 20, 35, 0},
		{"outside", 45, 45, 0},
	}
	for _, c := range checks {
		if got := mask.GetUCharAt(c.y, c.x); got != c.want {
			t.Errorf("%s (%d,%d) = %d, want %d", c.name, c.x, c.y, got, c.want)
		}
	}
}

func TestBuildFeatheredFalloff(t *testing.T) {
	b := NewMaskBuilder(30, 51)
	center := image.Pt(60, 60)

	mask, err := b.Build([]image.Point{center, center, center}, ModeFeathered, 120, 160)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer mask.Close()

	if got := mask.GetUCharAt(60, 60); got < 250 {
		t.Errorf("center = %d, want ~255", got)
	}

	prev := mask.GetUCharAt(60, 60)
	for x := 61; x < 160; x++ {
		v := mask.GetUCharAt(60, x)
		if v > prev {
			t.Fatalf("mask increases at x=%d: %d > %d", x, v, prev)
		}
		prev = v
	}

	// radius + half kernel
	if got := mask.GetUCharAt(60, 60+56); got != 0 {
		t.Errorf("value beyond feather reach = %d, want 0", got)
	}
	if got := mask.GetUCharAt(60, 60+30); got == 0 || got == 255 {
		t.Errorf("value at disk edge = %d, want a partial weight", got)
	}
}

func TestNewMaskBuilderDefaults(t *testing.T) {
	b := NewMaskBuilder(0, 50)
	if b.Radius() != DefaultRadius {
		t.Errorf("Radius() = %d, want %d", b.Radius(), DefaultRadius)
	}
	if b.BlurKernel() != 51 {
		t.Errorf("BlurKernel() = %d, want 51", b.BlurKernel())
	}
}

func TestUnion(t *testing.T) {
	b := NewMaskBuilder(0, 0)
	left, err := b.Build([]image.Point{{2, 2}, {10, 2}, {10, 10}, {2, 10}}, ModePolygon, 20, 30)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer left.Close()
	right, err := b.Build([]image.Point{{18, 2}, {26, 2}, {26, 10}, {18, 10}}, ModePolygon, 20, 30)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer right.Close()

	both, err := Union(left, right)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	defer both.Close()

	want := gocv.CountNonZero(left) + gocv.CountNonZero(right)
	if got := gocv.CountNonZero(both); got != want {
		t.Errorf("union covers %d pixels, want %d", got, want)
	}

	small := full(5, 5)
	defer small.Close()
	if _, err := Union(left, small); !errors.Is(err, frame.ErrInvalidImage) {
		t.Errorf("mismatched union error = %v, want ErrInvalidImage", err)
	}
}

func TestFeatureConfigIntensityOr(t *testing.T) {
	if got := (FeatureConfig{}).IntensityOr(0.4); got != 0.4 {
		t.Errorf("unset intensity = %v, want default 0.4", got)
	}
	if got := (FeatureConfig{Intensity: ptr(0)}).IntensityOr(0.4); got != 0 {
		t.Errorf("explicit zero intensity = %v, want 0", got)
	}
}

package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/inference"
)

// SCRFDOptions configures the SCRFD face box detector
type SCRFDOptions struct {
	ModelPath     string
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
	Session       inference.SessionOptions
}

// SCRFD finds face boxes and 5 coarse keypoints. It is used to locate the
// face before running the dense face-mesh model.
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(opts SCRFDOptions) (*SCRFD, error) {
	if opts.InputSize <= 0 || opts.InputSize%32 != 0 {
		return nil, fmt.Errorf("SCRFD input size must be a positive multiple of 32, got %d", opts.InputSize)
	}

	// 3 levels x (score, bbox, kps)
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(opts.ModelPath, inputNames, outputNames, opts.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		inputSize:      opts.InputSize,
		confThreshold:  opts.ConfThreshold,
		nmsThreshold:   opts.NMSThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
	}, nil
}

// Detect finds faces in a BGR image, highest score first
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	blob, scale := s.preprocess(img)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		bytesToFloat32(blob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	tensors := make([]*ort.Tensor[float32], 9)
	defer func() {
		for _, t := range tensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	for level, stride := range s.featureStrides {
		side := s.inputSize / stride
		anchors := int64(side * side * s.numAnchors)

		for j, width := range []int64{1, 4, 10} {
			t, err := inference.CreateEmptyTensor[float32]([]int64{anchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[level+j*3] = t
			tensors[level+j*3] = t
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("SCRFD inference failed: %w", err)
	}

	faces := s.decode(tensors, scale, img.Cols(), img.Rows())
	return suppress(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image into the top-left of a square input and
// returns the NCHW blob plus the resize scale
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	scale := float32(s.inputSize) / float32(max(img.Rows(), img.Cols()))
	newWidth := int(float32(img.Cols()) * scale)
	newHeight := int(float32(img.Rows()) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.Zeros(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	defer padded.Close()
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	// (x - 127.5) / 128, RGB, NCHW
	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)

	return blob, scale
}

// decode turns raw stride outputs into faces in original image coordinates
func (s *SCRFD) decode(outputs []*ort.Tensor[float32], scale float32, width, height int) []Face {
	var faces []Face

	for level, stride := range s.featureStrides {
		side := s.inputSize / stride
		st := float32(stride)

		scores := outputs[level].GetData()
		boxes := outputs[level+3].GetData()
		kps := outputs[level+6].GetData()

		anchor := 0
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				for a := 0; a < s.numAnchors; a++ {
					score := sigmoid(scores[anchor])
					if score <= s.confThreshold {
						anchor++
						continue
					}

					cx := (float32(x) + 0.5) * st
					cy := (float32(y) + 0.5) * st

					b := boxes[anchor*4 : anchor*4+4]
					box := BoundingBox{
						X1: clamp((cx-b[0]*st)/scale, 0, float32(width)),
						Y1: clamp((cy-b[1]*st)/scale, 0, float32(height)),
						X2: clamp((cx+b[2]*st)/scale, 0, float32(width)),
						Y2: clamp((cy+b[3]*st)/scale, 0, float32(height)),
					}

					k := kps[anchor*10 : anchor*10+10]
					point := func(i int) Point {
						return Point{X: (cx + k[i*2]*st) / scale, Y: (cy + k[i*2+1]*st) / scale}
					}

					faces = append(faces, Face{
						BoundingBox: box,
						Keypoints: Keypoints{
							LeftEye:    point(0),
							RightEye:   point(1),
							Nose:       point(2),
							LeftMouth:  point(3),
							RightMouth: point(4),
						},
						Score: score,
					})
					anchor++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}

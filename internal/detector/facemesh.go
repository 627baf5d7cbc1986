package detector

import (
	"fmt"
	"image"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
	"github.com/dudu/glowmirror/internal/inference"
)

// FaceMeshOptions configures the dense face-mesh landmark model
type FaceMeshOptions struct {
	ModelPath         string
	InputName         string
	LandmarksOutput   string
	PresenceOutput    string
	LandmarksShape    []int64
	PresenceShape     []int64
	InputSize         int
	CropScale         float32 // box expansion around the detected face
	PresenceThreshold float32
	Session           inference.SessionOptions
}

// DefaultFaceMeshOptions returns the settings for the 192x192 face-mesh model
func DefaultFaceMeshOptions(modelPath string) FaceMeshOptions {
	return FaceMeshOptions{
		ModelPath:         modelPath,
		InputName:         "input_1",
		LandmarksOutput:   "conv2d_21",
		PresenceOutput:    "conv2d_31",
		LandmarksShape:    []int64{1, FaceMeshTopology * 3},
		PresenceShape:     []int64{1, 1},
		InputSize:         192,
		CropScale:         1.5,
		PresenceThreshold: 0.5,
	}
}

// FaceMesh produces a fixed-topology landmark set for the single most
// confident face in an image.
//
// A FaceMesh is created once at process start and shared by every request.
// Its configuration is fixed at construction. The underlying sessions are not
// reentrant, so Detect serialises inference internally and is safe to call
// from concurrent pipeline executions.
type FaceMesh struct {
	boxes   *SCRFD
	session *inference.Session
	opts    FaceMeshOptions
	mu      sync.Mutex
}

// NewFaceMesh creates the box detector and landmark model
func NewFaceMesh(boxOpts SCRFDOptions, meshOpts FaceMeshOptions) (*FaceMesh, error) {
	if meshOpts.InputSize <= 0 {
		return nil, fmt.Errorf("face-mesh input size must be positive, got %d", meshOpts.InputSize)
	}
	if meshOpts.CropScale <= 0 {
		meshOpts.CropScale = 1.5
	}

	boxes, err := NewSCRFD(boxOpts)
	if err != nil {
		return nil, err
	}

	session, err := inference.NewSession(meshOpts.ModelPath,
		[]string{meshOpts.InputName},
		[]string{meshOpts.LandmarksOutput, meshOpts.PresenceOutput},
		meshOpts.Session)
	if err != nil {
		boxes.Close()
		return nil, fmt.Errorf("failed to create face-mesh session: %w", err)
	}

	return &FaceMesh{
		boxes:   boxes,
		session: session,
		opts:    meshOpts,
	}, nil
}

// Detect returns pixel-space landmarks for the most confident face
func (m *FaceMesh) Detect(img gocv.Mat) (LandmarkSet, error) {
	normalized, err := m.DetectNormalized(img)
	if err != nil {
		return nil, err
	}
	return Denormalize(normalized, img.Cols(), img.Rows()), nil
}

// DetectNormalized returns landmarks as fractions of the image size
func (m *FaceMesh) DetectNormalized(img gocv.Mat) ([]NormalizedPoint, error) {
	if err := frame.Validate(img); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	faces, err := m.boxes.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	// single-face mode
	face := faces[0]
	log.WithFields(log.Fields{
		"faces": len(faces),
		"score": face.Score,
	}).Debug("face box selected")

	return m.landmarks(img, face)
}

// landmarks runs the mesh model on a roll-corrected crop around face
func (m *FaceMesh) landmarks(img gocv.Mat, face Face) ([]NormalizedPoint, error) {
	size := m.opts.InputSize
	fwd, inv := m.cropTransform(face)

	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer M.Close()
	for i, v := range fwd {
		M.SetDoubleAt(i/3, i%3, v)
	}

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, M, image.Pt(size, size))

	// RGB, [0,1], NCHW
	blob := gocv.BlobFromImage(aligned, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), bytesToFloat32(blob.ToBytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	points, err := inference.CreateEmptyTensor[float32](m.opts.LandmarksShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create landmark tensor: %w", err)
	}
	defer points.Destroy()

	presence, err := inference.CreateEmptyTensor[float32](m.opts.PresenceShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create presence tensor: %w", err)
	}
	defer presence.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{points, presence}); err != nil {
		return nil, fmt.Errorf("face-mesh inference failed: %w", err)
	}

	if score := sigmoid(presence.GetData()[0]); score < m.opts.PresenceThreshold {
		log.WithField("presence", score).Debug("face-mesh rejected crop")
		return nil, ErrNoFaceDetected
	}

	raw := points.GetData()
	if len(raw) < FaceMeshTopology*3 {
		return nil, fmt.Errorf("face-mesh output has %d values, need %d", len(raw), FaceMeshTopology*3)
	}

	width := float64(img.Cols())
	height := float64(img.Rows())
	result := make([]NormalizedPoint, FaceMeshTopology)
	for i := range result {
		x, y := applyAffine(inv, float64(raw[i*3]), float64(raw[i*3+1]))
		result[i] = NormalizedPoint{X: float32(x / width), Y: float32(y / height)}
	}

	return result, nil
}

// cropTransform builds the image->crop affine transform and its inverse. The
// crop is centred on the face box, scaled so the box times CropScale fills
// the input, and rotated so the eyes are level.
func (m *FaceMesh) cropTransform(face Face) (fwd, inv [6]float64) {
	box := face.BoundingBox
	center := box.Center()
	cx, cy := float64(center.X), float64(center.Y)

	side := float64(max(box.Width(), box.Height()) * m.opts.CropScale)
	if side <= 0 {
		side = 1
	}
	half := float64(m.opts.InputSize) / 2
	s := float64(m.opts.InputSize) / side

	le, re := face.Keypoints.LeftEye, face.Keypoints.RightEye
	roll := math.Atan2(float64(re.Y-le.Y), float64(re.X-le.X))
	cos, sin := math.Cos(roll), math.Sin(roll)

	fwd = [6]float64{
		s * cos, s * sin, half - s*(cos*cx+sin*cy),
		-s * sin, s * cos, half - s*(-sin*cx+cos*cy),
	}
	inv = [6]float64{
		cos / s, -sin / s, cx - (cos*half-sin*half)/s,
		sin / s, cos / s, cy - (sin*half+cos*half)/s,
	}
	return fwd, inv
}

// Close releases both models
func (m *FaceMesh) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.boxes.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.session.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

func applyAffine(t [6]float64, x, y float64) (float64, float64) {
	return t[0]*x + t[1]*y + t[2], t[3]*x + t[4]*y + t[5]
}

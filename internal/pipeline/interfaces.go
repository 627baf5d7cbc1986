package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/detector"
)

// Backend represents the inference backend to use
type Backend string

const (
	BackendONNX   Backend = "onnx"
	BackendCoreML Backend = "coreml"
)

// LandmarkProvider returns a fixed-topology pixel-space landmark set for the
// face in an image, or detector.ErrNoFaceDetected. Implementations must be
// safe to call from concurrent pipeline executions.
type LandmarkProvider interface {
	Detect(img gocv.Mat) (detector.LandmarkSet, error)
	Close() error
}

// Feature names a cosmetic layer
type Feature string

const (
	Lipstick  Feature = "lipstick"
	Eyeshadow Feature = "eyeshadow"
	Blush     Feature = "blush"
)

// FeatureOrder is the compositing order; later features paint over earlier ones
var FeatureOrder = []Feature{Lipstick, Eyeshadow, Blush}

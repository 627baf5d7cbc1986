package detector

import (
	"errors"
	"image"
)

// FaceMeshTopology is the number of points in a face-mesh landmark set
const FaceMeshTopology = 468

// ErrNoFaceDetected is returned when no usable face is found in the image
var ErrNoFaceDetected = errors.New("no face detected")

// Point represents a 2D point
type Point struct {
	X, Y float32
}

// NormalizedPoint is a landmark position relative to image size, in [0,1]
type NormalizedPoint struct {
	X, Y float32
}

// BoundingBox represents a face bounding box
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Keypoints represents the 5 coarse facial points from the face detector
type Keypoints struct {
	LeftEye    Point // index 0
	RightEye   Point // index 1
	Nose       Point // index 2
	LeftMouth  Point // index 3
	RightMouth Point // index 4
}

// Face represents a detected face box
type Face struct {
	BoundingBox BoundingBox
	Keypoints   Keypoints
	Score       float32
}

// LandmarkSet is an ordered list of pixel-space landmarks. Index i always
// refers to the same anatomical point.
type LandmarkSet []image.Point

// Denormalize scales normalized points to pixel coordinates of a width x height
// image. Coordinates are truncated toward zero and are not clamped, so points
// slightly outside the frame stay outside.
func Denormalize(points []NormalizedPoint, width, height int) LandmarkSet {
	set := make(LandmarkSet, len(points))
	for i, p := range points {
		set[i] = image.Pt(int(p.X*float32(width)), int(p.Y*float32(height)))
	}
	return set
}

package ui

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/frame"
)

var labelColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Compose places before and after side by side and draws the labels in the
// top-left corner of each half. Both images must share the same size.
func Compose(before, after gocv.Mat, beforeLabel, afterLabel string) (gocv.Mat, error) {
	if err := frame.Validate(before); err != nil {
		return gocv.NewMat(), err
	}
	if err := frame.Validate(after); err != nil {
		return gocv.NewMat(), err
	}
	if before.Rows() != after.Rows() || before.Cols() != after.Cols() {
		return gocv.NewMat(), fmt.Errorf("%w: before is %dx%d, after is %dx%d", frame.ErrInvalidImage,
			before.Cols(), before.Rows(), after.Cols(), after.Rows())
	}

	out := gocv.NewMat()
	gocv.Hconcat(before, after, &out)

	gocv.PutText(&out, beforeLabel, image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, labelColor, 2)
	gocv.PutText(&out, afterLabel, image.Pt(before.Cols()+10, 30),
		gocv.FontHersheyPlain, 2, labelColor, 2)

	return out, nil
}

// Window manages the preview display
type Window struct {
	window *gocv.Window
	name   string
}

// NewWindow creates a new preview window
func NewWindow(name string) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(1280, 720)
	window.MoveWindow(100, 100)
	return &Window{
		window: window,
		name:   name,
	}
}

// ShowComparison displays before and after side by side
func (w *Window) ShowComparison(before, after gocv.Mat, afterLabel string) error {
	view, err := Compose(before, after, "original", afterLabel)
	if err != nil {
		return err
	}
	defer view.Close()

	w.window.IMShow(view)
	return nil
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}

package model

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is a captured image owned by the pipeline for the duration of one iteration.
// Mat may be nil for frames that only carry geometry.
type Frame struct {
	Mat        *gocv.Mat
	Width      int
	Height     int
	CapturedAt time.Time
}

// NewFrame wraps a Mat, taking its dimensions from the matrix.
func NewFrame(mat *gocv.Mat, capturedAt time.Time) Frame {
	return Frame{
		Mat:        mat,
		Width:      mat.Cols(),
		Height:     mat.Rows(),
		CapturedAt: capturedAt,
	}
}

// Close releases the pixel buffer.
func (f *Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
		f.Mat = nil
	}
}

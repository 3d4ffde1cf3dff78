package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/detector"
)

// FaceDetector interface for face detection
type FaceDetector interface {
	Detect(img gocv.Mat, scoreThreshold, iouThreshold float32) ([]detector.Face, error)
	Close() error
}

// DetectorSource hands out the current detector for the duration of fn.
// It returns false without calling fn when no detector is loaded.
type DetectorSource interface {
	WithDetector(fn func(FaceDetector) error) (bool, error)
}

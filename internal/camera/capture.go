package camera

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Devices maps a facing to a capture device index
type Devices struct {
	Front int
	Back  int
}

// ID returns the device index for facing
func (d Devices) ID(facing int) int {
	if facing == FacingFront {
		return d.Front
	}
	return d.Back
}

// CaptureOpener returns an Opener backed by gocv devices
func CaptureOpener(devices Devices, width, height, targetFPS int) Opener {
	return func(facing int) (Source, error) {
		return NewCapture(devices.ID(facing), image.Pt(width, height), targetFPS)
	}
}

// Capture is a Source reading BGR frames from a gocv video device
type Capture struct {
	mu     sync.Mutex
	webcam *gocv.VideoCapture
	device int
}

// NewCapture opens a device and asks for the given resolution and frame rate
func NewCapture(device int, size image.Point, targetFPS int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("camera %d is not available", device)
	}

	if size.X > 0 && size.Y > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(size.X))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(size.Y))
	}
	if targetFPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(targetFPS))
	}

	// the driver may round to a mode it supports
	actual := image.Pt(
		int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	)
	log.Infof("camera %d opened at %dx%d (asked %dx%d)", device, actual.X, actual.Y, size.X, size.Y)

	return &Capture{webcam: webcam, device: device}, nil
}

// Read grabs the next frame; false means no frame was available
func (c *Capture) Read(frame *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.webcam != nil && c.webcam.Read(frame)
}

// Close releases the device; later Reads return false
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return nil
	}
	err := c.webcam.Close()
	c.webcam = nil
	if err != nil {
		return fmt.Errorf("failed to release camera %d: %w", c.device, err)
	}
	return nil
}

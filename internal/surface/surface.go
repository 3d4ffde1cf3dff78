// Package surface holds the output targets annotated frames are shown on.
package surface

import "gocv.io/x/gocv"

// Surface receives finished BGR frames. Show must not block for longer
// than a frame interval; it is called from the capture goroutine.
type Surface interface {
	Show(frame gocv.Mat) error
	Close() error
}

// Multi fans a frame out to several surfaces
type Multi []Surface

// Show forwards frame to every surface and returns the first error
func (m Multi) Show(frame gocv.Mat) error {
	var first error
	for _, s := range m {
		if err := s.Show(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every surface and returns the first error
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

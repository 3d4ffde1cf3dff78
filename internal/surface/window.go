package surface

import (
	"context"
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrWindowClosed is returned by Show after Close
var ErrWindowClosed = errors.New("window closed")

// Window shows frames in a highgui window. highgui must be driven from the
// main OS thread, so Show only hands the frame over and Run does the drawing.
type Window struct {
	name   string
	mu     sync.Mutex
	latest gocv.Mat
	fresh  bool
	closed bool
}

// NewWindow creates a preview surface; call Run from the main goroutine
func NewWindow(name string) *Window {
	return &Window{
		name:   name,
		latest: gocv.NewMat(),
	}
}

// Show replaces the pending frame; a frame not yet drawn is dropped
func (w *Window) Show(frame gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWindowClosed
	}
	frame.CopyTo(&w.latest)
	w.fresh = true
	return nil
}

// Run opens the window and draws frames until ctx ends or 'q'/ESC is pressed
func (w *Window) Run(ctx context.Context) {
	window := gocv.NewWindow(w.name)
	defer window.Close()
	window.ResizeWindow(1280, 720)

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		if w.take(&frame) {
			window.IMShow(frame)
		}

		// WaitKey also pumps window events
		key := window.WaitKey(10)
		if key == 'q' || key == 27 { // 'q' or ESC
			return
		}
	}
}

func (w *Window) take(dst *gocv.Mat) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.fresh {
		return false
	}
	w.latest.CopyTo(dst)
	w.fresh = false
	return true
}

// Close releases the pending frame; later Show calls fail
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.latest.Close()
}

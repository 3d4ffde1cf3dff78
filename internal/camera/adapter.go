// Package camera drives a capture device and pushes every frame through a
// render callback to the bound output surface.
package camera

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	golog "github.com/ipfs/go-log/v2"
	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/convert"
	"github.com/oal/facetengine/internal/surface"
)

var log = golog.Logger("facetengine/camera")

// Camera facings
const (
	FacingFront = 0
	FacingBack  = 1
)

const (
	readBackoff = 5 * time.Millisecond
	missWarnAt  = 100 // consecutive failed reads before warning
)

// ErrInvalidFacing is returned for facings other than front or back
var ErrInvalidFacing = errors.New("invalid camera facing")

// Source delivers BGR frames
type Source interface {
	Read(frame *gocv.Mat) bool
	Close() error
}

// Opener opens the source for a facing
type Opener func(facing int) (Source, error)

// RenderFunc annotates an RGB frame in place. It runs on the capture
// goroutine and should return within one frame interval.
type RenderFunc func(frame *gocv.Mat)

// Adapter owns at most one open camera session
type Adapter struct {
	open     Opener
	render   RenderFunc
	interval time.Duration

	mu     sync.Mutex // open/close
	src    Source
	facing int
	stop   chan struct{}
	done   chan struct{}

	surfaceMu sync.RWMutex
	surface   surface.Surface

	frames atomic.Uint64
}

// NewAdapter creates a closed adapter. targetFPS sets the render budget.
func NewAdapter(open Opener, render RenderFunc, targetFPS int) *Adapter {
	a := &Adapter{open: open, render: render}
	if targetFPS > 0 {
		a.interval = time.Second / time.Duration(targetFPS)
	}
	return a
}

// Open starts capturing from the given facing. An already open session is
// closed first. Invalid facings are rejected before the device is touched.
func (a *Adapter) Open(facing int) error {
	if facing != FacingFront && facing != FacingBack {
		return fmt.Errorf("%w: %d", ErrInvalidFacing, facing)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.closeLocked(); err != nil {
		log.Warnf("closing previous camera: %v", err)
	}

	src, err := a.open(facing)
	if err != nil {
		return fmt.Errorf("failed to open camera facing %d: %w", facing, err)
	}

	a.src = src
	a.facing = facing
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.loop(src, a.stop, a.done)

	log.Infof("openCamera %d", facing)
	return nil
}

// Close stops capture and releases the device; safe when already closed
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Adapter) closeLocked() error {
	if a.src == nil {
		return nil
	}

	close(a.stop)
	<-a.done

	err := a.src.Close()
	a.src = nil
	log.Infof("closeCamera %d after %d frames", a.facing, a.frames.Load())
	return err
}

// IsOpen reports whether a session is running
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.src != nil
}

// Frames returns the number of frames delivered since creation
func (a *Adapter) Frames() uint64 {
	return a.frames.Load()
}

// SetOutputWindow binds the surface frames are shown on, replacing any
// previous one. It may be called while capturing; nil unbinds. Surfaces
// stay owned by the caller.
func (a *Adapter) SetOutputWindow(s surface.Surface) {
	a.surfaceMu.Lock()
	a.surface = s
	a.surfaceMu.Unlock()
	log.Debugf("setOutputWindow %T", s)
}

func (a *Adapter) loop(src Source, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	frame := gocv.NewMat()
	defer frame.Close()

	misses := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		if !src.Read(&frame) || frame.Empty() {
			misses++
			if misses == missWarnAt {
				log.Warnf("camera returned no frames for %d reads", misses)
			}
			time.Sleep(readBackoff)
			continue
		}
		misses = 0

		a.deliver(&frame)
	}
}

// deliver renders one frame and shows it; exactly one frame is in flight
func (a *Adapter) deliver(frame *gocv.Mat) {
	if err := convert.BGRToRGB(frame); err != nil {
		log.Warnf("dropping frame: %v", err)
		return
	}

	if a.render != nil {
		start := time.Now()
		a.render(frame)
		if took := time.Since(start); a.interval > 0 && took > a.interval {
			log.Warnf("render took %v, over the %v frame budget", took, a.interval)
		}
	}

	if err := convert.RGBToBGR(frame); err != nil {
		log.Warnf("dropping frame: %v", err)
		return
	}
	a.frames.Add(1)

	a.surfaceMu.RLock()
	s := a.surface
	a.surfaceMu.RUnlock()

	if s != nil {
		if err := s.Show(*frame); err != nil {
			log.Debugf("show: %v", err)
		}
	}
}

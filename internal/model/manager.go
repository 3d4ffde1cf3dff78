// Package model owns the lifecycle of the face detector handle.
package model

import (
	"errors"
	"fmt"
	"image"
	"sync"

	golog "github.com/ipfs/go-log/v2"

	"github.com/oal/facetengine/internal/detector"
	"github.com/oal/facetengine/internal/inference"
	"github.com/oal/facetengine/internal/pipeline"
)

var log = golog.Logger("facetengine/model")

// Fixed model variants
const (
	AcceleratorModelPath = "models/scrfd_2.5g_bnkps_uint8.onnx"
	CPUModelPath         = "models/scrfd_2.5g_bnkps_sim.onnx"
)

// InputSize is the detector input shape (width × height)
var InputSize = image.Pt(640, 384)

var (
	// ErrModelLoad wraps any failure to construct the detector
	ErrModelLoad = errors.New("failed to load model")
	// ErrNotLoaded is returned when an operation needs a loaded detector
	ErrNotLoaded = errors.New("model not loaded")
)

// Variant is a model path paired with the device it runs on
type Variant struct {
	Path   string
	Device inference.Device
}

// SelectVariant picks the model file and device for the accelerator flag
func SelectVariant(useAccelerator bool) Variant {
	if useAccelerator {
		return Variant{Path: AcceleratorModelPath, Device: inference.DeviceNPU}
	}
	return Variant{Path: CPUModelPath, Device: inference.DeviceCPU}
}

// deviceReporter is a detector that knows which device it ended up on
type deviceReporter interface {
	Device() inference.Device
}

// Loader constructs a detector for a variant
type Loader func(v Variant, inputSize image.Point) (pipeline.FaceDetector, error)

// SCRFDLoader builds the ONNX Runtime SCRFD detector
func SCRFDLoader(v Variant, inputSize image.Point) (pipeline.FaceDetector, error) {
	det, err := detector.NewSCRFD(v.Path, inputSize, v.Device)
	if err != nil {
		return nil, err
	}
	return det, nil
}

// Manager holds at most one detector. Detection runs under the read lock so
// Load and Release never pull the handle out from under a running Detect.
type Manager struct {
	mu      sync.RWMutex
	load    Loader
	det     pipeline.FaceDetector
	variant Variant
}

// NewManager creates an empty manager
func NewManager(load Loader) *Manager {
	if load == nil {
		load = SCRFDLoader
	}
	return &Manager{load: load}
}

// Load releases any current detector and loads the selected variant. On
// failure the manager stays not loaded.
func (m *Manager) Load(useAccelerator bool) error {
	v := SelectVariant(useAccelerator)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()

	det, err := m.load(v, InputSize)
	if err != nil {
		return fmt.Errorf("%w %s on %s: %v", ErrModelLoad, v.Path, v.Device, err)
	}
	if det == nil {
		return fmt.Errorf("%w %s on %s: loader returned no detector", ErrModelLoad, v.Path, v.Device)
	}

	if d, ok := det.(deviceReporter); ok && d.Device() != v.Device {
		log.Warnf("%s asked for %s, running on %s", v.Path, v.Device, d.Device())
		v.Device = d.Device()
	}

	m.det = det
	m.variant = v
	log.Infof("loaded %s (%s, %dx%d)", v.Path, v.Device, InputSize.X, InputSize.Y)
	return nil
}

// Release closes the detector if one is loaded; safe to call repeatedly
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *Manager) releaseLocked() {
	if m.det == nil {
		return
	}
	if err := m.det.Close(); err != nil {
		log.Warnf("closing %s: %v", m.variant.Path, err)
	}
	log.Infof("released %s", m.variant.Path)
	m.det = nil
	m.variant = Variant{}
}

// Loaded reports whether a detector is available
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.det != nil
}

// Info returns the path and device of the live detector, or ErrNotLoaded
func (m *Manager) Info() (Variant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.det == nil {
		return Variant{}, ErrNotLoaded
	}
	return m.variant, nil
}

// WithDetector runs fn with the loaded detector held under the read lock
func (m *Manager) WithDetector(fn func(pipeline.FaceDetector) error) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.det == nil {
		return false, nil
	}
	return true, fn(m.det)
}

// Package engine is the caller-facing entry point: one context object that
// owns the detector, the camera session and the render pipeline. Every
// operation reports success as a bool and logs the reason for a failure.
package engine

import (
	"sync"

	golog "github.com/ipfs/go-log/v2"

	"github.com/oal/facetengine/internal/camera"
	"github.com/oal/facetengine/internal/config"
	"github.com/oal/facetengine/internal/convert"
	"github.com/oal/facetengine/internal/fps"
	"github.com/oal/facetengine/internal/model"
	"github.com/oal/facetengine/internal/pipeline"
	"github.com/oal/facetengine/internal/surface"
)

var log = golog.Logger("facetengine/engine")

// Options wires the engine's collaborators
type Options struct {
	Pipeline     pipeline.Config
	Loader       model.Loader  // nil uses the ONNX Runtime SCRFD loader
	Opener       camera.Opener // nil uses gocv devices from Devices
	Devices      camera.Devices
	CameraWidth  int
	CameraHeight int
	TargetFPS    int
	RotateCamera bool
	RotateBuffer bool
}

// OptionsFromConfig maps loaded configuration onto engine options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Pipeline: pipeline.Config{
			ScoreThreshold: cfg.ScoreThreshold,
			IOUThreshold:   cfg.IOUThreshold,
		},
		Devices:      camera.Devices{Front: cfg.FrontCamera, Back: cfg.BackCamera},
		CameraWidth:  cfg.CameraWidth,
		CameraHeight: cfg.CameraHeight,
		TargetFPS:    cfg.TargetFPS,
		RotateCamera: cfg.RotateCamera,
		RotateBuffer: cfg.RotateBuffer,
	}
}

// Engine holds what used to be process-wide state. Create one per process
// and Close it on teardown.
type Engine struct {
	models       *model.Manager
	pipe         *pipeline.Pipeline
	camera       *camera.Adapter
	rotateBuffer bool

	bufMu sync.Mutex // one DetectDraw at a time
}

// New builds an engine with no model loaded and the camera closed
func New(opts Options) *Engine {
	models := model.NewManager(opts.Loader)
	pipe := pipeline.New(opts.Pipeline, models)

	opener := opts.Opener
	if opener == nil {
		opener = camera.CaptureOpener(opts.Devices, opts.CameraWidth, opts.CameraHeight, opts.TargetFPS)
	}

	return &Engine{
		models:       models,
		pipe:         pipe,
		camera:       camera.NewAdapter(opener, pipe.Renderer(opts.RotateCamera, fps.NewEstimator()), opts.TargetFPS),
		rotateBuffer: opts.RotateBuffer,
	}
}

// LoadModel loads the accelerator or CPU model variant
func (e *Engine) LoadModel(useAccelerator bool) bool {
	if err := e.models.Load(useAccelerator); err != nil {
		log.Errorf("loadModel: %v", err)
		return false
	}
	log.Info("Successfully loaded model")
	return true
}

// Release drops the detector; frames fall back to the unsupported overlay
func (e *Engine) Release() {
	e.models.Release()
}

// OpenCamera starts capture for facing 0 (front) or 1 (back)
func (e *Engine) OpenCamera(facing int) bool {
	if err := e.camera.Open(facing); err != nil {
		log.Errorf("openCamera: %v", err)
		return false
	}
	return true
}

// CloseCamera stops capture
func (e *Engine) CloseCamera() bool {
	if err := e.camera.Close(); err != nil {
		log.Errorf("closeCamera: %v", err)
		return false
	}
	return true
}

// SetOutputWindow binds the surface camera frames are shown on
func (e *Engine) SetOutputWindow(s surface.Surface) bool {
	e.camera.SetOutputWindow(s)
	return true
}

// DetectDraw runs detection on a caller-owned RGBA buffer and writes the
// annotated pixels back into it. Drawing the unsupported placeholder still
// counts as success.
func (e *Engine) DetectDraw(width, height int, pixels []byte) bool {
	if pixels == nil {
		log.Error("detectDraw: nil pixel buffer")
		return false
	}

	e.bufMu.Lock()
	defer e.bufMu.Unlock()

	rgb, err := convert.ToRGB(pixels, width, height)
	if err != nil {
		log.Errorf("detectDraw: %v", err)
		return false
	}
	defer rgb.Close()

	if err := e.pipe.Process(&rgb, e.rotateBuffer); err != nil {
		log.Errorf("detectDraw: %v", err)
		return false
	}

	if err := convert.ToRGBA(rgb, pixels); err != nil {
		log.Errorf("detectDraw: %v", err)
		return false
	}
	return true
}

// Pipeline exposes timing of the most recent frame
func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipe
}

// ModelInfo returns the path and device of the loaded model
func (e *Engine) ModelInfo() (model.Variant, error) {
	return e.models.Info()
}

// Loaded reports whether a detector is available
func (e *Engine) Loaded() bool {
	return e.models.Loaded()
}

// Close closes the camera and releases the model
func (e *Engine) Close() {
	e.CloseCamera()
	e.models.Release()
}
